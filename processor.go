package sigma

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

const defaultConcurrency = 4

// Processor decodes frames concurrently with a shared Codec.
type Processor struct {
	codec        *Codec
	concurrency  int
	errorHandler func(error)
	logger       zerolog.Logger
}

type ProcessorOption func(*Processor)

// WithConcurrency sets the maximum number of frames decoded at once.
func WithConcurrency(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithErrorHandler receives every decode error of ProcessBatch and
// ProcessStream.
func WithErrorHandler(handler func(error)) ProcessorOption {
	return func(p *Processor) {
		p.errorHandler = handler
	}
}

func WithProcessorLogger(logger zerolog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

func NewProcessor(codec *Codec, opts ...ProcessorOption) *Processor {
	if codec == nil {
		codec = defaultCodec
	}
	p := &Processor{
		codec:       codec,
		concurrency: defaultConcurrency,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.errorHandler == nil {
		p.errorHandler = func(err error) {
			p.logger.Error().Err(err).Msg("frame decode failed")
		}
	}
	return p
}

// Process decodes one frame body.
func (p *Processor) Process(body []byte) (*Message, error) {
	return p.codec.Decode(body)
}

// ProcessBatch decodes bodies concurrently. Results keep the input
// order; a failed entry is nil and its error is joined into the
// returned error.
func (p *Processor) ProcessBatch(ctx context.Context, bodies [][]byte) ([]*Message, error) {
	results := make([]*Message, len(bodies))
	errs := make([]error, len(bodies))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, p.concurrency)

	for i, body := range bodies {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return results, err
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return results, ctx.Err()
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int, data []byte) {
			defer wg.Done()
			defer func() { <-semaphore }()

			msg, err := p.codec.Decode(data)
			if err != nil {
				errs[idx] = err
				p.errorHandler(err)
				return
			}
			results[idx] = msg
		}(i, body)
	}

	wg.Wait()
	return results, errors.Join(errs...)
}

// ProcessStream decodes bodies from input and sends the messages to
// output until input is closed or ctx is done. Output order follows
// completion, not input.
func (p *Processor) ProcessStream(ctx context.Context, input <-chan []byte, output chan<- *Message) error {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, p.concurrency)

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()

		case data, ok := <-input:
			if !ok {
				wg.Wait()
				return nil
			}

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				return ctx.Err()
			}

			wg.Add(1)
			go func(msgData []byte) {
				defer wg.Done()
				defer func() { <-semaphore }()

				msg, err := p.codec.Decode(msgData)
				if err != nil {
					p.errorHandler(err)
					return
				}
				select {
				case output <- msg:
				case <-ctx.Done():
				}
			}(data)
		}
	}
}
