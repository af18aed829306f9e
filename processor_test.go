package sigma

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func sampleBodies(t *testing.T, n int) [][]byte {
	t.Helper()
	body, err := defaultCodec.EncodeBody(sampleMessage(t))
	if err != nil {
		t.Fatalf("encode body: %v", err)
	}
	out := make([][]byte, n)
	for i := range out {
		out[i] = body
	}
	return out
}

func TestProcessBatchKeepsOrder(t *testing.T) {
	bodies := sampleBodies(t, 8)
	bodies[3] = []byte("02")

	var failures atomic.Int32
	p := NewProcessor(nil,
		WithConcurrency(3),
		WithErrorHandler(func(error) { failures.Add(1) }),
	)

	results, err := p.ProcessBatch(context.Background(), bodies)
	if !errors.Is(err, ErrTruncatedBuffer) {
		t.Fatalf("expected ErrTruncatedBuffer in batch error, got %v", err)
	}
	if failures.Load() != 1 {
		t.Fatalf("error handler called %d times", failures.Load())
	}
	for i, msg := range results {
		if i == 3 {
			if msg != nil {
				t.Fatalf("failed entry should be nil")
			}
			continue
		}
		if msg == nil || msg.MTI() != "0200" {
			t.Fatalf("entry %d not decoded", i)
		}
	}
}

func TestProcessBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := NewProcessor(nil).ProcessBatch(ctx, sampleBodies(t, 4))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	for _, msg := range results {
		if msg != nil {
			t.Fatalf("nothing should be decoded after cancel")
		}
	}
}

func TestProcessStream(t *testing.T) {
	bodies := sampleBodies(t, 5)
	input := make(chan []byte, len(bodies)+1)
	for _, b := range bodies {
		input <- b
	}
	input <- []byte("garbage!")
	close(input)

	var failures atomic.Int32
	p := NewProcessor(NewCodec(), WithErrorHandler(func(error) { failures.Add(1) }))

	output := make(chan *Message, len(bodies))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.ProcessStream(ctx, input, output); err != nil {
		t.Fatalf("stream: %v", err)
	}
	close(output)

	count := 0
	for msg := range output {
		if s, err := msg.Serno(); err != nil || s.String() != "6007040979" {
			t.Fatalf("unexpected serno %s err %v", s, err)
		}
		count++
	}
	if count != len(bodies) || failures.Load() != 1 {
		t.Fatalf("decoded %d, failures %d", count, failures.Load())
	}
}

func TestProcess(t *testing.T) {
	msg, err := NewProcessor(nil).Process(sampleBodies(t, 1)[0])
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if msg.SAF() != "Y" || msg.Source() != "M" {
		t.Fatalf("unexpected message %s %s", msg.SAF(), msg.Source())
	}
}
