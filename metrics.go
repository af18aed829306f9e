package sigma

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opDecode = "decode"
	opEncode = "encode"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sigma",
			Name:      "frames_total",
			Help:      "Frames seen by frame decoders, by result.",
		},
		[]string{"result"},
	)
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sigma",
			Subsystem: "codec",
			Name:      "messages_total",
			Help:      "Messages encoded or decoded, by operation and result.",
		},
		[]string{"op", "result"},
	)
	unknownFields = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sigma",
			Subsystem: "codec",
			Name:      "unknown_fields_total",
			Help:      "Uncatalogued ISO fields carried as opaque values.",
		},
	)
)

// RegisterMetrics adds the codec collectors to the default registry.
// It is safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesTotal, messagesTotal, unknownFields)
	})
}

func recordMessage(op string, err error) {
	messagesTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func recordFrame(result string) {
	framesTotal.WithLabelValues(result).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
