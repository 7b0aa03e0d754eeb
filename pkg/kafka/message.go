package kafka

import "time"

const (
	HeaderContentType = "content-type"
	HeaderProducedAt  = "produced-at"
)

// Message is the broker-agnostic envelope the producer accepts. Key ordering
// matters: schedule requests for the same booking hash to the same partition.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}
