package stream

import (
	"fmt"

	"github.com/doppel-dev/doppel/internal/models"
)

// StreamMessage is one raw entry read from the Redis stream.
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// ParseSubmission extracts a function submission from a stream entry. The
// parser service publishes corpusId and functionId as plain fields and the
// serialized record under payload.
func ParseSubmission(msg *StreamMessage) (*models.FunctionSubmission, error) {
	payload, ok := msg.Fields["payload"]
	if !ok || payload == "" {
		return nil, fmt.Errorf("message %s has no payload field", msg.ID)
	}

	return &models.FunctionSubmission{
		CorpusID:   msg.Fields["corpusId"],
		FunctionID: msg.Fields["functionId"],
		Payload:    payload,
	}, nil
}
