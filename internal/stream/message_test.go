package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubmission(t *testing.T) {
	msg := &StreamMessage{
		ID: "1700000000000-0",
		Fields: map[string]string{
			"corpusId":   "corpus-1",
			"functionId": "fn-1",
			"payload":    `{"functionId":"fn-1","corpusId":"corpus-1"}`,
		},
	}

	submission, err := ParseSubmission(msg)
	require.NoError(t, err)
	assert.Equal(t, "corpus-1", submission.CorpusID)
	assert.Equal(t, "fn-1", submission.FunctionID)
	assert.NotEmpty(t, submission.Payload)
}

func TestParseSubmissionMissingPayload(t *testing.T) {
	msg := &StreamMessage{
		ID:     "1700000000000-0",
		Fields: map[string]string{"corpusId": "corpus-1"},
	}

	_, err := ParseSubmission(msg)
	assert.Error(t, err)
}
