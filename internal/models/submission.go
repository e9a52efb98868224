package models

// FunctionSubmission represents one function extraction event from the
// Redis stream. Payload carries the serialized FunctionRecord produced by
// the parser service.
type FunctionSubmission struct {
	CorpusID   string `json:"corpusId"`
	FunctionID string `json:"functionId"`
	Payload    string `json:"payload"`
}
