package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doppel-dev/doppel/internal/metrics"
	"github.com/doppel-dev/doppel/internal/models"
	"github.com/doppel-dev/doppel/internal/repository"
	"github.com/rs/zerolog/log"
)

// ErrInvalidRecord marks submissions that can never succeed, no matter how
// often they are retried. Callers should dead letter these instead of
// backing off.
var ErrInvalidRecord = errors.New("invalid function record")

// Service validates incoming function extraction events and stores them.
type Service struct {
	functionsRepo *repository.FunctionsRepository
}

func NewService(functionsRepo *repository.FunctionsRepository) *Service {
	return &Service{
		functionsRepo: functionsRepo,
	}
}

// ProcessSubmission decodes and persists one extracted function record.
func (s *Service) ProcessSubmission(ctx context.Context, submission *models.FunctionSubmission) error {
	var record models.FunctionRecord
	if err := json.Unmarshal([]byte(submission.Payload), &record); err != nil {
		return fmt.Errorf("%w: undecodable payload: %v", ErrInvalidRecord, err)
	}

	if record.FunctionID == "" {
		record.FunctionID = submission.FunctionID
	}
	if record.CorpusID == "" {
		record.CorpusID = submission.CorpusID
	}

	if err := validate(&record); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if err := s.functionsRepo.UpsertFunction(ctx, &record); err != nil {
		return fmt.Errorf("failed to store function record: %w", err)
	}

	metrics.FunctionsIngested.Inc()
	log.Debug().
		Str("function_id", record.FunctionID).
		Str("corpus_id", record.CorpusID).
		Msg("Function record ingested")

	return nil
}

// validate rejects records that cannot identify themselves. Missing ASTs or
// tokens are allowed here: the representation builder skips those at
// analysis time with a recorded reason.
func validate(record *models.FunctionRecord) error {
	if record.FunctionID == "" {
		return fmt.Errorf("missing functionId")
	}
	if record.CorpusID == "" {
		return fmt.Errorf("missing corpusId")
	}
	if record.FilePath == "" {
		return fmt.Errorf("missing filePath")
	}
	if record.EndLine < record.StartLine {
		return fmt.Errorf("endLine %d precedes startLine %d", record.EndLine, record.StartLine)
	}
	return nil
}
