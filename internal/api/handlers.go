package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/doppel-dev/doppel/internal/config"
	"github.com/doppel-dev/doppel/internal/consensus"
	"github.com/doppel-dev/doppel/internal/infra/redis"
	"github.com/doppel-dev/doppel/internal/metrics"
	"github.com/doppel-dev/doppel/internal/models"
	"github.com/doppel-dev/doppel/internal/repository"
	"github.com/doppel-dev/doppel/internal/similarity"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler holds dependencies for handlers
type Handler struct {
	cfg             *config.Config
	functionsRepo   *repository.FunctionsRepository
	resultsRepo     *repository.ResultsRepository
	manager         *similarity.Manager
	redisClient     *redis.Client
	analyzeSem      chan struct{} // Semaphore for bounded concurrency
	analysisTimeout time.Duration
}

// NewHandler creates a new handler
func NewHandler(
	cfg *config.Config,
	functionsRepo *repository.FunctionsRepository,
	resultsRepo *repository.ResultsRepository,
	manager *similarity.Manager,
	redisClient *redis.Client,
) *Handler {
	// Create semaphore for bounded concurrency
	sem := make(chan struct{}, cfg.MaxConcurrentAnalyses)

	return &Handler{
		cfg:             cfg,
		functionsRepo:   functionsRepo,
		resultsRepo:     resultsRepo,
		manager:         manager,
		redisClient:     redisClient,
		analyzeSem:      sem,
		analysisTimeout: cfg.AnalysisTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (h *Handler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if req.CorpusID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "corpusId is required",
			Code:  "INVALID_CORPUS_ID",
		})
		return
	}

	opts, err := h.buildOptions(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_OPTIONS",
		})
		return
	}

	// Edge case: unknown corpus
	ctx := c.Request.Context()
	count, err := h.functionsRepo.CountFunctionsByCorpusID(ctx, req.CorpusID)
	if err != nil {
		log.Error().Err(err).Str("corpusId", req.CorpusID).Msg("Failed to check function records")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to check function records",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	if count == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "No function records found for corpusId",
			Code:  "CORPUS_NOT_FOUND",
		})
		return
	}

	// Acquire semaphore (bounded concurrency)
	select {
	case h.analyzeSem <- struct{}{}:
		// Acquired semaphore
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return
	}

	// Update status: Initiated
	if err := similarity.UpdateStatus(ctx, h.redisClient, req.CorpusID, models.StepInitiated); err != nil {
		log.Warn().Err(err).Str("corpusId", req.CorpusID).Msg("Failed to update initiated status")
	}

	// Return 202 Accepted immediately
	c.JSON(http.StatusAccepted, models.AnalyzeResponse{
		Step:     models.StepInitiated,
		CorpusID: req.CorpusID,
	})

	// Process asynchronously
	go h.processAnalysis(req.CorpusID, opts)
}

// buildOptions merges request overrides onto the configured defaults.
func (h *Handler) buildOptions(req *models.AnalyzeRequest) (similarity.Options, error) {
	opts := similarity.Options{
		Threshold:        h.cfg.Threshold,
		MinLines:         h.cfg.MinLines,
		CrossFile:        h.cfg.CrossFile,
		Detectors:        h.cfg.Detectors,
		Consensus:        consensus.Strategy{Kind: consensus.Union},
		FingerprintBits:  h.cfg.FingerprintBits,
		FingerprintBands: h.cfg.FingerprintBands,
	}

	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	if req.MinLines != nil {
		opts.MinLines = *req.MinLines
	}
	if req.CrossFile != nil {
		opts.CrossFile = *req.CrossFile
	}
	if len(req.Detectors) > 0 {
		opts.Detectors = req.Detectors
	}
	if req.Consensus != nil {
		kind := consensus.Kind(req.Consensus.Strategy)
		switch kind {
		case consensus.Union, consensus.Intersection, consensus.Majority, consensus.Weighted:
		default:
			return opts, fmt.Errorf("unknown consensus strategy %q", req.Consensus.Strategy)
		}
		opts.Consensus = consensus.Strategy{
			Kind:      kind,
			Threshold: req.Consensus.Threshold,
			Weights:   req.Consensus.Weights,
		}
	}

	return opts, nil
}

// processAnalysis runs the pipeline asynchronously and persists the report.
func (h *Handler) processAnalysis(corpusID string, opts similarity.Options) {
	defer func() { <-h.analyzeSem }() // Release semaphore

	started := time.Now()

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), h.analysisTimeout)
	defer cancel()

	updateStep := func(step models.Step) {
		if err := similarity.UpdateStatus(ctx, h.redisClient, corpusID, step); err != nil {
			log.Warn().Err(err).Str("corpusId", corpusID).Msg("Failed to update status")
		}
	}

	updateStep(models.StepBuilding)

	functions, err := h.functionsRepo.GetFunctionsByCorpusID(ctx, corpusID)
	if err != nil {
		log.Error().Err(err).Str("corpusId", corpusID).Msg("Failed to load function records")
		h.finishFailed(ctx, corpusID, started, err)
		return
	}

	updateStep(models.StepDetecting)

	result, err := h.manager.Detect(ctx, functions, opts)
	if err != nil {
		var optsErr *similarity.InvalidOptionsError
		var aggErr *consensus.AggregationError
		switch {
		case errors.As(err, &optsErr):
			log.Error().Err(err).Str("corpusId", corpusID).Msg("Analysis rejected: invalid options")
		case errors.As(err, &aggErr):
			log.Error().Err(err).Str("corpusId", corpusID).Msg("Analysis rejected: bad aggregation strategy")
		default:
			log.Error().Err(err).Str("corpusId", corpusID).Msg("Analysis failed")
		}
		h.finishFailed(ctx, corpusID, started, err)
		return
	}

	updateStep(models.StepAggregating)

	report := &models.AnalysisReport{
		CorpusID:      corpusID,
		Status:        models.ReportCompleted,
		Groups:        result.Groups,
		Warnings:      result.Warnings,
		SkippedCount:  result.Stats.Skipped,
		FunctionCount: result.Stats.Functions,
		DurationMS:    result.Stats.Duration.Milliseconds(),
	}
	if err := h.resultsRepo.InsertAnalysisReport(ctx, report); err != nil {
		log.Error().Err(err).Str("corpusId", corpusID).Msg("Failed to store analysis report")
		h.finishFailed(ctx, corpusID, started, err)
		return
	}

	updateStep(models.StepCompleted)
	metrics.AnalysesTotal.WithLabelValues(models.ReportCompleted).Inc()
	metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
	metrics.GroupsFound.Observe(float64(len(result.Groups)))

	log.Info().
		Str("corpusId", corpusID).
		Int("groups", len(result.Groups)).
		Msg("Analysis completed successfully")
}

func (h *Handler) finishFailed(ctx context.Context, corpusID string, started time.Time, cause error) {
	if err := similarity.UpdateStatus(ctx, h.redisClient, corpusID, models.StepFailed); err != nil {
		log.Warn().Err(err).Str("corpusId", corpusID).Msg("Failed to update failed status")
	}

	report := &models.AnalysisReport{
		CorpusID:   corpusID,
		Status:     models.ReportFailed,
		Warnings:   []string{cause.Error()},
		DurationMS: time.Since(started).Milliseconds(),
	}
	if err := h.resultsRepo.InsertAnalysisReport(ctx, report); err != nil {
		log.Error().Err(err).Str("corpusId", corpusID).Msg("Failed to store failed report")
	}

	metrics.AnalysesTotal.WithLabelValues(models.ReportFailed).Inc()
}

// Status reports the current pipeline step for a corpus.
func (h *Handler) Status(c *gin.Context) {
	corpusID := c.Param("corpusId")
	if corpusID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "corpusId is required",
			Code:  "INVALID_CORPUS_ID",
		})
		return
	}

	step, err := similarity.GetStatus(c.Request.Context(), h.redisClient, corpusID)
	if err != nil {
		log.Error().Err(err).Str("corpusId", corpusID).Msg("Failed to read status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to read status",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, models.AnalyzeResponse{
		Step:     step,
		CorpusID: corpusID,
	})
}

// Report returns the latest stored analysis report for a corpus.
func (h *Handler) Report(c *gin.Context) {
	corpusID := c.Param("corpusId")
	if corpusID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "corpusId is required",
			Code:  "INVALID_CORPUS_ID",
		})
		return
	}

	report, err := h.resultsRepo.GetLatestReportByCorpusID(c.Request.Context(), corpusID)
	if err != nil {
		log.Error().Err(err).Str("corpusId", corpusID).Msg("Failed to load report")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to load report",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	if report == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "No report found for corpusId",
			Code:  "REPORT_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}
