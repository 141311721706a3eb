package decompose

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/decompd/internal/ai"
)

const instrumentationName = "github.com/fyrsmithlabs/decompd/internal/decompose"

// Analyzer defaults.
const (
	DefaultProposalTTL     = 30 * time.Minute
	DefaultGenerateTimeout = 30 * time.Second
)

// AnalyzerConfig tunes proposal generation.
type AnalyzerConfig struct {
	// ProposalTTL is how long a proposal stays actionable (default 30m).
	ProposalTTL time.Duration

	// GenerateTimeout bounds the AI call; on timeout the heuristic
	// fallback produces the proposal instead (default 30s).
	GenerateTimeout time.Duration

	// MaxSiblings caps sibling tasks included in the prompt (default 20).
	MaxSiblings int
}

// Analyzer produces decomposition proposals. It never fails because of
// the AI backend: any generation or parsing failure falls back to the
// deterministic heuristic split.
type Analyzer struct {
	gatherer  *Gatherer
	generator ai.Generator
	store     *Store
	cfg       AnalyzerConfig
	logger    *zap.Logger

	tracer         trace.Tracer
	proposalsTotal metric.Int64Counter
	fallbacksTotal metric.Int64Counter
}

// NewAnalyzer creates an analyzer. A nil logger is replaced with a nop
// logger; zero config fields get defaults.
func NewAnalyzer(gatherer *Gatherer, generator ai.Generator, store *Store, cfg AnalyzerConfig, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = DefaultProposalTTL
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = DefaultGenerateTimeout
	}
	if cfg.MaxSiblings <= 0 {
		cfg.MaxSiblings = DefaultMaxSiblings
	}

	a := &Analyzer{
		gatherer:  gatherer,
		generator: generator,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
	}

	meter := otel.Meter(instrumentationName)
	var err error
	a.proposalsTotal, err = meter.Int64Counter("decompose.proposals.total",
		metric.WithDescription("Decomposition proposals created, by source"))
	if err != nil {
		logger.Warn("failed to create proposals counter", zap.Error(err))
	}
	a.fallbacksTotal, err = meter.Int64Counter("decompose.fallbacks.total",
		metric.WithDescription("Proposals that fell back to the heuristic split"))
	if err != nil {
		logger.Warn("failed to create fallbacks counter", zap.Error(err))
	}

	return a
}

// Propose builds and stores a pending proposal for the task. Errors are
// limited to context gathering and storage; AI failures degrade to the
// heuristic split.
func (a *Analyzer) Propose(ctx context.Context, taskID int64) (*Proposal, error) {
	ctx, span := a.tracer.Start(ctx, "decompose.Propose",
		trace.WithAttributes(attribute.Int64("task.id", taskID)))
	defer span.End()

	bundle, err := a.gatherer.Gather(ctx, taskID)
	if err != nil {
		return nil, err
	}

	analysis := a.analyze(ctx, bundle)

	now := time.Now().UTC()
	p := &Proposal{
		ID:              uuid.NewString(),
		OriginalTaskID:  bundle.Task.ID,
		ProjectID:       bundle.Task.ProjectID,
		Subtasks:        analysis.Subtasks,
		Reasoning:       analysis.Reasoning,
		ConfidenceScore: analysis.Confidence,
		ImpactNote:      analysis.ImpactNote,
		Source:          analysis.source,
		Status:          StatusPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(a.cfg.ProposalTTL),
	}
	if err := a.store.Put(p); err != nil {
		return nil, fmt.Errorf("store proposal: %w", err)
	}

	if a.proposalsTotal != nil {
		a.proposalsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("source", string(p.Source))))
	}
	a.logger.Info("proposal created",
		zap.String("proposal_id", p.ID),
		zap.Int64("task_id", taskID),
		zap.String("source", string(p.Source)),
		zap.Int("subtasks", len(p.Subtasks)),
		zap.Float64("confidence", p.ConfidenceScore))

	return p, nil
}

// sourcedAnalysis pairs a parsed analysis with the path that produced it.
type sourcedAnalysis struct {
	parsedAnalysis
	source Source
}

// analyze runs the AI path and degrades to the heuristic on any failure.
func (a *Analyzer) analyze(ctx context.Context, bundle *Bundle) sourcedAnalysis {
	genCtx, cancel := context.WithTimeout(ctx, a.cfg.GenerateTimeout)
	defer cancel()

	prompt := buildSplitPrompt(bundle, a.cfg.MaxSiblings)
	raw, err := a.generator.Generate(genCtx, prompt)
	if err == nil {
		parsed, perr := parseAnalysis(raw)
		if perr == nil {
			return sourcedAnalysis{parsedAnalysis: *parsed, source: SourceAI}
		}
		err = perr
	}

	a.logger.Warn("AI analysis failed, using heuristic split",
		zap.Int64("task_id", bundle.Task.ID),
		zap.Error(err))
	if a.fallbacksTotal != nil {
		a.fallbacksTotal.Add(ctx, 1)
	}

	return sourcedAnalysis{
		parsedAnalysis: parsedAnalysis{
			Subtasks:   heuristicSplit(bundle.Task),
			Confidence: fallbackConfidence,
			ImpactNote: fallbackImpactNote,
		},
		source: SourceFallback,
	}
}
