package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"stockperf/internal/infrastructure"
	"stockperf/internal/marketdata"
)

// Options wires the runner to its collaborators. Nil fields get no-op defaults.
type Options struct {
	Provider marketdata.Provider
	Tracer   trace.Tracer
	Metrics  *infrastructure.PipelineMetrics
	Logger   *slog.Logger
}

// Runner executes the session steps strictly in order
type Runner struct {
	state   *State
	steps   []Step
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// NewRunner creates a runner with the standard step sequence:
// collect, returns, analysis, charts, export.
func NewRunner(state *State, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := infrastructure.WithComponent(opts.Logger, "pipeline")

	steps := []Step{
		NewCollectStep(opts.Provider, opts.Metrics, opts.Logger),
		NewReturnsStep(logger),
		NewAnalysisStep(),
		NewChartsStep(logger),
		NewExportStep(logger),
	}
	return NewRunnerWithSteps(state, opts, steps...)
}

// NewRunnerWithSteps creates a runner over an explicit step list
func NewRunnerWithSteps(state *State, opts Options, steps ...Step) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = tracenoop.NewTracerProvider().Tracer("")
	}
	if opts.Metrics == nil {
		opts.Metrics = infrastructure.NoopMetrics()
	}

	for _, step := range steps {
		state.StepState(step.ID(), step.Name())
	}

	return &Runner{
		state:   state,
		steps:   steps,
		tracer:  opts.Tracer,
		metrics: opts.Metrics,
		logger:  infrastructure.WithComponent(opts.Logger, "pipeline"),
	}
}

// Run executes every step. The first failure stops the session and is
// returned wrapped with the step ID. A state without a run ID takes the
// one carried by ctx, or a fresh one.
func (r *Runner) Run(ctx context.Context) error {
	if r.state.RunID == "" {
		ctx = infrastructure.EnsureRunID(ctx)
		r.state.RunID = infrastructure.GetRunID(ctx)
	} else {
		ctx = infrastructure.WithRunID(ctx, r.state.RunID)
	}
	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run.id", r.state.RunID),
			attribute.Int("pipeline.steps", len(r.steps)),
		))
	defer span.End()

	start := time.Now()
	r.logger.InfoContext(ctx, "Pipeline started", slog.Int("steps", len(r.steps)))

	for _, step := range r.steps {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled")
			return fmt.Errorf("pipeline cancelled before %s: %w", step.ID(), err)
		}
		if err := r.runStep(ctx, step); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.ErrorContext(ctx, "Pipeline failed",
				slog.String("step", step.ID()),
				slog.String("error", err.Error()),
				slog.String("steps", r.stepSummary()),
				slog.Duration("elapsed", time.Since(start)))
			return fmt.Errorf("step %s: %w", step.ID(), err)
		}
	}

	span.SetStatus(codes.Ok, "")
	r.logger.InfoContext(ctx, "Pipeline completed",
		slog.String("steps", r.stepSummary()),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	st := r.state.StepState(step.ID(), step.Name())

	if s, ok := step.(Skipper); ok {
		if reason := s.SkipReason(r.state); reason != "" {
			st.Skip(reason)
			r.logger.InfoContext(ctx, "Step skipped",
				slog.String("step", step.ID()),
				slog.String("reason", reason))
			return nil
		}
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.step."+step.ID(),
		trace.WithAttributes(
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		))
	defer span.End()

	st.Start()
	r.logger.InfoContext(ctx, "Step started",
		slog.String("step", step.ID()),
		slog.String("name", step.Name()))

	err := step.Execute(ctx, r.state)
	if err != nil {
		st.Fail(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		st.Complete()
		span.SetStatus(codes.Ok, "")
	}
	r.metrics.RecordStep(ctx, step.ID(), st.Duration(), err)

	if err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", st.Duration()))
	return nil
}

// stepSummary renders every step as id=status in run order
func (r *Runner) stepSummary() string {
	states := r.state.StepStates()
	parts := make([]string, 0, len(states))
	for _, st := range states {
		parts = append(parts, st.ID+"="+string(st.GetStatus()))
	}
	return strings.Join(parts, " ")
}
