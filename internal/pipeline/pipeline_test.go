package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"stockperf/internal/config"
	"stockperf/internal/infrastructure"
	"stockperf/internal/marketdata"
	"stockperf/internal/shared/testutil"
)

// walkProvider serves deterministic geometric random walks on business days
type walkProvider struct {
	days int
	errs map[string]error
}

func (p *walkProvider) Name() string { return "walk" }

func (p *walkProvider) History(ctx context.Context, ticker string, start, end time.Time) ([]marketdata.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.errs[ticker]; err != nil {
		return nil, err
	}

	var seed uint64
	for _, c := range ticker {
		seed = seed*31 + uint64(c)
	}
	rng := rand.New(rand.NewPCG(seed, 2024))

	bars := make([]marketdata.Bar, 0, p.days)
	price := 100.0
	for d := start; d.Before(end) && len(bars) < p.days; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		price *= math.Exp(0.0004 + 0.015*rng.NormFloat64())
		bars = append(bars, marketdata.Bar{Date: d, Close: price, AdjClose: price})
	}
	return bars, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSession(t *testing.T) (*State, *bytes.Buffer) {
	t.Helper()

	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Provider.Workers = 2

	paths, err := config.NewPaths(cfg.Output)
	require.NoError(t, err)

	var stdout bytes.Buffer
	return NewState("run-test", cfg, paths, &stdout), &stdout
}

func TestRunner_FullSession(t *testing.T) {
	state, stdout := testSession(t)
	logger, handler := testutil.NewTestLogger(t)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	runner := NewRunner(state, Options{
		Provider: &walkProvider{days: 300},
		Tracer:   tp.Tracer("test"),
		Logger:   logger,
	})
	require.NoError(t, runner.Run(context.Background()))

	// price preview and the labelled results
	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "Date"))
	assert.Contains(t, out, "[5 rows x 5 columns]")
	for _, label := range []string{
		"T-statistic: ", "Pearson Correlation: ", "F-statistic: ", "ANOVA F-statistic: ",
		"ARCH Test Statistic: ", "ADF Statistic: ",
	} {
		assert.Contains(t, out, label)
	}

	require.NotNil(t, state.Prices)
	assert.Equal(t, 300, state.Prices.Len())
	assert.Equal(t, []string{"AAPL", "AMZN", "GOOGL", "META", "MSFT"}, state.Prices.Columns)
	require.NotNil(t, state.Returns)
	assert.Equal(t, 299, state.Returns.Len())
	require.NotNil(t, state.Summary)
	assert.Equal(t, "run-test", state.Summary.RunID)

	assert.Len(t, state.Charts, 5)
	for _, path := range append(state.Charts, state.Paths.PricesCSV, state.Paths.Workbook, state.Paths.SummaryJSON) {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Positive(t, info.Size(), path)
	}
	assert.Equal(t, state.Paths.GetChartPath(config.ChartDailyReturns), state.Charts[0])

	for _, st := range state.StepStates() {
		assert.Equal(t, StepStatusCompleted, st.GetStatus(), st.ID)
	}

	var names []string
	for _, span := range sr.Ended() {
		names = append(names, span.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"pipeline.run",
		"pipeline.step.analysis",
		"pipeline.step.charts",
		"pipeline.step.collect",
		"pipeline.step.export",
		"pipeline.step.returns",
	}, names)

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Pipeline completed")
	assert.True(t, handler.ContainsAttr("steps",
		"collect=completed returns=completed analysis=completed charts=completed export=completed"))
	testutil.AssertNoErrors(t, handler)
}

func TestRunner_SkipsDisabledSteps(t *testing.T) {
	state, _ := testSession(t)
	state.Config.Output.Charts = false
	state.Config.Output.Workbook = false
	state.Config.Output.SummaryJSON = false
	logger, handler := testutil.NewTestLogger(t)

	runner := NewRunner(state, Options{Provider: &walkProvider{days: 120}, Logger: logger})
	require.NoError(t, runner.Run(context.Background()))

	charts, ok := state.GetStepState(StepIDCharts)
	require.True(t, ok)
	assert.Equal(t, StepStatusSkipped, charts.GetStatus())
	assert.Equal(t, "charts disabled", charts.Message)

	export, ok := state.GetStepState(StepIDExport)
	require.True(t, ok)
	assert.Equal(t, StepStatusSkipped, export.GetStatus())

	assert.Empty(t, state.Charts)
	_, err := os.Stat(state.Paths.Workbook)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(state.Paths.PricesCSV)
	assert.NoError(t, err)

	assert.True(t, handler.ContainsAttr("reason", "charts disabled"))
}

func TestRunner_StopsOnFirstFailure(t *testing.T) {
	state, stdout := testSession(t)
	boom := errors.New("upstream unavailable")
	logger, handler := testutil.NewTestLogger(t)

	runner := NewRunner(state, Options{
		Provider: &walkProvider{days: 120, errs: map[string]error{"GOOGL": boom}},
		Logger:   logger,
	})
	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, strings.HasPrefix(err.Error(), "step collect: "))

	collect, _ := state.GetStepState(StepIDCollect)
	assert.Equal(t, StepStatusFailed, collect.GetStatus())
	assert.ErrorIs(t, collect.Error, boom)
	for _, id := range []string{StepIDReturns, StepIDAnalysis, StepIDCharts, StepIDExport} {
		st, ok := state.GetStepState(id)
		require.True(t, ok)
		assert.Equal(t, StepStatusPending, st.GetStatus(), id)
	}

	assert.Empty(t, stdout.String())
	_, statErr := os.Stat(state.Paths.PricesCSV)
	assert.True(t, os.IsNotExist(statErr))
	testutil.AssertLogContains(t, handler, slog.LevelError, "Pipeline failed")
	assert.True(t, handler.ContainsAttr("steps",
		"collect=failed returns=pending analysis=pending charts=pending export=pending"))
}

func TestRunner_Cancelled(t *testing.T) {
	state, _ := testSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(state, Options{Provider: &walkProvider{days: 50}, Logger: discardLogger()})
	err := runner.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	collect, _ := state.GetStepState(StepIDCollect)
	assert.Equal(t, StepStatusPending, collect.GetStatus())
}

func TestRunner_MissingProvider(t *testing.T) {
	state, _ := testSession(t)

	err := NewRunner(state, Options{Logger: discardLogger()}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no market data provider configured")
}

type recordingStep struct {
	baseStep
	calls *[]string
	err   error
}

func (s *recordingStep) Execute(_ context.Context, _ *State) error {
	*s.calls = append(*s.calls, s.id)
	return s.err
}

func TestRunnerWithSteps_Order(t *testing.T) {
	state, _ := testSession(t)
	var calls []string
	steps := []Step{
		&recordingStep{baseStep: baseStep{id: "a", name: "A"}, calls: &calls},
		&recordingStep{baseStep: baseStep{id: "b", name: "B"}, calls: &calls, err: errors.New("stop")},
		&recordingStep{baseStep: baseStep{id: "c", name: "C"}, calls: &calls},
	}

	err := NewRunnerWithSteps(state, Options{Logger: discardLogger()}, steps...).Run(context.Background())
	require.EqualError(t, err, "step b: stop")
	assert.Equal(t, []string{"a", "b"}, calls)

	var ids []string
	for _, st := range state.StepStates() {
		ids = append(ids, st.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestRunner_RunID(t *testing.T) {
	var calls []string
	step := &recordingStep{baseStep: baseStep{id: "a", name: "A"}, calls: &calls}

	state, _ := testSession(t)
	state.RunID = ""
	ctx := infrastructure.WithRunID(context.Background(), "outer-run")
	require.NoError(t, NewRunnerWithSteps(state, Options{Logger: discardLogger()}, step).Run(ctx))
	assert.Equal(t, "outer-run", state.RunID)

	fresh, _ := testSession(t)
	fresh.RunID = ""
	require.NoError(t, NewRunnerWithSteps(fresh, Options{Logger: discardLogger()}, step).Run(context.Background()))
	assert.Len(t, fresh.RunID, 36)

	kept, _ := testSession(t)
	require.NoError(t, NewRunnerWithSteps(kept, Options{Logger: discardLogger()}, step).Run(ctx))
	assert.Equal(t, "run-test", kept.RunID)
}

func TestStepState_Lifecycle(t *testing.T) {
	st := NewStepState("collect", "Collect prices")
	assert.Equal(t, StepStatusPending, st.GetStatus())
	assert.Zero(t, st.Duration())

	st.Start()
	assert.Equal(t, StepStatusActive, st.GetStatus())
	time.Sleep(time.Millisecond)
	st.Complete()
	assert.Equal(t, StepStatusCompleted, st.GetStatus())
	assert.Positive(t, st.Duration())

	failed := NewStepState("x", "X")
	failed.Start()
	failed.Fail(errors.New("bad"))
	assert.Equal(t, StepStatusFailed, failed.GetStatus())
	assert.EqualError(t, failed.Error, "bad")
}

func TestNewState_DefaultStdout(t *testing.T) {
	cfg := config.Default()
	paths, err := config.NewPaths(config.OutputConfig{Dir: filepath.Join(t.TempDir(), "out")})
	require.NoError(t, err)

	st := NewState("r", cfg, paths, nil)
	assert.Equal(t, os.Stdout, st.Stdout)
}
