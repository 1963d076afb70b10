package pipeline

import (
	"io"
	"os"
	"sync"

	"stockperf/internal/analysis"
	"stockperf/internal/config"
	"stockperf/internal/timeseries"
)

// State is the data handed from step to step during one session
type State struct {
	RunID  string
	Config *config.Config
	Paths  *config.Paths

	// Stdout receives the price preview and the labelled test results
	Stdout io.Writer

	Prices  *timeseries.Frame
	Returns *timeseries.Frame
	Summary *analysis.Summary
	Charts  []string

	mu    sync.RWMutex
	steps map[string]*StepState
	order []string
}

// NewState creates the session state. A nil stdout prints to os.Stdout.
func NewState(runID string, cfg *config.Config, paths *config.Paths, stdout io.Writer) *State {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &State{
		RunID:  runID,
		Config: cfg,
		Paths:  paths,
		Stdout: stdout,
		steps:  make(map[string]*StepState),
	}
}

// StepState returns the state of a step, creating it on first use
func (s *State) StepState(id, name string) *StepState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.steps[id]; ok {
		return st
	}
	st := NewStepState(id, name)
	s.steps[id] = st
	s.order = append(s.order, id)
	return st
}

// GetStepState returns the state of a step that has been registered
func (s *State) GetStepState(id string) (*StepState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.steps[id]
	return st, ok
}

// StepStates returns all step states in registration order
func (s *State) StepStates() []*StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*StepState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.steps[id])
	}
	return out
}
