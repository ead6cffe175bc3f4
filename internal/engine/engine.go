package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnavailable  = errors.New("analysis engine unavailable")
	ErrUnknownCombo = errors.New("unknown load combination")
	ErrClosed       = errors.New("engine session closed")
)

// StoryDriftResults is the engine's story drift output for the combinations
// currently selected for output. The slices are parallel and must all hold
// NumberResults entries.
type StoryDriftResults struct {
	NumberResults int       `json:"number_results"`
	Stories       []string  `json:"stories"`
	LoadCases     []string  `json:"load_cases"`
	StepTypes     []string  `json:"step_types"`
	Directions    []string  `json:"directions"`
	Drifts        []float64 `json:"drifts"`
}

// JointDriftResults is the engine's joint displacement output for the
// selected combinations.
type JointDriftResults struct {
	NumberResults int       `json:"number_results"`
	Stories       []string  `json:"stories"`
	Labels        []string  `json:"labels"`
	LoadCases     []string  `json:"load_cases"`
	StepTypes     []string  `json:"step_types"`
	DispX         []float64 `json:"disp_x"`
	DispY         []float64 `json:"disp_y"`
	DriftX        []float64 `json:"drift_x"`
	DriftY        []float64 `json:"drift_y"`
}

// Session is an open model on the analysis engine. Output selection is
// mutable state of the session; callers go through a Handle.
type Session interface {
	Combinations(ctx context.Context) ([]string, error)
	DeselectAll(ctx context.Context) error
	SelectCombo(ctx context.Context, name string) error
	StoryDrifts(ctx context.Context) (StoryDriftResults, error)
	JointDrifts(ctx context.Context) (JointDriftResults, error)
	Close() error
}

// Fetcher returns raw results for exactly one combination.
type Fetcher interface {
	StoryDrifts(ctx context.Context, combo string) (StoryDriftResults, error)
	JointDrifts(ctx context.Context, combo string) (JointDriftResults, error)
}

// FetchFailure records a combination whose results could not be fetched.
type FetchFailure struct {
	Combo string `json:"combo"`
	Err   string `json:"error"`
}

func NewFetchFailure(combo string, err error) FetchFailure {
	return FetchFailure{Combo: combo, Err: err.Error()}
}

// Handle is the single owner of a Session. Every fetch resets the output
// selection, selects one combination and reads results while holding the
// lock, so no two fetches interleave on the engine.
type Handle struct {
	mu     sync.Mutex
	s      Session
	closed bool
}

func NewHandle(s Session) *Handle {
	return &Handle{s: s}
}

func (h *Handle) Combinations(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	names, err := h.s.Combinations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list combinations: %w", err)
	}
	return names, nil
}

func (h *Handle) StoryDrifts(ctx context.Context, combo string) (StoryDriftResults, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.selectOnly(ctx, combo); err != nil {
		return StoryDriftResults{}, err
	}
	res, err := h.s.StoryDrifts(ctx)
	if err != nil {
		return StoryDriftResults{}, fmt.Errorf("story drifts for %q: %w", combo, err)
	}
	return res, nil
}

func (h *Handle) JointDrifts(ctx context.Context, combo string) (JointDriftResults, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.selectOnly(ctx, combo); err != nil {
		return JointDriftResults{}, err
	}
	res, err := h.s.JointDrifts(ctx)
	if err != nil {
		return JointDriftResults{}, fmt.Errorf("joint drifts for %q: %w", combo, err)
	}
	return res, nil
}

// selectOnly must be called with h.mu held.
func (h *Handle) selectOnly(ctx context.Context, combo string) error {
	if h.closed {
		return ErrClosed
	}
	if err := h.s.DeselectAll(ctx); err != nil {
		return fmt.Errorf("deselect output: %w", err)
	}
	if err := h.s.SelectCombo(ctx, combo); err != nil {
		return fmt.Errorf("select %q for output: %w", combo, err)
	}
	return nil
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.s.Close()
}

// Selection is the output selection kept by in-process sessions.
type Selection struct {
	names map[string]struct{}
}

func (s *Selection) Clear() {
	s.names = nil
}

func (s *Selection) Add(name string) {
	if s.names == nil {
		s.names = make(map[string]struct{})
	}
	s.names[name] = struct{}{}
}

func (s *Selection) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

func (s *Selection) Len() int {
	return len(s.names)
}

// Names returns the selected names in sorted order.
func (s *Selection) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
