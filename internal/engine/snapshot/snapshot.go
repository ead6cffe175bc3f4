// Package snapshot serves engine results from a document exported after an
// analysis run, so checks can be repeated without the engine attached.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"Storey/internal/engine"

	"gopkg.in/yaml.v3"
)

type StoryDrift struct {
	Story     string  `json:"story" yaml:"story"`
	LoadCase  string  `json:"load_case" yaml:"load_case"`
	StepType  string  `json:"step_type,omitempty" yaml:"step_type,omitempty"`
	Direction string  `json:"direction" yaml:"direction"`
	Drift     float64 `json:"drift" yaml:"drift"`
}

type JointDrift struct {
	Label    string  `json:"label" yaml:"label"`
	Story    string  `json:"story" yaml:"story"`
	LoadCase string  `json:"load_case" yaml:"load_case"`
	StepType string  `json:"step_type,omitempty" yaml:"step_type,omitempty"`
	DispX    float64 `json:"disp_x" yaml:"disp_x"`
	DispY    float64 `json:"disp_y" yaml:"disp_y"`
	DriftX   float64 `json:"drift_x,omitempty" yaml:"drift_x,omitempty"`
	DriftY   float64 `json:"drift_y,omitempty" yaml:"drift_y,omitempty"`
}

// Snapshot is the result set of one analysis run of one model.
type Snapshot struct {
	Model        string       `json:"model" yaml:"model"`
	Combinations []string     `json:"combinations" yaml:"combinations"`
	StoryDrifts  []StoryDrift `json:"story_drifts" yaml:"story_drifts"`
	JointDrifts  []JointDrift `json:"joint_drifts" yaml:"joint_drifts"`
}

// Decode reads a snapshot in YAML or JSON.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("decode snapshot: empty document")
		}
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func (s *Snapshot) Validate() error {
	seen := make(map[string]bool, len(s.Combinations))
	for _, c := range s.Combinations {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("snapshot: empty combination name")
		}
		if seen[c] {
			return fmt.Errorf("snapshot: duplicate combination %q", c)
		}
		seen[c] = true
	}
	return nil
}

// Session is an engine.Session over a snapshot.
type Session struct {
	snap   *Snapshot
	sel    engine.Selection
	closed bool
}

func New(s *Snapshot) *Session {
	return &Session{snap: s}
}

// Open lets a snapshot stand in as an engine.Opener for its own model.
func (s *Snapshot) Open(ctx context.Context, model string) (engine.Session, error) {
	if s.Model != "" && model != s.Model {
		return nil, fmt.Errorf("%w: snapshot holds model %q, not %q", engine.ErrUnavailable, s.Model, model)
	}
	return New(s), nil
}

func (s *Session) Combinations(ctx context.Context) ([]string, error) {
	if s.closed {
		return nil, engine.ErrClosed
	}
	out := make([]string, len(s.snap.Combinations))
	copy(out, s.snap.Combinations)
	return out, nil
}

func (s *Session) DeselectAll(ctx context.Context) error {
	if s.closed {
		return engine.ErrClosed
	}
	s.sel.Clear()
	return nil
}

func (s *Session) SelectCombo(ctx context.Context, name string) error {
	if s.closed {
		return engine.ErrClosed
	}
	for _, c := range s.snap.Combinations {
		if c == name {
			s.sel.Add(name)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", engine.ErrUnknownCombo, name)
}

func (s *Session) StoryDrifts(ctx context.Context) (engine.StoryDriftResults, error) {
	if s.closed {
		return engine.StoryDriftResults{}, engine.ErrClosed
	}
	var res engine.StoryDriftResults
	for _, d := range s.snap.StoryDrifts {
		if !s.sel.Has(d.LoadCase) {
			continue
		}
		res.Stories = append(res.Stories, d.Story)
		res.LoadCases = append(res.LoadCases, d.LoadCase)
		res.StepTypes = append(res.StepTypes, d.StepType)
		res.Directions = append(res.Directions, d.Direction)
		res.Drifts = append(res.Drifts, d.Drift)
	}
	res.NumberResults = len(res.Stories)
	return res, nil
}

func (s *Session) JointDrifts(ctx context.Context) (engine.JointDriftResults, error) {
	if s.closed {
		return engine.JointDriftResults{}, engine.ErrClosed
	}
	var res engine.JointDriftResults
	for _, j := range s.snap.JointDrifts {
		if !s.sel.Has(j.LoadCase) {
			continue
		}
		res.Stories = append(res.Stories, j.Story)
		res.Labels = append(res.Labels, j.Label)
		res.LoadCases = append(res.LoadCases, j.LoadCase)
		res.StepTypes = append(res.StepTypes, j.StepType)
		res.DispX = append(res.DispX, j.DispX)
		res.DispY = append(res.DispY, j.DispY)
		res.DriftX = append(res.DriftX, j.DriftX)
		res.DriftY = append(res.DriftY, j.DriftY)
	}
	res.NumberResults = len(res.Stories)
	return res, nil
}

func (s *Session) Close() error {
	s.closed = true
	return nil
}
