package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"Storey/internal/engine"
)

type session struct {
	repo   *Repository
	model  string
	sel    engine.Selection
	closed bool
}

func (s *session) Combinations(ctx context.Context) ([]string, error) {
	if s.closed {
		return nil, engine.ErrClosed
	}
	rows, err := s.repo.db.QueryContext(ctx,
		s.repo.rebind("SELECT name FROM combinations WHERE model=? ORDER BY position"), s.model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *session) DeselectAll(ctx context.Context) error {
	if s.closed {
		return engine.ErrClosed
	}
	s.sel.Clear()
	return nil
}

func (s *session) SelectCombo(ctx context.Context, name string) error {
	if s.closed {
		return engine.ErrClosed
	}
	var one int
	err := s.repo.db.QueryRowContext(ctx,
		s.repo.rebind("SELECT 1 FROM combinations WHERE model=? AND name=?"), s.model, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", engine.ErrUnknownCombo, name)
	}
	if err != nil {
		return err
	}
	s.sel.Add(name)
	return nil
}

// selected returns the WHERE clause arguments for the current selection.
func (s *session) selected() (string, []any) {
	names := s.sel.Names()
	args := make([]any, 0, len(names)+1)
	args = append(args, s.model)
	for _, n := range names {
		args = append(args, n)
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "), args
}

func (s *session) StoryDrifts(ctx context.Context) (engine.StoryDriftResults, error) {
	var res engine.StoryDriftResults
	if s.closed {
		return res, engine.ErrClosed
	}
	if s.sel.Len() == 0 {
		return res, nil
	}
	in, args := s.selected()
	rows, err := s.repo.db.QueryContext(ctx, s.repo.rebind(
		"SELECT story, load_case, step_type, direction, drift FROM story_drifts WHERE model=? AND load_case IN ("+in+") ORDER BY position"),
		args...)
	if err != nil {
		return res, err
	}
	defer rows.Close()

	for rows.Next() {
		var story, lc, step, dir string
		var d float64
		if err := rows.Scan(&story, &lc, &step, &dir, &d); err != nil {
			return engine.StoryDriftResults{}, err
		}
		res.Stories = append(res.Stories, story)
		res.LoadCases = append(res.LoadCases, lc)
		res.StepTypes = append(res.StepTypes, step)
		res.Directions = append(res.Directions, dir)
		res.Drifts = append(res.Drifts, d)
	}
	res.NumberResults = len(res.Stories)
	return res, rows.Err()
}

func (s *session) JointDrifts(ctx context.Context) (engine.JointDriftResults, error) {
	var res engine.JointDriftResults
	if s.closed {
		return res, engine.ErrClosed
	}
	if s.sel.Len() == 0 {
		return res, nil
	}
	in, args := s.selected()
	rows, err := s.repo.db.QueryContext(ctx, s.repo.rebind(
		"SELECT label, story, load_case, step_type, disp_x, disp_y, drift_x, drift_y FROM joint_drifts WHERE model=? AND load_case IN ("+in+") ORDER BY position"),
		args...)
	if err != nil {
		return res, err
	}
	defer rows.Close()

	for rows.Next() {
		var label, story, lc, step string
		var dx, dy, drx, dry float64
		if err := rows.Scan(&label, &story, &lc, &step, &dx, &dy, &drx, &dry); err != nil {
			return engine.JointDriftResults{}, err
		}
		res.Labels = append(res.Labels, label)
		res.Stories = append(res.Stories, story)
		res.LoadCases = append(res.LoadCases, lc)
		res.StepTypes = append(res.StepTypes, step)
		res.DispX = append(res.DispX, dx)
		res.DispY = append(res.DispY, dy)
		res.DriftX = append(res.DriftX, drx)
		res.DriftY = append(res.DriftY, dry)
	}
	res.NumberResults = len(res.Labels)
	return res, rows.Err()
}

func (s *session) Close() error {
	s.closed = true
	return nil
}
