package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Opener opens a model on the analysis engine.
type Opener interface {
	Open(ctx context.Context, model string) (Session, error)
}

// Manager keeps at most one engine session open. Opening a different model
// closes the current one first, and Use holds the manager for the whole
// callback so checks against the shared session run one at a time.
type Manager struct {
	mu     sync.Mutex
	opener Opener
	log    *zap.Logger
	model  string
	handle *Handle
}

func NewManager(opener Opener, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{opener: opener, log: log}
}

func (m *Manager) Use(ctx context.Context, model string, fn func(*Handle) error) error {
	if model == "" {
		return fmt.Errorf("%w: model name required", ErrUnavailable)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil || m.model != model {
		if err := m.closeLocked(); err != nil {
			m.log.Warn("close previous model", zap.String("model", m.model), zap.Error(err))
		}
		if m.opener == nil {
			return fmt.Errorf("%w: no result source configured", ErrUnavailable)
		}
		s, err := m.opener.Open(ctx, model)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				return err
			}
			return fmt.Errorf("%w: open %q: %v", ErrUnavailable, model, err)
		}
		m.handle = NewHandle(s)
		m.model = model
		m.log.Info("model opened", zap.String("model", model))
	}
	return fn(m.handle)
}

// Model reports the currently open model, if any.
func (m *Manager) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return ""
	}
	return m.model
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *Manager) closeLocked() error {
	if m.handle == nil {
		return nil
	}
	err := m.handle.Close()
	m.log.Info("model closed", zap.String("model", m.model))
	m.handle = nil
	m.model = ""
	return err
}
