package policy

import (
	"fmt"
	"sync/atomic"

	"github.com/ppiankov/hazardwatch/internal/model"
)

// Live is an engine that can be swapped while readers are assessing.
// A failed reload keeps the previous engine.
type Live struct {
	path string
	cur  atomic.Pointer[snapshot]
}

type snapshot struct {
	cfg    *Config
	engine *Engine
	hash   string
}

// NewLive loads path (empty means the default location) and builds the
// first engine.
func NewLive(path string) (*Live, error) {
	l := &Live{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the config file and swaps the engine in.
func (l *Live) Reload() error {
	cfg, hash, err := LoadConfigWithHash(l.path)
	if err != nil {
		return err
	}
	engine, err := NewEngine(cfg)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	l.cur.Store(&snapshot{cfg: cfg, engine: engine, hash: hash})
	return nil
}

// Path is the watched config path.
func (l *Live) Path() string {
	if l.path == "" {
		return DefaultPath()
	}
	return l.path
}

// Current returns the config, its engine and its hash from one load, so a
// concurrent reload cannot pair one config's engine with another's hash.
func (l *Live) Current() (*Config, *Engine, string) {
	s := l.cur.Load()
	return s.cfg, s.engine, s.hash
}

// Engine returns the current engine.
func (l *Live) Engine() *Engine { return l.cur.Load().engine }

// Config returns the current config. Callers must not modify it.
func (l *Live) Config() *Config { return l.cur.Load().cfg }

// Hash returns the current config hash.
func (l *Live) Hash() string { return l.cur.Load().hash }

// Assess scores with whichever engine is current.
func (l *Live) Assess(ev model.Evidence) (Assessment, error) {
	return l.Engine().Assess(ev)
}
