package core

import "sync"

// PauseSwitches is the runtime view of the per-module emergency switches.
type PauseSwitches struct {
	mu     sync.RWMutex
	paused map[string]bool
}

func NewPauseSwitches() *PauseSwitches {
	return &PauseSwitches{paused: make(map[string]bool)}
}

// IsPaused implements the pause view consumed by the engines.
func (p *PauseSwitches) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[module]
}

// SetPaused flips one module switch.
func (p *PauseSwitches) SetPaused(module string, paused bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused[module] = paused
}

// Snapshot returns a copy of every switch.
func (p *PauseSwitches) Snapshot() map[string]bool {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]bool, len(p.paused))
	for module, paused := range p.paused {
		out[module] = paused
	}
	return out
}
