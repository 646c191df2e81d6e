package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView exposes the emergency pause switches maintained by the
// configuration collaborator.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the named module is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
