package pty

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/keyweave/keyweave/internal/keycode"
)

// Emitter turns the engine's output into PTY writes. It satisfies the
// pipeline's emitter contract: it tracks the effective modifier mask from
// Modifiers calls and encodes each key press under that mask. Releases
// carry no terminal representation and are dropped.
type Emitter struct {
	manager  *Manager
	keyDelay time.Duration
	log      zerolog.Logger
	mods     keycode.Mods
}

// NewEmitter creates a PTY emitter
func NewEmitter(manager *Manager, keyDelay time.Duration, log zerolog.Logger) *Emitter {
	return &Emitter{
		manager:  manager,
		keyDelay: keyDelay,
		log:      log,
	}
}

// Modifiers records the effective modifier mask for subsequent presses
func (e *Emitter) Modifiers(m keycode.Mods) {
	e.mods = m
}

// Key writes one key transition to the PTY
func (e *Emitter) Key(kc keycode.Keycode, pressed bool) {
	if !pressed {
		return
	}

	data := Encode(kc, e.mods)
	if data == nil {
		return
	}

	if err := e.manager.Write(data); err != nil {
		e.log.Error().Err(err).Stringer("key", kc).Msg("pty write failed")
		return
	}

	// Optional delay between keystrokes for TUIs that need it
	if e.keyDelay > 0 {
		time.Sleep(e.keyDelay)
	}
}
