// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"sync"

	"github.com/muesli/termenv"
)

// Mode identifies a terminal color mode. The zero value is light, so
// an unset stream reports light by construction — facet never renders
// dark until the terminal is known to be dark.
type Mode int

const (
	// ModeLight is the default terminal color mode.
	ModeLight Mode = iota
	// ModeDark is reported for dark terminal backgrounds.
	ModeDark
)

// String returns "light" or "dark".
func (mode Mode) String() string {
	if mode == ModeDark {
		return "dark"
	}
	return "light"
}

// ThemeFor returns the built-in theme for a mode.
func ThemeFor(mode Mode) Theme {
	if mode == ModeDark {
		return DarkTheme
	}
	return LightTheme
}

// DetectMode probes the terminal background color via termenv. A nil
// output, or an output whose background cannot be determined, leaves
// the default: light.
func DetectMode(output *termenv.Output) Mode {
	if output == nil {
		return ModeLight
	}
	if output.HasDarkBackground() {
		return ModeDark
	}
	return ModeLight
}

// ThemeSource is the theme-change notification stream. Observers
// subscribe for mode changes; Set updates the current mode before any
// subscriber is notified, so an observer that reads Mode on delivery
// always sees the new value.
//
// Delivery is non-blocking: each subscriber has a small buffer and
// changes are dropped when it is full. Theme changes are idempotent
// state, not a log — a dropped notification is repaired by the next
// one, and an observer can always read Mode directly.
type ThemeSource struct {
	mutex       sync.RWMutex
	mode        Mode
	subscribers []chan Mode
}

// NewThemeSource creates a stream reporting ModeLight until the first
// Set.
func NewThemeSource() *ThemeSource {
	return &ThemeSource{}
}

// Mode returns the current mode.
func (source *ThemeSource) Mode() Mode {
	source.mutex.RLock()
	defer source.mutex.RUnlock()
	return source.mode
}

// Theme returns the built-in theme for the current mode.
func (source *ThemeSource) Theme() Theme {
	return ThemeFor(source.Mode())
}

// Set publishes a mode change. The stored mode is updated before
// subscribers are notified. Setting the current mode again is a no-op
// (no notification).
func (source *ThemeSource) Set(mode Mode) {
	source.mutex.Lock()
	if mode == source.mode {
		source.mutex.Unlock()
		return
	}
	source.mode = mode
	// Snapshot the subscriber list under lock; dispatch after release.
	subscribers := make([]chan Mode, len(source.subscribers))
	copy(subscribers, source.subscribers)
	source.mutex.Unlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- mode:
		default:
			// Buffer full — drop. The subscriber reads Mode() on its
			// next delivery and catches up.
		}
	}
}

// Subscribe registers an observer. The returned channel receives each
// mode change until Unsubscribe.
func (source *ThemeSource) Subscribe() <-chan Mode {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	channel := make(chan Mode, 4)
	source.subscribers = append(source.subscribers, channel)
	return channel
}

// Unsubscribe removes an observer and closes its channel. A panel's
// subscription ends when the panel is torn down. Unknown channels are
// ignored.
func (source *ThemeSource) Unsubscribe(channel <-chan Mode) {
	source.mutex.Lock()
	defer source.mutex.Unlock()
	for index, subscriber := range source.subscribers {
		if subscriber == channel {
			source.subscribers = append(source.subscribers[:index], source.subscribers[index+1:]...)
			close(subscriber)
			return
		}
	}
}
