// Package flags provides feature flag support for controlled feature rollout.
// Flags are read-only after initialization and provide safe defaults for unknown flags.
package flags

import (
	"maps"

	"github.com/zjrosen/barangay/internal/log"
)

// Flag name constants for type-safe flag access.
const (
	// FlagEditDrafts lets ctrl+d in edit mode save to the edit-draft slot.
	FlagEditDrafts = "edit-drafts"

	// FlagDraftIndicator makes the officials list track whether a
	// new-official draft is waiting, refreshed by the draft file watcher.
	FlagDraftIndicator = "draft-indicator"

	// FlagMouse enables mouse reporting (click to pick results and rows).
	FlagMouse = "mouse"
)

// Defaults returns the built-in flag values. Config entries override them.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagEditDrafts:     true,
		FlagDraftIndicator: true,
		FlagMouse:          true,
	}
}

// Registry holds feature flag state loaded from configuration.
// Flags are read-only after initialization.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from Defaults overridden by overrides.
func New(overrides map[string]bool) *Registry {
	merged := Defaults()
	maps.Copy(merged, overrides)
	r := &Registry{flags: merged}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(merged), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Returns false for unknown flags (safe default).
// Returns false when called on nil registry (nil-safe).
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags (for debugging/logging).
// Returns an empty map if the registry is nil.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}
