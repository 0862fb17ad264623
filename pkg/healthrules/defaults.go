package healthrules

import (
	_ "embed"
	"sync"
)

// EmbeddedOrigin is the Origin reported by the store returned from Default.
const EmbeddedOrigin = "embedded"

//go:embed health_rules.yaml
var defaultRules []byte

var (
	defaultOnce  sync.Once
	defaultStore *Store
	defaultErr   error
)

// Default returns the rule set compiled into the binary. The store is built
// once and shared.
func Default() (*Store, error) {
	defaultOnce.Do(func() {
		defaultStore, defaultErr = LoadBytes(defaultRules, EmbeddedOrigin)
	})
	return defaultStore, defaultErr
}

// DefaultBytes returns a copy of the embedded rule document.
func DefaultBytes() []byte {
	out := make([]byte, len(defaultRules))
	copy(out, defaultRules)
	return out
}
