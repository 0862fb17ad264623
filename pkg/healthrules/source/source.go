// Package source provides where rule documents come from and keeps a running
// engine's rule store current when the backing file changes.
package source

import (
	"context"
	"fmt"

	"waterwatch-hq/healthimpact/pkg/healthrules"
)

// Source produces a validated rule store.
type Source interface {
	// Load reads and validates the rules. It never returns a partial store.
	Load(ctx context.Context) (*healthrules.Store, error)

	// Describe returns a short human-readable origin for logs.
	Describe() string
}

// New returns a FileSource for path, or the embedded defaults when path is
// empty.
func New(path string) Source {
	if path == "" {
		return EmbeddedSource{}
	}
	return NewFileSource(path)
}

// FileSource loads rules from a YAML or JSON file on disk.
type FileSource struct {
	path string
}

// NewFileSource creates a source that reads path on every Load.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and validates the file.
func (s *FileSource) Load(ctx context.Context) (*healthrules.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return healthrules.LoadFile(s.path)
}

// Path returns the watched file path.
func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Describe() string {
	return fmt.Sprintf("file:%s", s.path)
}

// EmbeddedSource serves the rule set compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Load(ctx context.Context) (*healthrules.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return healthrules.Default()
}

func (EmbeddedSource) Describe() string {
	return healthrules.EmbeddedOrigin
}

// MemorySource serves a document held in memory. It is mainly used in tests
// and by callers that fetch rules from elsewhere.
type MemorySource struct {
	name string
	data []byte
}

// NewMemorySource creates a source from raw document bytes.
func NewMemorySource(name string, data []byte) *MemorySource {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &MemorySource{name: name, data: buf}
}

func (s *MemorySource) Load(ctx context.Context) (*healthrules.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return healthrules.LoadBytes(s.data, s.name)
}

func (s *MemorySource) Describe() string {
	return fmt.Sprintf("memory:%s", s.name)
}
