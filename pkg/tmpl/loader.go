package tmpl

import "time"

// Loader resolves template names to source text. Implementations must be
// safe for concurrent use when the Engine is shared between goroutines.
type Loader interface {
	// Source returns the template source, or an error matching
	// ErrTemplateNotFound when the name is unknown.
	Source(name string) (string, error)
	// LastModified reports when the source of name last changed. Loaders
	// that cannot tell return the zero time.
	LastModified(name string) (time.Time, error)
}

// MemoryLoader serves templates from a map. The zero time is reported as
// modification time.
type MemoryLoader map[string]string

func (m MemoryLoader) Source(name string) (string, error) {
	if s, ok := m[name]; ok {
		return s, nil
	}
	return "", NotFoundError{Name: name}
}

func (m MemoryLoader) LastModified(name string) (time.Time, error) {
	if _, ok := m[name]; !ok {
		return time.Time{}, NotFoundError{Name: name}
	}
	return time.Time{}, nil
}
