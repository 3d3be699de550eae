package sales

import (
	"errors"
	"sync"
)

// ErrPreviewNotFound is returned when a token names no pending preview,
// either because it never existed or because it was already applied or
// discarded. Tokens are single use, which is the caller-side guard against
// applying the same preview twice.
var ErrPreviewNotFound = errors.New("sales: preview not found")

// Registry holds previews awaiting an apply-or-discard decision, keyed by
// token.
type Registry struct {
	mu       sync.Mutex
	previews map[string]*Preview
}

// NewRegistry builds an empty preview registry.
func NewRegistry() *Registry {
	return &Registry{previews: make(map[string]*Preview)}
}

// Put stores a preview under its token.
func (r *Registry) Put(preview *Preview) {
	if preview == nil || preview.Token == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previews[preview.Token] = preview
}

// Take removes and returns the preview for the token.
func (r *Registry) Take(token string) (*Preview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	preview, ok := r.previews[token]
	if !ok {
		return nil, ErrPreviewNotFound
	}
	delete(r.previews, token)
	return preview, nil
}

// Discard drops the preview for the token. Discarding has no side effects;
// previews perform no writes.
func (r *Registry) Discard(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.previews[token]
	delete(r.previews, token)
	return ok
}
