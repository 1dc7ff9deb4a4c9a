package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sandevgo/hackpal/internal/core"
)

// Binding ties a chat conversation to its current session id. Reset moves
// the conversation to a fresh session; old turns stay stored.
type Binding struct {
	mu   sync.RWMutex
	base string
	id   string
}

var _ core.ChatSession = (*Binding)(nil)

func NewBinding(base string) *Binding {
	return &Binding{base: base, id: base}
}

func (b *Binding) SessionID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.id
}

func (b *Binding) Reset() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.id = b.base + "-" + uuid.NewString()[:8]
	return b.id
}

// Bindings holds one Binding per chat key.
type Bindings struct {
	mu    sync.Mutex
	items map[string]*Binding
}

func NewBindings() *Bindings {
	return &Bindings{items: make(map[string]*Binding)}
}

// For returns the binding of key, creating it with key as session id.
func (b *Bindings) For(key string) *Binding {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bind, ok := b.items[key]; ok {
		return bind
	}
	bind := NewBinding(key)
	b.items[key] = bind
	return bind
}
