// Package status implements the transient status banner every screen
// reports its outcomes through.
package status

import (
	"sync"
	"time"

	"parking-locator/internal/i18n"
)

// Kind is the semantic colour of a status message.
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
)

func (k Kind) String() string {
	if k == KindFailure {
		return "failure"
	}
	return "success"
}

// Message is the content of the banner slot. Key is empty when the text
// came verbatim from the backend.
type Message struct {
	Key  string
	Text string
	Kind Kind
}

// Banner is a single message slot plus a visibility flag. A shown message
// hides itself after the configured duration unless a newer one replaced it.
type Banner struct {
	mu       sync.Mutex
	catalog  *i18n.Catalog
	duration time.Duration
	msg      Message
	visible  bool
	gen      uint64
	timer    *time.Timer
	listener func(Message)
}

// New creates a banner that auto-hides after duration. A zero duration
// keeps messages visible until Dismiss.
func New(catalog *i18n.Catalog, duration time.Duration) *Banner {
	return &Banner{catalog: catalog, duration: duration}
}

// OnShow registers fn to be called with every message that becomes visible.
func (b *Banner) OnShow(fn func(Message)) {
	b.mu.Lock()
	b.listener = fn
	b.mu.Unlock()
}

// Show displays the localized message for key.
func (b *Banner) Show(key string, kind Kind) {
	b.show(Message{Key: key, Text: b.catalog.T(key), Kind: kind})
}

// ShowText displays text as is.
func (b *Banner) ShowText(text string, kind Kind) {
	b.show(Message{Text: text, Kind: kind})
}

func (b *Banner) show(msg Message) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.msg = msg
	b.visible = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.duration > 0 {
		b.timer = time.AfterFunc(b.duration, func() { b.expire(gen) })
	}
	listener := b.listener
	b.mu.Unlock()

	if listener != nil {
		listener(msg)
	}
}

func (b *Banner) expire(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen == gen {
		b.visible = false
		b.timer = nil
	}
}

// Dismiss hides the current message.
func (b *Banner) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible = false
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// Current returns the last message and whether it is still visible.
func (b *Banner) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.msg, b.visible
}
