// Package transport carries messages between an indexing engine and the
// background side that caches and exports its table of contents.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hpungsan/chattoc/internal/config"
	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/section"
)

// Message types.
const (
	TypeTogglePanel      = "togglePanel"
	TypeOptionsUpdate    = "optionsUpdate"
	TypeUpdateToc        = "updateToc"
	TypeRequestTocExport = "requestTocExport"
)

// Message is the envelope exchanged over every transport.
type Message struct {
	Type     string            `json:"type"`
	Page     string            `json:"page,omitempty"`
	Sections []section.Summary `json:"sections,omitempty"`
	Options  json.RawMessage   `json:"options,omitempty"`
}

// MarshalJSON keeps the sections array on updateToc messages, so an empty
// index goes out as [] rather than without a payload.
func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	if m.Type != TypeUpdateToc {
		return json.Marshal(plain(m))
	}
	sections := m.Sections
	if sections == nil {
		sections = []section.Summary{}
	}
	return json.Marshal(struct {
		plain
		Sections []section.Summary `json:"sections"`
	}{plain(m), sections})
}

// Response answers request-style messages such as requestTocExport.
type Response struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// TogglePanel builds a togglePanel message.
func TogglePanel() Message {
	return Message{Type: TypeTogglePanel}
}

// UpdateToc builds the message an engine sends after every rebuild.
func UpdateToc(page string, sections []section.Summary) Message {
	if sections == nil {
		sections = []section.Summary{}
	}
	return Message{Type: TypeUpdateToc, Page: page, Sections: sections}
}

// RequestTocExport builds an export request for page.
func RequestTocExport(page string) Message {
	return Message{Type: TypeRequestTocExport, Page: page}
}

// OptionsUpdate builds an optionsUpdate message carrying opts.
func OptionsUpdate(opts *config.Options) (Message, error) {
	data, err := json.Marshal(opts)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: TypeOptionsUpdate, Options: data}, nil
}

// PartialOptions decodes the options payload. Missing or malformed payloads
// yield empty options, which merge to the defaults.
func (m Message) PartialOptions() *config.Options {
	if len(m.Options) == 0 {
		return &config.Options{}
	}
	opts, err := config.Parse(m.Options)
	if err != nil {
		return &config.Options{}
	}
	return opts
}

// Sender delivers a message and returns the receiver's response, if any.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Response, error)
}

// Handler processes one message type.
type Handler func(ctx context.Context, msg Message) (*Response, error)

// Bus is an in-process Sender that routes messages by type.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Handle registers h for msgType. Several handlers may share a type; they run
// in registration order and the last non-nil response wins.
func (b *Bus) Handle(msgType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[msgType] = append(b.handlers[msgType], h)
}

// Send dispatches msg to every handler registered for its type.
func (b *Bus) Send(ctx context.Context, msg Message) (*Response, error) {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[msg.Type]...)
	b.mu.RUnlock()

	if len(hs) == 0 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("no handler for message type %q", msg.Type))
	}

	var resp *Response
	for _, h := range hs {
		r, err := h(ctx, msg)
		if err != nil {
			return nil, err
		}
		if r != nil {
			resp = r
		}
	}
	return resp, nil
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) (*Response, error)

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg Message) (*Response, error) {
	return f(ctx, msg)
}

// Discard is a Sender that drops every message.
var Discard Sender = SenderFunc(func(context.Context, Message) (*Response, error) {
	return nil, nil
})
