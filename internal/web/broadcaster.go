package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/BoothGo/internal/logic/capture"
)

// SSE event names. Log lines use "log"; sequencer events use their own
// type (countdown, flash, captured, dropped, state).
const (
	EventLog  = "log"
	EventDone = "done"
)

// StatusEvent is one message sent to SSE clients.
type StatusEvent struct {
	Time  string `json:"t"`
	Type  string `json:"type"`
	Level string `json:"l,omitempty"`
	Msg   string `json:"msg,omitempty"`
	State string `json:"state,omitempty"`
	Slot  int    `json:"slot,omitempty"`
	Total int    `json:"total,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Message is an encoded StatusEvent ready to be written as SSE.
type Message struct {
	Event string // SSE "event:" field
	Data  string // JSON payload
}

// StatusBroadcaster distributes status messages to multiple SSE clients.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan Message]struct{}
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan Message]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Clients returns the number of subscribed clients.
func (b *StatusBroadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish sends evt to all subscribed clients. A missing timestamp or
// type is filled in. Slow clients may miss messages (non-blocking,
// buffered).
func (b *StatusBroadcaster) Publish(evt StatusEvent) {
	if evt.Time == "" {
		evt.Time = time.Now().Format(time.RFC3339)
	}
	if evt.Type == "" {
		evt.Type = EventLog
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	msg := Message{Event: evt.Type, Data: string(data)}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- msg:
		default:
			// channel full, skip
		}
	}
}

// Broadcast sends a log line to all subscribed clients.
// Messages are sent as JSON: {"t":"...","type":"log","l":"info","msg":"..."}
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.Publish(StatusEvent{Type: EventLog, Level: level, Msg: msg})
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// PublishCapture forwards a sequencer event. It never blocks, so it can
// be registered with capture.Sequencer.Subscribe.
func (b *StatusBroadcaster) PublishCapture(ev capture.Event) {
	evt := StatusEvent{
		Type:  string(ev.Type),
		State: ev.State.String(),
		Slot:  ev.Slot,
		Total: ev.Total,
		Count: ev.Count,
	}
	if ev.Type == capture.EventDropped {
		evt.Level = "warn"
		if ev.Err != nil {
			evt.Msg = ev.Err.Error()
		}
	}
	b.Publish(evt)
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to SSE clients.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps StatusBroadcaster as io.Writer for use with debug.SetOutput.
type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.BroadcastMsg(msg)
	}
	return len(p), nil
}
