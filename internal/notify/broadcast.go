package notify

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pamdev00/price/internal/undo"
	ws "github.com/pamdev00/price/internal/websocket"
)

// Sink receives outbound messages; *websocket.Hub satisfies it.
type Sink interface {
	Broadcast(msg ws.Message)
}

// Prompt is a confirmation waiting for the user's answer.
type Prompt struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Action    string    `json:"action"`
	Danger    bool      `json:"danger"`
	CreatedAt time.Time `json:"created_at"`
}

type pendingPrompt struct {
	prompt   Prompt
	onAccept func()
}

// Broadcaster pushes notices, undo offers and confirmation requests to
// connected clients. Confirmations are parked under an id until a client
// accepts or dismisses them.
type Broadcaster struct {
	mu      sync.Mutex
	sink    Sink
	pending map[string]pendingPrompt
	clock   func() time.Time
	logger  *slog.Logger
}

// NewBroadcaster creates a Broadcaster writing to sink.
func NewBroadcaster(sink Sink, clock func() time.Time, logger *slog.Logger) *Broadcaster {
	if clock == nil {
		clock = time.Now
	}
	return &Broadcaster{
		sink:    sink,
		pending: make(map[string]pendingPrompt),
		clock:   clock,
		logger:  logger,
	}
}

func (b *Broadcaster) Confirm(req Request) {
	p := Prompt{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Message:   req.Message,
		Action:    req.Action,
		Danger:    req.Danger,
		CreatedAt: b.clock(),
	}

	b.mu.Lock()
	b.pending[p.ID] = pendingPrompt{prompt: p, onAccept: req.OnAccept}
	b.mu.Unlock()

	b.logger.Debug("confirmation requested", "prompt", p.ID, "title", p.Title)
	b.sink.Broadcast(ws.NewMessage("prompt", "confirm", 0, map[string]any{
		"title":   p.Title,
		"message": p.Message,
		"action":  p.Action,
		"danger":  p.Danger,
	}).WithRef(p.ID))
}

func (b *Broadcaster) Notice(msg string) {
	b.sink.Broadcast(ws.NewMessage("notice", "show", 0, map[string]any{"message": msg}))
}

func (b *Broadcaster) OfferUndo(msg string, h undo.Handle) {
	b.sink.Broadcast(ws.NewMessage("undo", "offer", 0, map[string]any{
		"message":    msg,
		"expires_at": h.ExpiresAt,
	}).WithRef(h.ID))
}

// Accept runs the continuation of a pending prompt. It reports false for an
// unknown or already answered prompt. The continuation runs on the caller's
// goroutine, so callers hold whatever lock guards the core.
func (b *Broadcaster) Accept(id string) bool {
	b.mu.Lock()
	p, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()
	if !ok {
		return false
	}

	b.sink.Broadcast(ws.NewMessage("prompt", "accepted", 0, nil).WithRef(id))
	if p.onAccept != nil {
		p.onAccept()
	}
	return true
}

// Dismiss drops a pending prompt without running it.
func (b *Broadcaster) Dismiss(id string) bool {
	b.mu.Lock()
	_, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()
	if ok {
		b.sink.Broadcast(ws.NewMessage("prompt", "dismissed", 0, nil).WithRef(id))
	}
	return ok
}

// Pending returns the prompts still waiting, oldest first.
func (b *Broadcaster) Pending() []Prompt {
	b.mu.Lock()
	defer b.mu.Unlock()

	prompts := make([]Prompt, 0, len(b.pending))
	for _, p := range b.pending {
		prompts = append(prompts, p.prompt)
	}
	sort.Slice(prompts, func(i, j int) bool {
		if prompts[i].CreatedAt.Equal(prompts[j].CreatedAt) {
			return prompts[i].ID < prompts[j].ID
		}
		return prompts[i].CreatedAt.Before(prompts[j].CreatedAt)
	})
	return prompts
}
