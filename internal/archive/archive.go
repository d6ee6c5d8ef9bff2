// Package archive keeps named snapshots of past comparisons within a bounded
// storage budget.
package archive

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pamdev00/price/internal/ids"
	"github.com/pamdev00/price/internal/model"
	"github.com/pamdev00/price/internal/notify"
	"github.com/pamdev00/price/internal/store"
	"github.com/pamdev00/price/internal/undo"
)

const (
	// MaxSessions is the most sessions kept, newest first.
	MaxSessions = 200
	// EvictBatch is how many of the oldest sessions go after the first failed write.
	EvictBatch = 20
	// FallbackKeep is how many sessions survive a second failed write.
	FallbackKeep = 50
)

var ErrSessionNotFound = errors.New("session not found")

const (
	NoticeStorageExhausted = "Not enough storage. Many old comparisons were removed."
	NoticeStorageFull      = "Not enough storage space to update history."
)

// Tier reports how far down the eviction ladder a save had to go.
type Tier int

const (
	// TierSaved means the first write succeeded.
	TierSaved Tier = iota + 1
	// TierEvicted means the oldest EvictBatch sessions were dropped.
	TierEvicted
	// TierTruncated means history was cut to FallbackKeep sessions.
	TierTruncated
)

// SaveResult describes a completed save.
type SaveResult struct {
	Session model.Session `json:"session"`
	Tier    Tier          `json:"tier"`
	Evicted int           `json:"evicted"`
}

// Config wires an Archive to its collaborators. Only Gateway is required. A
// nil Confirmer accepts every confirmation.
type Config struct {
	Gateway    store.Gateway
	Codec      store.Codec
	Confirmer  notify.Confirmer
	Notifier   notify.Notifier
	IDs        *ids.Sequence
	Clock      func() time.Time
	UndoWindow time.Duration
	Logger     *slog.Logger

	// OnOpenHistory runs when the user accepts the offer to clean up history
	// after an eviction.
	OnOpenHistory func()
}

type removal struct {
	session   model.Session
	index     int
	onDeleted func()
}

// Archive is the newest-first list of saved sessions. It is not safe for
// concurrent use; callers serialize access.
type Archive struct {
	gw            store.Gateway
	codec         store.Codec
	confirmer     notify.Confirmer
	notifier      notify.Notifier
	ids           *ids.Sequence
	clock         func() time.Time
	window        time.Duration
	logger        *slog.Logger
	onOpenHistory func()

	sessions []model.Session
	pending  *undo.Ledger[removal]
}

// New loads the stored sessions and returns an Archive that owns them.
func New(cfg Config) (*Archive, error) {
	if cfg.Codec == nil {
		cfg.Codec = store.JSON{}
	}
	if cfg.Confirmer == nil {
		cfg.Confirmer = notify.AutoAccept{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IDs == nil {
		cfg.IDs = ids.NewSequence(cfg.Clock)
	}
	if cfg.UndoWindow <= 0 {
		cfg.UndoWindow = undo.DefaultWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	sessions, err := store.Load[model.Session](cfg.Gateway, cfg.Codec, store.KeySessions)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	return &Archive{
		gw:            cfg.Gateway,
		codec:         cfg.Codec,
		confirmer:     cfg.Confirmer,
		notifier:      cfg.Notifier,
		ids:           cfg.IDs,
		clock:         cfg.Clock,
		window:        cfg.UndoWindow,
		logger:        cfg.Logger.With("component", "archive"),
		onOpenHistory: cfg.OnOpenHistory,
		sessions:      sessions,
		pending:       undo.NewLedger[removal](cfg.UndoWindow, cfg.Clock),
	}, nil
}

// GetAll returns a deep copy of the sessions, newest first.
func (a *Archive) GetAll() []model.Session {
	out := make([]model.Session, len(a.sessions))
	for i, s := range a.sessions {
		out[i] = cloneSession(s)
	}
	return out
}

// Len returns the number of saved sessions.
func (a *Archive) Len() int {
	return len(a.sessions)
}

// Get returns a copy of the session at index.
func (a *Archive) Get(index int) (model.Session, error) {
	if index < 0 || index >= len(a.sessions) {
		return model.Session{}, fmt.Errorf("session %d: %w", index, ErrSessionNotFound)
	}
	return cloneSession(a.sessions[index]), nil
}

func cloneSession(s model.Session) model.Session {
	s.Products = model.CloneProducts(s.Products)
	return s
}

// SaveSession snapshots products under name and puts it first in history.
//
// When storage refuses the write, the oldest EvictBatch sessions are dropped
// (never the last remaining one) and the write is retried; success then offers
// the user a chance to clean up further. A second refusal cuts history to
// FallbackKeep sessions for a final attempt and shows a notice. The error
// of that final attempt, if any, is returned.
func (a *Archive) SaveSession(name string, products []model.Product) (SaveResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Comparison %d", len(a.sessions)+1)
	}
	session := model.Session{
		Name:     name,
		Products: model.CloneProducts(products),
		SavedAt:  a.clock().UnixMilli(),
	}

	a.sessions = append([]model.Session{session}, a.sessions...)
	if len(a.sessions) > MaxSessions {
		a.sessions = a.sessions[:MaxSessions]
	}
	result := SaveResult{Session: cloneSession(session), Tier: TierSaved}

	err := a.persist()
	if err == nil {
		a.logger.Debug("session saved", "name", name, "products", len(products), "sessions", len(a.sessions))
		return result, nil
	}

	evicted := min(EvictBatch, len(a.sessions)-1)
	a.sessions = a.sessions[:len(a.sessions)-evicted]
	result.Tier = TierEvicted
	result.Evicted = evicted
	a.logger.Warn("persist sessions failed, evicting oldest", "evicted", evicted, "remaining", len(a.sessions), "error", err)

	if err = a.persist(); err == nil {
		a.confirmer.Confirm(notify.Request{
			Title:    "Storage is full",
			Message:  fmt.Sprintf("%d old comparisons were removed to save the new one. Open history to delete more?", evicted),
			Action:   "Open history",
			OnAccept: a.onOpenHistory,
		})
		return result, nil
	}

	if len(a.sessions) > FallbackKeep {
		result.Evicted += len(a.sessions) - FallbackKeep
		a.sessions = a.sessions[:FallbackKeep]
	}
	result.Tier = TierTruncated

	err = a.persist()
	a.notifier.Notice(NoticeStorageExhausted)
	if err != nil {
		a.logger.Error("persist sessions after truncation", "remaining", len(a.sessions), "error", err)
		return result, fmt.Errorf("save session %q: %w", name, err)
	}
	a.logger.Warn("session history truncated", "evicted", result.Evicted, "remaining", len(a.sessions))
	return result, nil
}

// LoadSession hands the session at index to onLoaded with every product given
// a fresh id and addedAt, in the saved order. When current is non-empty the
// user must confirm replacing it first.
func (a *Archive) LoadSession(index int, current []model.Product, onLoaded func([]model.Product)) error {
	session, err := a.Get(index)
	if err != nil {
		return err
	}

	load := func() {
		products := session.Products
		for i := range products {
			id := a.ids.Next()
			products[i].ID = id
			products[i].AddedAt = id
		}
		a.logger.Debug("session loaded", "name", session.Name, "products", len(products))
		if onLoaded != nil {
			onLoaded(products)
		}
	}

	if len(current) == 0 {
		load()
		return nil
	}
	a.confirmer.Confirm(notify.Request{
		Title:    "Load comparison?",
		Message:  fmt.Sprintf("Load %q? The current comparison will be replaced.", session.Name),
		Action:   "Load",
		OnAccept: load,
	})
	return nil
}

// DeleteSession asks the user to confirm, then removes the session at index
// and offers an undo that puts it back in the same place.
func (a *Archive) DeleteSession(index int, onDeleted func()) error {
	target, err := a.Get(index)
	if err != nil {
		return err
	}

	a.confirmer.Confirm(notify.Request{
		Title:    "Delete from history?",
		Message:  fmt.Sprintf("Delete %q? This can be undone for %d seconds.", target.Name, int(a.window.Seconds())),
		Action:   "Delete",
		Danger:   true,
		OnAccept: func() { a.remove(target, index, onDeleted) },
	})
	return nil
}

// remove deletes target once confirmed. Other changes may have moved it since
// the confirmation was requested, so it is located again.
func (a *Archive) remove(target model.Session, index int, onDeleted func()) {
	i := a.locate(target, index)
	if i < 0 {
		a.logger.Debug("session already gone", "name", target.Name)
		return
	}

	removed := a.sessions[i]
	a.sessions = append(a.sessions[:i:i], a.sessions[i+1:]...)
	a.persistOrNotify()
	if onDeleted != nil {
		onDeleted()
	}

	h := a.pending.Push(removal{session: removed, index: i, onDeleted: onDeleted})
	a.notifier.OfferUndo(fmt.Sprintf("%q deleted", removed.Name), h)
	a.logger.Debug("session deleted", "name", removed.Name, "undo", h.ID)
}

func (a *Archive) locate(target model.Session, hint int) int {
	same := func(s model.Session) bool {
		return s.SavedAt == target.SavedAt && s.Name == target.Name
	}
	if hint >= 0 && hint < len(a.sessions) && same(a.sessions[hint]) {
		return hint
	}
	for i, s := range a.sessions {
		if same(s) {
			return i
		}
	}
	return -1
}

// Undo reinserts the session deleted under handleID if its window is still
// open. It reports false for unknown or expired handles.
func (a *Archive) Undo(handleID string) bool {
	rec, ok := a.pending.Take(handleID)
	if !ok {
		return false
	}

	i := min(rec.index, len(a.sessions))
	a.sessions = append(a.sessions[:i:i], append([]model.Session{rec.session}, a.sessions[i:]...)...)
	a.persistOrNotify()
	if rec.onDeleted != nil {
		rec.onDeleted()
	}
	return true
}

// SweepUndo drops expired undo records and returns their handles.
func (a *Archive) SweepUndo() []undo.Handle {
	return a.pending.Sweep()
}

// PendingUndo returns the handles that can still be undone.
func (a *Archive) PendingUndo() []undo.Handle {
	return a.pending.Pending()
}

func (a *Archive) persist() error {
	return store.Save(a.gw, a.codec, store.KeySessions, a.sessions)
}

func (a *Archive) persistOrNotify() {
	if err := a.persist(); err != nil {
		a.logger.Warn("persist sessions", "count", len(a.sessions), "error", err)
		a.notifier.Notice(NoticeStorageFull)
	}
}
