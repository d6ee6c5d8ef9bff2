// Package templates remembers previously entered (name, unit) pairs for autocomplete.
package templates

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pamdev00/price/internal/model"
	"github.com/pamdev00/price/internal/notify"
	"github.com/pamdev00/price/internal/store"
)

const (
	// MaxTemplates bounds the registry; the least recently used are dropped first.
	MaxTemplates = 200
	// MinQueryLength is the shortest input that produces suggestions.
	MinQueryLength = 2
)

// NoticeStorageFull is shown when the registry could not be persisted.
const NoticeStorageFull = "Not enough storage space to remember product names."

// Config wires a Registry to its collaborators.
type Config struct {
	Gateway  store.Gateway
	Codec    store.Codec
	Notifier notify.Notifier
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Registry is the deduplicated, bounded list of templates. At most one
// template exists per (case-folded trimmed name, unit).
type Registry struct {
	gw        store.Gateway
	codec     store.Codec
	notifier  notify.Notifier
	clock     func() time.Time
	logger    *slog.Logger
	templates []model.ProductTemplate
}

// New loads the stored templates and returns a Registry that owns them.
func New(cfg Config) (*Registry, error) {
	if cfg.Codec == nil {
		cfg.Codec = store.JSON{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	templates, err := store.Load[model.ProductTemplate](cfg.Gateway, cfg.Codec, store.KeyTemplates)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	return &Registry{
		gw:        cfg.Gateway,
		codec:     cfg.Codec,
		notifier:  cfg.Notifier,
		clock:     cfg.Clock,
		logger:    cfg.Logger.With("component", "templates"),
		templates: templates,
	}, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RecordUsage counts one more use of (name, unit). The display name stored is
// the trimmed name from the first time the pair was seen.
func (r *Registry) RecordUsage(name, unit, largeUnit string, factor float64) {
	key := normalize(name)
	if key == "" {
		return
	}
	now := r.clock().UnixMilli()

	found := false
	for i := range r.templates {
		t := &r.templates[i]
		if normalize(t.Name) == key && t.Unit == unit {
			t.UsageCount++
			t.LastUsed = now
			found = true
			break
		}
	}
	if !found {
		r.templates = append(r.templates, model.ProductTemplate{
			Name:       strings.TrimSpace(name),
			Unit:       unit,
			LargeUnit:  largeUnit,
			Factor:     factor,
			UsageCount: 1,
			LastUsed:   now,
		})
	}

	if len(r.templates) > MaxTemplates {
		sort.SliceStable(r.templates, func(i, j int) bool {
			return r.templates[i].LastUsed > r.templates[j].LastUsed
		})
		r.templates = r.templates[:MaxTemplates]
	}

	if err := store.Save(r.gw, r.codec, store.KeyTemplates, r.templates); err != nil {
		r.logger.Warn("persist templates", "count", len(r.templates), "error", err)
		r.notifier.Notice(NoticeStorageFull)
	}
}

// Query returns every template whose name contains prefix, ignoring case, in
// registry order. Input shorter than MinQueryLength after trimming matches nothing.
func (r *Registry) Query(prefix string) []model.ProductTemplate {
	q := normalize(prefix)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return []model.ProductTemplate{}
	}

	matches := []model.ProductTemplate{}
	for _, t := range r.templates {
		if strings.Contains(strings.ToLower(t.Name), q) {
			matches = append(matches, t)
		}
	}
	return matches
}

// Suggest returns Query's matches ranked by usage count, then by most recent
// use. A positive limit caps the result.
func (r *Registry) Suggest(prefix string, limit int) []model.ProductTemplate {
	matches := r.Query(prefix)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].UsageCount != matches[j].UsageCount {
			return matches[i].UsageCount > matches[j].UsageCount
		}
		return matches[i].LastUsed > matches[j].LastUsed
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// All returns a copy of every template in registry order.
func (r *Registry) All() []model.ProductTemplate {
	out := make([]model.ProductTemplate, len(r.templates))
	copy(out, r.templates)
	return out
}

// Len returns the number of templates.
func (r *Registry) Len() int {
	return len(r.templates)
}
