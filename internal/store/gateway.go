// Package store persists whole collections under fixed keys in a key/value
// backend with a finite capacity.
package store

import (
	"errors"
	"fmt"
)

// Keys of the three persisted collections.
const (
	KeyProducts  = "products"
	KeySessions  = "savedSessions"
	KeyTemplates = "productTemplates"
)

// Keys lists every key the application writes.
var Keys = []string{KeyProducts, KeySessions, KeyTemplates}

// ErrCapacityExceeded reports a write the backend could not accept. Callers
// treat every write failure as this condition.
var ErrCapacityExceeded = errors.New("storage capacity exceeded")

// Gateway is byte storage keyed by string. Write replaces the whole value.
type Gateway interface {
	Read(key string) ([]byte, bool, error)
	Write(key string, data []byte) error
}

// Usage is implemented by gateways that can report how much space they use.
type Usage interface {
	Usage() (used, quota int64, err error)
}

// Load decodes the collection stored under key. A missing key is an empty collection.
func Load[T any](g Gateway, c Codec, key string) ([]T, error) {
	data, ok, err := g.Read(key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(data) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := c.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save encodes items and overwrites key. Any write failure is returned wrapped
// in ErrCapacityExceeded.
func Save[T any](g Gateway, c Codec, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := c.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := g.Write(key, data); err != nil {
		if errors.Is(err, ErrCapacityExceeded) {
			return fmt.Errorf("write %s: %w", key, err)
		}
		return fmt.Errorf("write %s: %w: %w", key, ErrCapacityExceeded, err)
	}
	return nil
}
