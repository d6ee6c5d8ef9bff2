// Package backup writes passphrase-encrypted copies of the stored products,
// sessions and templates to a local directory and restores them.
package backup

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pamdev00/price/internal/model"
	"github.com/pamdev00/price/internal/store"
)

const fileSuffix = ".price.enc"

var ErrNotFound = errors.New("backup not found")

// bundle is the plaintext of a backup file: each storage key's raw value in
// the codec named by Codec.
type bundle struct {
	Codec     string            `json:"codec"`
	CreatedAt int64             `json:"created_at"`
	Entries   map[string][]byte `json:"entries"`
}

// Info describes one backup file.
type Info struct {
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Config holds backup manager configuration.
type Config struct {
	Dir     string
	Gateway store.Gateway
	Codec   store.Codec
	Clock   func() time.Time
	Logger  *slog.Logger
}

// Manager exports and restores encrypted backups in Dir.
type Manager struct {
	mu     sync.Mutex
	dir    string
	gw     store.Gateway
	codec  store.Codec
	clock  func() time.Time
	logger *slog.Logger
}

// NewManager creates a new backup manager.
func NewManager(cfg Config) *Manager {
	if cfg.Codec == nil {
		cfg.Codec = store.JSON{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		dir:    cfg.Dir,
		gw:     cfg.Gateway,
		codec:  cfg.Codec,
		clock:  cfg.Clock,
		logger: cfg.Logger.With("component", "backup"),
	}
}

// Export encrypts the current value of every storage key into a new file.
func (m *Manager) Export(passphrase string) (Info, error) {
	if passphrase == "" {
		return Info{}, ErrEmptyPassphrase
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock().UTC()
	b := bundle{Codec: m.codec.Name(), CreatedAt: now.UnixMilli(), Entries: make(map[string][]byte)}
	for _, key := range store.Keys {
		data, ok, err := m.gw.Read(key)
		if err != nil {
			return Info{}, fmt.Errorf("read %s: %w", key, err)
		}
		if ok {
			b.Entries[key] = data
		}
	}

	plaintext, err := store.MsgPack{}.Marshal(b)
	if err != nil {
		return Info{}, fmt.Errorf("encode bundle: %w", err)
	}
	sealed, err := Seal(plaintext, passphrase)
	if err != nil {
		return Info{}, fmt.Errorf("encrypt: %w", err)
	}

	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return Info{}, fmt.Errorf("create backup dir: %w", err)
	}
	filename := fmt.Sprintf("backup-%s%s", now.Format("2006-01-02T150405.000Z"), fileSuffix)
	if err := os.WriteFile(filepath.Join(m.dir, filename), sealed, 0o600); err != nil {
		return Info{}, fmt.Errorf("write backup: %w", err)
	}

	m.logger.Info("backup exported", "file", filename, "keys", len(b.Entries), "size", len(sealed))
	return Info{Filename: filename, SizeBytes: int64(len(sealed)), CreatedAt: now}, nil
}

// List returns the backups in Dir, newest first. A missing directory has none.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	backups := []Info{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		backups = append(backups, Info{Filename: e.Name(), SizeBytes: fi.Size(), CreatedAt: fi.ModTime().UTC()})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Filename > backups[j].Filename
	})
	return backups, nil
}

// Restore decrypts filename and writes its values back through the gateway,
// converting them to the manager's codec. Components that already loaded
// their collections do not see the restored values; restore before serving.
func (m *Manager) Restore(filename, passphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := filepath.Base(filename)
	sealed, err := os.ReadFile(filepath.Join(m.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	plaintext, err := Open(sealed, passphrase)
	if err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}
	var b bundle
	if err := (store.MsgPack{}).Unmarshal(plaintext, &b); err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}
	src, err := store.CodecByName(b.Codec)
	if err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}

	staged := store.NewMemoryStore(0)
	for key, data := range b.Entries {
		if err := staged.Write(key, data); err != nil {
			return fmt.Errorf("stage %s: %w", key, err)
		}
	}

	restored := make(map[string][]byte, len(store.Keys))
	if restored[store.KeyProducts], err = convert[model.Product](staged, src, m.codec, store.KeyProducts); err != nil {
		return err
	}
	if restored[store.KeySessions], err = convert[model.Session](staged, src, m.codec, store.KeySessions); err != nil {
		return err
	}
	if restored[store.KeyTemplates], err = convert[model.ProductTemplate](staged, src, m.codec, store.KeyTemplates); err != nil {
		return err
	}

	previous := make(map[string][]byte, len(store.Keys))
	for _, key := range store.Keys {
		data, _, err := m.gw.Read(key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		previous[key] = data
	}

	if err := m.replace(restored); err != nil {
		if rerr := m.replace(previous); rerr != nil {
			m.logger.Error("roll back restore", "file", name, "error", rerr)
			return errors.Join(fmt.Errorf("restore %s: %w", name, err), fmt.Errorf("roll back: %w", rerr))
		}
		return fmt.Errorf("restore %s: %w", name, err)
	}

	m.logger.Info("backup restored", "file", name, "codec", b.Codec)
	return nil
}

// replace empties every key before writing values, so the old contents of
// one key never count against the quota while another is written. A nil
// value leaves its key empty.
func (m *Manager) replace(values map[string][]byte) error {
	empty, err := m.codec.Marshal([]struct{}{})
	if err != nil {
		return fmt.Errorf("encode empty collection: %w", err)
	}
	for _, key := range store.Keys {
		if err := m.write(key, empty); err != nil {
			return err
		}
	}
	for _, key := range store.Keys {
		if values[key] == nil {
			continue
		}
		if err := m.write(key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) write(key string, data []byte) error {
	err := m.gw.Write(key, data)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrCapacityExceeded):
		return fmt.Errorf("write %s: %w", key, err)
	default:
		return fmt.Errorf("write %s: %w: %w", key, store.ErrCapacityExceeded, err)
	}
}

// convert decodes key from a staged gateway and re-encodes it with codec.
func convert[T any](from store.Gateway, fromCodec, codec store.Codec, key string) ([]byte, error) {
	items, err := store.Load[T](from, fromCodec, key)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	data, err := codec.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return data, nil
}
