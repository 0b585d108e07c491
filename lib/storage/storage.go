// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	gocache "github.com/patrickmn/go-cache"
	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"

	"github.com/casement-foundation/casement/lib/clock"
	"github.com/casement-foundation/casement/lib/lifecycle"
)

const fileSuffix = ".json"

// DefaultDebounce is how long the watcher waits after the last event
// on a file before reloading it.
const DefaultDebounce = 200 * time.Millisecond

var (
	// ErrNilValue is returned by SetItem for a nil value.
	ErrNilValue = errors.New("storage: refusing to store a nil value")

	// ErrNoRoot is returned by SetRootStoragePath for an empty path.
	ErrNoRoot = errors.New("storage: root path is empty")
)

// Change reports a new value for an item. Path is the item file's URI.
type Change struct {
	Path string `cbor:"path" json:"path"`
	Data any    `cbor:"data" json:"data"`
}

// Config configures a Service.
type Config struct {
	// Root is the directory holding the item files.
	Root string

	// Watch enables the fsnotify watcher for outside edits.
	Watch bool

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Service is the key/value store.
type Service struct {
	clock    clock.Clock
	debounce time.Duration
	logger   *slog.Logger
	cache    *gocache.Cache

	// mu serializes writes and guards root and written.
	mu   sync.Mutex
	root string

	// written holds the hash of the last content this service wrote
	// to each item, so the watcher can skip its own writes.
	written map[string][32]byte

	listenersMu sync.Mutex
	listeners   []*changeListener

	watch     bool
	watchMu   sync.Mutex
	watcher   *fsnotify.Watcher
	watchDone chan struct{}
	pending   map[string]*clock.Timer
}

type changeListener struct {
	fn func(Change)
}

// New creates a store rooted at config.Root.
func New(config Config) (*Service, error) {
	if config.Root == "" {
		return nil, ErrNoRoot
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	s := &Service{
		clock:    config.Clock,
		debounce: config.Debounce,
		logger:   config.Logger,
		cache:    gocache.New(gocache.NoExpiration, 0),
		root:     filepath.Clean(config.Root),
		written:  make(map[string][32]byte),
		watch:    config.Watch,
		pending:  make(map[string]*clock.Timer),
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	if s.watch {
		if err := s.startWatcher(s.root); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Root returns the current root directory.
func (s *Service) Root() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// SetRootStoragePath moves the store to path. Cached items are dropped.
func (s *Service) SetRootStoragePath(path string) error {
	if path == "" {
		return ErrNoRoot
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating storage root: %w", err)
	}

	s.mu.Lock()
	s.root = path
	s.written = make(map[string][32]byte)
	s.cache.Flush()
	s.mu.Unlock()

	if s.watch {
		s.stopWatcher()
		if err := s.startWatcher(path); err != nil {
			return err
		}
	}
	s.logger.Info("storage root changed", "root", path)
	return nil
}

// StoragePath returns the file backing item name.
func (s *Service) StoragePath(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return filepath.Join(s.root, name+fileSuffix), nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("storage: invalid item name %q", name)
	}
	return nil
}

// GetItem returns item name. A missing or unreadable item is an empty
// object. Each call decodes a fresh value, so callers may modify it.
func (s *Service) GetItem(name string) (any, error) {
	if plain, ok := s.cache.Get(name); ok {
		return decode(plain.([]byte))
	}
	path, err := s.StoragePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		s.logger.Error("reading storage item failed", "item", name, "error", err)
		return map[string]any{}, nil
	}
	value, plain, err := parse(data)
	if err != nil {
		s.logger.Error("parsing storage item failed", "item", name, "path", path, "error", err)
		return map[string]any{}, nil
	}
	s.cache.Set(name, plain, gocache.NoExpiration)
	return value, nil
}

// parse decodes a stored item, which may carry comments and trailing
// commas, and also returns it as plain JSON for the cache.
func parse(data []byte) (value any, plain []byte, err error) {
	plain = jsonc.ToJSON(data)
	if value, err = decode(plain); err != nil {
		return nil, nil, err
	}
	return value, plain, nil
}

func decode(plain []byte) (any, error) {
	var value any
	if err := json.Unmarshal(plain, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// SetItem stores value as item name and notifies change listeners.
func (s *Service) SetItem(name string, value any) error {
	if value == nil {
		return ErrNilValue
	}
	path, err := s.StoragePath(name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding storage item %s: %w", name, err)
	}

	s.mu.Lock()
	s.written[name] = blake3.Sum256(data)
	err = writeFile(path, data)
	if err == nil {
		s.cache.Set(name, data, gocache.NoExpiration)
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("writing storage item %s: %w", name, err)
	}

	s.notify(Change{Path: fileURI(path), Data: value})
	return nil
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	temp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(temp.Name())
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return err
	}
	return os.Rename(temp.Name(), path)
}

// WorkspaceStorageName returns the item name holding per-workspace
// state for workspace.
func WorkspaceStorageName(workspace string) string {
	sum := blake3.Sum256([]byte(filepath.Clean(workspace)))
	return "workspace-" + hex.EncodeToString(sum[:16])
}

// OnChange registers fn to run after every change.
func (s *Service) OnChange(fn func(Change)) lifecycle.Disposable {
	entry := &changeListener{fn: fn}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, entry)
	s.listenersMu.Unlock()
	return lifecycle.DisposeFunc(func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		for i, candidate := range s.listeners {
			if candidate == entry {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	})
}

func (s *Service) notify(change Change) {
	s.listenersMu.Lock()
	listeners := append([]*changeListener(nil), s.listeners...)
	s.listenersMu.Unlock()
	for _, listener := range listeners {
		listener.fn(change)
	}
}

// Close stops the watcher.
func (s *Service) Close() error {
	if s.watch {
		s.stopWatcher()
	}
	return nil
}

func fileURI(path string) string {
	return (&url.URL{Scheme: "file", Path: path}).String()
}
