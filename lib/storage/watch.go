// Copyright 2026 The Casement Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	gocache "github.com/patrickmn/go-cache"
	"github.com/zeebo/blake3"
)

func (s *Service) startWatcher(root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating storage watcher: %w", err)
	}
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", root, err)
	}
	done := make(chan struct{})
	s.watchMu.Lock()
	s.watcher = watcher
	s.watchDone = done
	s.watchMu.Unlock()
	go s.watchLoop(watcher, done)
	return nil
}

func (s *Service) stopWatcher() {
	s.watchMu.Lock()
	watcher, done := s.watcher, s.watchDone
	s.watcher, s.watchDone = nil, nil
	for name, timer := range s.pending {
		timer.Stop()
		delete(s.pending, name)
	}
	s.watchMu.Unlock()
	if watcher == nil {
		return
	}
	watcher.Close()
	<-done
}

func (s *Service) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, fileSuffix) {
				continue
			}
			s.schedule(strings.TrimSuffix(base, fileSuffix))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("storage watcher error", "error", err)
		}
	}
}

// schedule reloads name once events for it stop arriving.
func (s *Service) schedule(name string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher == nil {
		return
	}
	if timer := s.pending[name]; timer != nil {
		timer.Stop()
	}
	s.pending[name] = s.clock.AfterFunc(s.debounce, func() {
		s.watchMu.Lock()
		delete(s.pending, name)
		s.watchMu.Unlock()
		s.reload(name)
	})
}

// reload picks up an edit made outside the service.
func (s *Service) reload(name string) {
	path, err := s.StoragePath(name)
	if err != nil {
		return
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		delete(s.written, name)
		s.cache.Delete(name)
		s.mu.Unlock()
		s.logger.Info("storage item removed outside casement", "item", name)
		s.notify(Change{Path: fileURI(path), Data: map[string]any{}})
		return
	}
	if err != nil {
		s.logger.Warn("re-reading storage item failed", "item", name, "error", err)
		return
	}

	s.mu.Lock()
	own := s.written[name] == blake3.Sum256(data)
	s.mu.Unlock()
	if own {
		return
	}

	value, plain, err := parse(data)
	if err != nil {
		s.logger.Warn("storage item edited into invalid JSON, keeping cached value", "item", name, "error", err)
		return
	}
	s.mu.Lock()
	delete(s.written, name)
	s.cache.Set(name, plain, gocache.NoExpiration)
	s.mu.Unlock()
	s.logger.Info("storage item changed outside casement", "item", name)
	s.notify(Change{Path: fileURI(path), Data: value})
}
