package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/cbackas/hookbuffer/internal/applog"
	"github.com/fsnotify/fsnotify"
)

// Credentials is the basic-auth pair checked against inbound requests.
type Credentials struct {
	User string
	Pass string
}

// CredentialStore holds the live Credentials behind an atomic pointer, so a
// concurrent basic-auth check never observes a half-written value while the
// backing file is being hot-reloaded.
type CredentialStore struct {
	current atomic.Pointer[Credentials]
}

// NewCredentialStore seeds a store with an initial pair, typically the
// Config.User/Pass values.
func NewCredentialStore(initial Credentials) *CredentialStore {
	s := &CredentialStore{}
	s.current.Store(&initial)
	return s
}

// Current returns the presently active credentials.
func (s *CredentialStore) Current() Credentials {
	return *s.current.Load()
}

// parseCredentialsFile reads a "user:pass" line from path. Blank lines and
// lines starting with '#' are skipped, so an operator can annotate the file.
func parseCredentialsFile(path string) (Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return Credentials{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		user, pass, ok := strings.Cut(line, ":")
		if !ok {
			return Credentials{}, fmt.Errorf("config: credentials file %s: expected user:pass", path)
		}
		return Credentials{User: user, Pass: pass}, nil
	}
	if err := scanner.Err(); err != nil {
		return Credentials{}, err
	}
	return Credentials{}, fmt.Errorf("config: credentials file %s: no credential line found", path)
}

// WatchCredentialsFile loads path once and then keeps the returned
// CredentialStore up to date as the file changes on disk, using fsnotify.
// The watcher goroutine runs until ctx-independent stop is requested via the
// returned close func; callers that don't need to stop early may ignore it.
func WatchCredentialsFile(path string, logger applog.Logger) (*CredentialStore, func() error, error) {
	initial, err := parseCredentialsFile(path)
	if err != nil {
		return nil, nil, err
	}
	store := NewCredentialStore(initial)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("config: starting credentials watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("config: watching %s: %w", path, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Only Write and Create events trigger a reload. The watch is on
				// path itself, not its directory, so once the file is replaced
				// by a rename the watch ends and later changes are not picked up.
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				creds, err := parseCredentialsFile(path)
				if err != nil {
					logger.Warn("credentials file reload failed, keeping previous credentials", "path", path, "error", err)
					continue
				}
				store.current.Store(&creds)
				logger.Info("credentials file reloaded", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("credentials watcher error", "error", err)
			}
		}
	}()

	return store, watcher.Close, nil
}
