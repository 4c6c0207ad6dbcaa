// Package shelf is the public API: a reactive key-value view over
// persistent, session and cookie storage.
//
// A Shelf owns the shared persistent area, the cookie jar and the change
// poller. Windows opened on it play the part of browser tabs: each has its
// own session area and sees persistent writes made by the others as storage
// events.
//
//	s := shelf.New()
//	if err := s.Attach(types.Config{Store: types.StoreSQLite, DataDir: ".shelf-db"}); err != nil {
//	    return err
//	}
//	defer s.Detach()
//	w, _ := s.OpenWindow()
//	theme := w.Bind("theme", types.Options{Default: types.Text("light")})
//	defer theme.Release()
package shelf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/mesh-intelligence/shelf/internal/adapter"
	"github.com/mesh-intelligence/shelf/internal/poller"
	"github.com/mesh-intelligence/shelf/internal/storage"
	"github.com/mesh-intelligence/shelf/internal/window"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Version is the shelf release.
const Version = "0.3.0"

// Shelf is the storage service. It is unusable until attached.
type Shelf struct {
	log logr.Logger
	now func() time.Time

	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *storage.DB // nil for the memory store
	local    types.Area
	jar      *storage.CookieJar
	origin   *window.Origin
	poller   *poller.Poller
}

// Option configures a Shelf.
type Option func(*Shelf)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logr.Logger) Option {
	return func(s *Shelf) { s.log = log }
}

// WithClock sets the clock used for cookie expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Shelf) { s.now = now }
}

// New creates a detached Shelf.
func New(opts ...Option) *Shelf {
	s := &Shelf{log: logr.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach opens the configured store, restores persisted cookies and starts
// the services windows run against. It returns ErrAlreadyAttached when
// called twice.
func (s *Shelf) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	jar := storage.NewCookieJar(s.now)
	var local types.Area
	switch config.Store {
	case types.StoreSQLite:
		path := ""
		if config.DataDir != "" {
			if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
			path = filepath.Join(config.DataDir, storage.DBFileName)
		}
		db, err := storage.OpenDB(path)
		if err != nil {
			return err
		}
		cookies, err := db.LoadCookies()
		if err != nil {
			db.Close()
			return fmt.Errorf("load cookies: %w", err)
		}
		jar.Restore(cookies)
		s.db = db
		local = db.Items()
	case types.StoreMemory:
		local = storage.NewMemoryArea()
	}

	s.config = config
	s.local = local
	s.jar = jar
	s.origin = window.NewOrigin(local, jar, s.log.WithName("window"))
	s.poller = poller.New(config.GetPollInterval(), s.log.WithName("poller"))
	s.attached = true
	s.log.V(1).Info("attached", "store", config.Store, "dataDir", config.DataDir, "pollInterval", config.GetPollInterval())
	return nil
}

// Detach shuts down the poller, closes every window, persists cookies and
// closes the store. It returns ErrShelfDetached when not attached.
func (s *Shelf) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return types.ErrShelfDetached
	}
	s.attached = false
	s.poller.Shutdown()
	s.origin.Close()

	if s.db != nil {
		saveErr := s.db.SaveCookies(s.jar.Cookies())
		closeErr := s.db.Close()
		s.db = nil
		if saveErr != nil {
			return fmt.Errorf("save cookies: %w", saveErr)
		}
		if closeErr != nil {
			return fmt.Errorf("close store: %w", closeErr)
		}
	}
	s.log.V(1).Info("detached")
	return nil
}

// Config returns the configuration passed to Attach.
func (s *Shelf) Config() types.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// OpenWindow opens a new window with an empty session area.
func (s *Shelf) OpenWindow() (*Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil, types.ErrShelfDetached
	}

	w := s.origin.Open()
	log := s.log.WithValues("window", w.ID())
	return &Window{
		win:     w,
		poller:  s.poller,
		adapter: adapter.New(w, log.WithName("adapter"), adapter.WithClock(s.now)),
		log:     log,
	}, nil
}

// SetCookieHeader stores a cookie from a server Set-Cookie header. Such
// cookies may be HttpOnly; bindings on other cookies see the change on the
// next tick.
func (s *Shelf) SetCookieHeader(header string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return types.ErrShelfDetached
	}
	return s.jar.SetCookieHeader(header)
}

// Cookies returns every live cookie, HttpOnly ones included.
func (s *Shelf) Cookies() ([]storage.StoredCookie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil, types.ErrShelfDetached
	}
	return s.jar.Cookies(), nil
}

// PollerActive reports whether the change poller's timer is running.
func (s *Shelf) PollerActive() bool {
	p := s.currentPoller()
	return p != nil && p.Active()
}

// Registrations returns the number of bindings the poller checks.
func (s *Shelf) Registrations() int {
	if p := s.currentPoller(); p != nil {
		return p.Len()
	}
	return 0
}

// TimerStarts returns how many times the poller timer was started since
// Attach.
func (s *Shelf) TimerStarts() int {
	if p := s.currentPoller(); p != nil {
		return p.Starts()
	}
	return 0
}

// Tick runs one poll cycle synchronously.
func (s *Shelf) Tick() {
	if p := s.currentPoller(); p != nil {
		p.Tick()
	}
}

// ExportJSONL writes the persistent area to path and returns the number of
// items written.
func (s *Shelf) ExportJSONL(path string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return 0, types.ErrShelfDetached
	}
	return storage.ExportJSONL(s.local, path)
}

// ImportJSONL loads items from a JSONL file into the persistent area. The
// writes bypass every window, so bindings observe them as external changes.
func (s *Shelf) ImportJSONL(path string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return 0, types.ErrShelfDetached
	}
	return storage.ImportJSONL(s.local, path)
}

func (s *Shelf) currentPoller() *poller.Poller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil
	}
	return s.poller
}
