package selectors

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Manager provides hot-reload-capable selector-set management. Reads are
// lock-free via atomic.Value; an fsnotify watcher triggers reloads on file
// change when an external path is configured.
type Manager struct {
	current      atomic.Value // Set
	externalPath string
	watcher      *fsnotify.Watcher
	stopCh       chan struct{}
	wg           sync.WaitGroup
	closed       atomic.Bool
}

// NewManager returns a Manager seeded with the built-in defaults. If
// externalPath is non-empty, it is loaded immediately (falling back to
// defaults with a warning on failure) and, if hotReload is true, watched
// for subsequent changes.
func NewManager(externalPath string, hotReload bool) (*Manager, error) {
	m := &Manager{externalPath: externalPath, stopCh: make(chan struct{})}
	m.current.Store(defaultSet())

	if externalPath == "" {
		return m, nil
	}

	if err := m.reload(); err != nil {
		log.Warn().Err(err).Str("path", externalPath).Msg("failed to load external selectors, using defaults")
	}

	if hotReload {
		if err := m.startWatcher(); err != nil {
			log.Warn().Err(err).Str("path", externalPath).Msg("failed to start selector file watcher, hot-reload disabled")
		}
	}

	return m, nil
}

// Get returns the currently active selector set.
func (m *Manager) Get() Set {
	return m.current.Load().(Set)
}

// For returns the selector set for one engine shortcut, or the zero value
// and false if no selectors are configured for it.
func (m *Manager) For(shortcut string) (EngineSelectors, bool) {
	s, ok := m.Get()[shortcut]
	return s, ok
}

func (m *Manager) reload() error {
	data, err := os.ReadFile(m.externalPath)
	if err != nil {
		return err
	}
	var loaded Set
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return err
	}
	m.current.Store(loaded)
	log.Info().Str("path", m.externalPath).Int("engines", len(loaded)).Msg("selectors reloaded")
	return nil
}

func (m *Manager) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(m.externalPath); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := m.reload(); err != nil {
						log.Warn().Err(err).Msg("failed to reload selectors after file change")
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("selector file watcher error")
			case <-m.stopCh:
				return
			}
		}
	}()
	return nil
}

// Close stops the file watcher, if any. Idempotent.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(m.stopCh)
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
	return nil
}
