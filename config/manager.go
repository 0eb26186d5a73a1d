package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const configFileName = "config.json"

// Manager owns the on-disk JSON config and reloads it when the file changes.
type Manager struct {
	path         string
	mu           sync.RWMutex
	cfg          Config
	watcher      *fsnotify.Watcher
	debounce     time.Duration
	onChange     func(Config)
	suppressSelf atomic.Bool
}

type managerOptions struct {
	configPath    string
	initialConfig *Config
	debounce      time.Duration
}

type ManagerOption func(*managerOptions)

func NewManager(opts ...ManagerOption) (*Manager, error) {
	options := managerOptions{
		debounce: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&options)
	}

	configPath := options.configPath
	if configPath == "" {
		var err error
		configPath, err = defaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg, err := readConfig(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = seedConfig(configPath, options.initialConfig)
	}
	if err != nil {
		return nil, err
	}

	return &Manager{
		path:     configPath,
		cfg:      cfg,
		debounce: options.debounce,
	}, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) UpdateFromJSON(jsonStr string) error {
	var cfg Config
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return m.Update(cfg)
}

// Update validates, persists and applies newCfg. The write it causes is not
// reported back through the watcher.
func (m *Manager) Update(newCfg Config) error {
	if err := newCfg.Validate(); err != nil {
		return err
	}
	if m.Get() == newCfg {
		return nil
	}

	if err := m.persist(newCfg); err != nil {
		return err
	}
	m.applyConfig(newCfg)
	return nil
}

// Watch calls onChange with every valid config written to disk until ctx ends.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	m.mu.Lock()
	m.onChange = onChange
	if m.watcher != nil {
		m.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("create config watcher: %w", err)
	}
	m.watcher = watcher
	m.mu.Unlock()

	// Watch the directory: editors and writeConfigFile replace the file by rename.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go m.watchLoop(ctx, watcher)
	return nil
}

// watchLoop coalesces bursts of file events into one reload per debounce
// window. Reloads run on this goroutine, so they never overlap.
func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	// pending fires once the file has been quiet for a debounce window.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: watcher error: %v", err)
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if m.suppressSelf.Load() || !touchesFile(evt, m.path) {
				continue
			}
			pending = time.After(m.debounce)
		case <-pending:
			pending = nil
			m.syncFromDisk()
		}
	}
}

func touchesFile(evt fsnotify.Event, path string) bool {
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 &&
		filepath.Clean(evt.Name) == filepath.Clean(path)
}

// syncFromDisk makes the manager and the file agree again: an edited file is
// applied, a deleted one is written back from memory, a broken one is ignored.
func (m *Manager) syncFromDisk() {
	cfg, err := readConfig(m.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := m.persist(m.Get()); err != nil {
			log.Printf("config: restore %s: %v", m.path, err)
		}
	case err != nil:
		log.Printf("config: keeping current settings: %v", err)
	case cfg != m.Get():
		m.applyConfig(cfg)
	}
}

// persist writes cfg without the watcher reporting the write back.
func (m *Manager) persist(cfg Config) error {
	m.suppressSelf.Store(true)
	err := writeConfigFile(m.path, cfg)
	time.AfterFunc(m.debounce, func() { m.suppressSelf.Store(false) })
	return err
}

func (m *Manager) applyConfig(cfg Config) {
	m.mu.Lock()
	m.cfg = cfg
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(cfg)
	}
}

// readConfig decodes and validates the file at path. A missing file is
// reported as fs.ErrNotExist.
func readConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// seedConfig creates the file at path from the initial config option or the
// defaults rooted next to it.
func seedConfig(path string, initial *Config) (Config, error) {
	cfg := DefaultConfigWithRoot(filepath.Dir(path))
	if initial != nil {
		cfg = initial
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if err := writeConfigFile(path, *cfg); err != nil {
		return Config{}, fmt.Errorf("write initial config: %w", err)
	}
	return *cfg, nil
}

func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "FinDocHub", configFileName), nil
}

// writeConfigFile swaps in a fully written sibling file, so readers never
// see a partial config.
func writeConfigFile(path string, cfg Config) (err error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+configFileName+"-*")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func WithConfigDir(dir string) ManagerOption {
	return func(o *managerOptions) {
		if dir != "" {
			o.configPath = filepath.Join(dir, configFileName)
		}
	}
}

func WithConfigPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.configPath = path
		}
	}
}

func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithInitialConfig seeds the file when it does not exist yet.
func WithInitialConfig(cfg *Config) ManagerOption {
	return func(o *managerOptions) {
		o.initialConfig = cfg
	}
}
