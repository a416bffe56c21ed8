// Package settings persists the bridge configuration in a YAML file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/allbin/go-irbridge"
)

// EnvPrefix is prepended to environment overrides, e.g.
// IRBRIDGE_IR_TRANSPORT_KIND
const EnvPrefix = "IRBRIDGE"

// ViperStore is an irbridge.Store backed by a YAML file. Writes go to the
// file immediately.
type ViperStore struct {
	mu     sync.RWMutex
	v      *viper.Viper
	path   string
	logger zerolog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

var _ irbridge.Store = (*ViperStore)(nil)

// DefaultPath returns $XDG_CONFIG_HOME/irbridge/config.yaml or the
// platform equivalent
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "irbridge", "config.yaml"), nil
}

// Open loads path. A missing file is not an error; it is created on the
// first Set.
func Open(path string, logger zerolog.Logger) (*ViperStore, error) {
	v, err := load(path)
	if err != nil {
		return nil, err
	}
	return &ViperStore{
		v:      v,
		path:   path,
		logger: logger.With().Str("component", "settings").Logger(),
	}, nil
}

func load(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return v, nil
}

// Path returns the backing file
func (s *ViperStore) Path() string {
	return s.path
}

func (s *ViperStore) IsSet(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.IsSet(key)
}

func (s *ViperStore) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(key)
}

func (s *ViperStore) GetBool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetBool(key)
}

func (s *ViperStore) GetInt(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetInt(key)
}

func (s *ViperStore) GetStringSlice(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetStringSlice(key)
}

// Set stores value and rewrites the file
func (s *ViperStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(key, value)
	if err := s.writeLocked(); err != nil {
		return err
	}

	// Reload so the value lives in the file layer, not as an override
	// that would shadow later edits on disk
	v, err := load(s.path)
	if err != nil {
		return err
	}
	s.v = v
	return nil
}

func (s *ViperStore) writeLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// AllSettings returns every key with its effective value
func (s *ViperStore) AllSettings() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.AllSettings()
}

// Watch reloads the file whenever it changes on disk and then calls
// onChange. Only one watch may be active; Close stops it.
func (s *ViperStore) Watch(onChange func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return errors.New("settings: already watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Editors replace the file, so watch the directory
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	go s.watchLoop(watcher, s.done, onChange)
	return nil
}

func (s *ViperStore) watchLoop(watcher *fsnotify.Watcher, done chan struct{}, onChange func()) {
	defer close(done)
	target := filepath.Clean(s.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.reload(); err != nil {
				s.logger.Warn().Err(err).Msg("Ignoring unreadable config change")
				continue
			}
			s.logger.Debug().Str("file", event.Name).Msg("Config reloaded")
			if onChange != nil {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("Config watcher error")
		}
	}
}

func (s *ViperStore) reload() error {
	v, err := load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
	return nil
}

// Close stops a running Watch
func (s *ViperStore) Close() error {
	s.mu.Lock()
	watcher, done := s.watcher, s.done
	s.watcher, s.done = nil, nil
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}
