package localstorage

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/aweris/localstorage/internal/compression"
	"github.com/aweris/localstorage/internal/crypto"
	"github.com/aweris/localstorage/internal/store"
)

// LocalStorage is a file-backed key-value store.
//
// Per-key operations may run concurrently. Load, Clear, Rekey and Close are
// exclusive. Persist calls are serialized against each other and always leave a
// complete document on disk.
type LocalStorage struct {
	cfg         Config
	codec       Codec
	log         hclog.Logger
	concurrency int

	file       *store.File
	compressor *compression.Compressor

	// mu guards the entries and cipher pointers. Per-key operations hold it
	// shared; operations replacing either pointer hold it exclusively.
	mu      sync.RWMutex
	entries *store.Entries
	cipher  *crypto.Cipher
	cache   *store.Cache

	persistMu sync.Mutex

	// version counts mutations; persisted is the version last written or loaded.
	version   atomic.Uint64
	persisted atomic.Uint64
	closed    atomic.Bool

	stats counters
}

// New creates a LocalStorage for cfg. When cfg.AutoLoad is set the backing file
// is loaded before New returns.
func New(cfg *Config, opts ...Option) (*LocalStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", ErrConfiguration)
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	c := *cfg
	if err := c.validate(options.EncryptionKey); err != nil {
		return nil, err
	}

	path, err := resolvePath(c.Filename, options.BaseDir)
	if err != nil {
		return nil, err
	}

	mode := os.FileMode(0o644)
	if c.EnableEncryption {
		mode = 0o600
	}

	s := &LocalStorage{
		cfg:         c,
		codec:       options.Codec,
		log:         options.Logger,
		concurrency: options.Concurrency,
		file:        store.NewFile(path, mode),
		entries:     store.NewEntries(),
	}

	if c.EnableEncryption {
		if s.cipher, err = crypto.NewCipher(options.EncryptionKey, c.EncryptionSalt); err != nil {
			return nil, fmt.Errorf("create cipher: %w", err)
		}
		if s.cache, err = store.NewCache(options.CacheSize); err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
	}

	if s.compressor, err = compression.NewCompressor(c.Compression); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if c.AutoLoad {
		if err := s.load(); err != nil {
			_ = s.compressor.Close()
			return nil, err
		}
	}

	s.log.Debug("opened storage", "path", path, "encrypted", c.EnableEncryption,
		"compressed", s.compressor.Enabled(), "codec", s.codec.Name())
	return s, nil
}

func resolvePath(filename, baseDir string) (string, error) {
	if filepath.IsAbs(filename) {
		return filename, nil
	}
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve base dir: %w", err)
		}
		baseDir = wd
	}
	abs, err := filepath.Abs(filepath.Join(baseDir, filename))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	return abs, nil
}

// Path returns the absolute path of the backing file.
func (s *LocalStorage) Path() string { return s.file.Path() }

// Config returns a copy of the configuration.
func (s *LocalStorage) Config() Config { return s.cfg }

// Dirty reports whether memory has changed since the last Load or Persist.
func (s *LocalStorage) Dirty() bool { return s.version.Load() != s.persisted.Load() }

// Store encodes value and stores it under key, replacing any previous value.
// Nothing is written to disk.
func (s *LocalStorage) Store(key string, value any) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return &Error{Op: "store", Err: fmt.Errorf("%w: empty key", ErrInvalidArgument)}
	}
	if isNil(value) {
		return &Error{Op: "store", Key: key, Err: fmt.Errorf("%w: nil value", ErrInvalidArgument)}
	}

	plaintext, err := s.codec.Marshal(value)
	if err != nil {
		return &Error{Op: "store", Key: key, Err: fmt.Errorf("%w: %w", ErrInvalidArgument, err)}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Close may have won the race since the check above.
	if s.closed.Load() {
		return ErrClosed
	}

	payload := plaintext
	if s.cipher != nil {
		if payload, err = s.cipher.Encrypt(plaintext); err != nil {
			return &Error{Op: "store", Key: key, Err: err}
		}
		s.cache.Add(key, payload, plaintext)
	}

	s.entries.Set(key, payload)
	s.version.Add(1)
	s.stats.stores.Add(1)
	return nil
}

// Get returns the value stored under key without knowing its type.
func (s *LocalStorage) Get(key string) (Value, error) {
	plaintext, err := s.plaintext("get", key)
	if err != nil {
		return Value{}, err
	}
	v, err := newValue(plaintext, s.codec)
	if err != nil {
		return Value{}, &Error{Op: "get", Key: key, Err: fmt.Errorf("%w: %w", ErrDecode, err)}
	}
	return v, nil
}

// GetInto decodes the value stored under key into out, which must be a pointer.
func (s *LocalStorage) GetInto(key string, out any) error {
	return s.decode("get", key, out)
}

func (s *LocalStorage) decode(op, key string, out any) error {
	plaintext, err := s.plaintext(op, key)
	if err != nil {
		return err
	}
	if err := s.codec.Unmarshal(plaintext, out); err != nil {
		return &Error{Op: op, Key: key, Err: fmt.Errorf("%w: %w", ErrDecode, err)}
	}
	return nil
}

// plaintext returns the codec payload stored under key, decrypting it if needed.
func (s *LocalStorage) plaintext(op, key string) (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed.Load() {
		return "", ErrClosed
	}

	payload, ok := s.entries.Get(key)
	if !ok {
		return "", &Error{Op: op, Key: key, Err: ErrKeyNotFound}
	}
	s.stats.gets.Add(1)

	if s.cipher == nil {
		return payload, nil
	}
	if plaintext, ok := s.cache.Get(key, payload); ok {
		return plaintext, nil
	}
	plaintext, err := s.cipher.Decrypt(payload)
	if err != nil {
		return "", &Error{Op: op, Key: key, Err: err}
	}
	s.cache.Add(key, payload, plaintext)
	return plaintext, nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *LocalStorage) Remove(key string) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entries.Delete(key) {
		s.cache.Remove(key)
		s.version.Add(1)
	}
	s.stats.removes.Add(1)
	return nil
}

// Exists reports whether key is present.
func (s *LocalStorage) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Has(key)
}

// Keys returns all keys sorted ascending.
func (s *LocalStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Keys()
}

// Count returns the number of entries.
func (s *LocalStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Len()
}

// Clear empties the in-memory store. The backing file is left untouched until
// the next Persist; use Destroy to delete it.
func (s *LocalStorage) Clear() error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = store.NewEntries()
	s.cache.Purge()
	s.version.Add(1)
	return nil
}

// Load replaces the in-memory store with the content of the backing file.
// A missing or empty file leaves the store unchanged.
func (s *LocalStorage) Load() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.load()
}

func (s *LocalStorage) load() error {
	start := time.Now()

	data, ok, err := s.file.Read()
	if err != nil {
		return &Error{Op: "load", Err: err}
	}
	if !ok || store.IsBlank(data) {
		s.log.Debug("nothing to load", "path", s.file.Path(), "exists", ok)
		return nil
	}

	data, err = s.compressor.Decompress(data)
	if err != nil {
		return &Error{Op: "load", Err: fmt.Errorf("%w: %w", ErrCorruptStore, err)}
	}
	m, err := store.Decode(data)
	if err != nil {
		return &Error{Op: "load", Err: fmt.Errorf("%w: %w", ErrCorruptStore, err)}
	}

	s.mu.Lock()
	s.entries = store.EntriesFrom(m)
	s.cache.Purge()
	s.persisted.Store(s.version.Add(1))
	s.mu.Unlock()

	s.stats.loads.Add(1)
	s.log.Debug("loaded storage", "path", s.file.Path(), "entries", len(m), "duration", time.Since(start))
	return nil
}

// Persist writes the whole store to the backing file, replacing its content.
func (s *LocalStorage) Persist() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.persist()
}

func (s *LocalStorage) persist() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	start := time.Now()
	snap, version := s.snapshot()

	data, err := store.Encode(snap.entries)
	if err != nil {
		s.stats.persistErrors.Add(1)
		return &Error{Op: "persist", Err: fmt.Errorf("encode store: %w", err)}
	}
	data = s.compressor.Compress(data)

	if err := s.file.Write(data); err != nil {
		s.stats.persistErrors.Add(1)
		return &Error{Op: "persist", Err: err}
	}
	s.persisted.Store(version)

	elapsed := time.Since(start)
	s.stats.persisted(start, elapsed)
	s.log.Debug("persisted storage", "path", s.file.Path(), "entries", snap.Len(), "bytes", len(data), "duration", elapsed)
	return nil
}

// Destroy deletes the backing file if it exists. The in-memory store is kept.
func (s *LocalStorage) Destroy() error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.file.Remove(); err != nil {
		return &Error{Op: "destroy", Err: err}
	}
	s.log.Debug("destroyed storage file", "path", s.file.Path())
	return nil
}

// Close persists the store when AutoSave is set and releases resources.
// Further calls to methods returning an error yield ErrClosed; Close itself
// returns nil on every call after the first.
func (s *LocalStorage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if s.cfg.AutoSave {
		if err = s.persist(); err != nil {
			s.log.Error("auto-save failed", "path", s.file.Path(), "error", err)
		}
	}

	s.mu.Lock()
	if s.cipher != nil {
		s.cipher.Wipe()
		s.cipher = nil
	}
	s.cache.Purge()
	s.mu.Unlock()

	if cerr := s.compressor.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
