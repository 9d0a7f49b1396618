package localstorage

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

const (
	DefaultFilename       = ".localstorage"
	DefaultEncryptionSalt = ".localstorage"
	DefaultConcurrency    = 4
	DefaultCacheSize      = 1024
)

// Config captures the behavioural switches of a LocalStorage. It is copied by
// New, so later changes to the caller's value have no effect.
//
// The encryption key is not part of Config; pass it with WithEncryptionKey.
type Config struct {
	// AutoLoad loads the backing file in New.
	AutoLoad bool `mapstructure:"auto_load"`
	// AutoSave persists pending changes in Close.
	AutoSave bool `mapstructure:"auto_save"`
	// EnableEncryption encrypts every value before it is stored.
	EnableEncryption bool `mapstructure:"enable_encryption"`
	// EncryptionSalt is mixed into key derivation. It is not written to the
	// backing file, so it must stay the same for the lifetime of the data.
	EncryptionSalt string `mapstructure:"encryption_salt"`
	// Filename of the backing file, relative to the base directory unless absolute.
	Filename string `mapstructure:"filename"`
	// Compression frames the backing file with zstd: 0 off, 1 fastest,
	// 2 default, 3 better compression.
	Compression int `mapstructure:"compression"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AutoLoad:       true,
		AutoSave:       true,
		EncryptionSalt: DefaultEncryptionSalt,
		Filename:       DefaultFilename,
	}
}

func (c *Config) validate(key string) error {
	if c.Filename == "" {
		return fmt.Errorf("%w: filename must not be empty", ErrConfiguration)
	}
	if c.Compression < 0 || c.Compression > 3 {
		return fmt.Errorf("%w: compression level %d out of range 0-3", ErrConfiguration, c.Compression)
	}
	if !c.EnableEncryption {
		return nil
	}
	if key == "" {
		return fmt.Errorf("%w: encryption enabled without an encryption key", ErrConfiguration)
	}
	if c.EncryptionSalt == "" {
		return fmt.Errorf("%w: encryption enabled without a salt", ErrConfiguration)
	}
	return nil
}

// Options configures New.
type Options struct {
	EncryptionKey string
	BaseDir       string
	Codec         Codec
	Logger        hclog.Logger
	Concurrency   int
	CacheSize     int
}

// Option is a functional option for configuring New.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Codec:       JSONCodec{},
		Logger:      hclog.NewNullLogger(),
		Concurrency: DefaultConcurrency,
		CacheSize:   DefaultCacheSize,
	}
}

// WithEncryptionKey sets the password values are encrypted with. It is held in
// memory only.
func WithEncryptionKey(key string) Option {
	return func(o *Options) { o.EncryptionKey = key }
}

// WithBaseDir sets the directory a relative Filename resolves against.
// Defaults to the working directory at construction.
func WithBaseDir(dir string) Option {
	return func(o *Options) { o.BaseDir = dir }
}

// WithCodec sets the value codec.
func WithCodec(c Codec) Option {
	return func(o *Options) {
		if c != nil {
			o.Codec = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithConcurrency sets the number of parallel workers used by Rekey.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithCacheSize sets how many decrypted values are kept in memory.
// Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.CacheSize = n
		}
	}
}
