package localstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/aweris/localstorage/internal/crypto"
	"github.com/aweris/localstorage/internal/store"
)

type rekeyed struct {
	key     string
	payload string
}

// Rekey re-encrypts every value under newKey, keeping the configured salt.
// It either re-encrypts all values or changes nothing. The new key applies to
// every later Store and Get; call Persist to write the re-encrypted values.
func (s *LocalStorage) Rekey(ctx context.Context, newKey string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.cfg.EnableEncryption {
		return &Error{Op: "rekey", Err: fmt.Errorf("%w: encryption is not enabled", ErrConfiguration)}
	}
	if newKey == "" {
		return &Error{Op: "rekey", Err: fmt.Errorf("%w: empty key", ErrInvalidArgument)}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "rekey", Err: err}
	}

	next, err := crypto.NewCipher(newKey, s.cfg.EncryptionSalt)
	if err != nil {
		return &Error{Op: "rekey", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		next.Wipe()
		return ErrClosed
	}

	start := time.Now()
	current := s.cipher
	entries := s.entries.Copy()

	p := pool.NewWithResults[rekeyed]().
		WithMaxGoroutines(s.concurrency).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for key, payload := range entries {
		p.Go(func(ctx context.Context) (rekeyed, error) {
			if err := ctx.Err(); err != nil {
				return rekeyed{}, err
			}
			plaintext, err := current.Decrypt(payload)
			if err != nil {
				return rekeyed{}, &Error{Op: "rekey", Key: key, Err: err}
			}
			sealed, err := next.Encrypt(plaintext)
			if err != nil {
				return rekeyed{}, &Error{Op: "rekey", Key: key, Err: err}
			}
			return rekeyed{key: key, payload: sealed}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		next.Wipe()
		var opErr *Error
		if !errors.As(err, &opErr) {
			err = &Error{Op: "rekey", Err: err}
		}
		return err
	}

	m := make(map[string]string, len(results))
	for _, r := range results {
		m[r.key] = r.payload
	}

	s.entries = store.EntriesFrom(m)
	s.cipher = next
	current.Wipe()
	s.cache.Purge()
	s.version.Add(1)

	s.log.Debug("rekeyed storage", "path", s.file.Path(), "entries", len(m), "duration", time.Since(start))
	return nil
}
