package localstorage

import (
	"errors"
	"strconv"

	"github.com/aweris/localstorage/internal/crypto"
)

var (
	ErrConfiguration   = errors.New("localstorage: invalid configuration")
	ErrInvalidArgument = errors.New("localstorage: invalid argument")
	ErrKeyNotFound     = errors.New("localstorage: key not found")
	ErrDecode          = errors.New("localstorage: cannot decode value")
	ErrCorruptStore    = errors.New("localstorage: corrupt store file")
	ErrDecryption      = crypto.ErrDecryption
	ErrClosed          = errors.New("localstorage: storage is closed")
)

// Error records a failed operation on a key.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + strconv.Quote(e.Key) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
