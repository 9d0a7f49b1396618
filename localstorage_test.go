package localstorage_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/aweris/localstorage"
)

func open(t *testing.T, dir string, cfg *localstorage.Config, opts ...localstorage.Option) *localstorage.LocalStorage {
	t.Helper()

	if cfg == nil {
		cfg = localstorage.DefaultConfig()
	}
	s, err := localstorage.New(cfg, append([]localstorage.Option{localstorage.WithBaseDir(dir)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreGetRoundTrip(t *testing.T) {
	s := open(t, t.TempDir(), nil)

	if err := s.Store("string", "lorem ipsum"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Store("float", 3.1415); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Store("int", 42); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Store("unicode", "héllo wörld ✓ 日本"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	now := time.Now()
	if err := s.Store("time", now); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if got, err := localstorage.Get[string](s, "string"); err != nil || got != "lorem ipsum" {
		t.Errorf("string = %q, %v", got, err)
	}
	if got, err := localstorage.Get[float64](s, "float"); err != nil || got != 3.1415 {
		t.Errorf("float = %v, %v", got, err)
	}
	if got, err := localstorage.Get[int](s, "int"); err != nil || got != 42 {
		t.Errorf("int = %v, %v", got, err)
	}
	if got, err := localstorage.Get[string](s, "unicode"); err != nil || got != "héllo wörld ✓ 日本" {
		t.Errorf("unicode = %q, %v", got, err)
	}
	got, err := localstorage.Get[time.Time](s, "time")
	if err != nil {
		t.Fatalf("Get time: %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("time = %v, want %v", got, now)
	}

	if n := s.Count(); n != 5 {
		t.Errorf("Count = %d, want 5", n)
	}
}

func TestStoreOverwrite(t *testing.T) {
	s := open(t, t.TempDir(), nil)

	for i := range 3 {
		if err := s.Store("key", i); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	got, err := localstorage.Get[int](s, "key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 2 {
		t.Errorf("Get = %d, want 2", got)
	}
	if n := s.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestStoreInvalidArguments(t *testing.T) {
	s := open(t, t.TempDir(), nil)

	var nilMap map[string]int
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"empty key", "", "value"},
		{"nil value", "key", nil},
		{"nil map", "key", nilMap},
		{"unencodable", "key", make(chan int)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Store(tt.key, tt.value)
			if !errors.Is(err, localstorage.ErrInvalidArgument) {
				t.Fatalf("Store error = %v, want ErrInvalidArgument", err)
			}
		})
	}

	if n := s.Count(); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := open(t, t.TempDir(), nil)

	_, err := localstorage.Get[string](s, "missing")
	if !errors.Is(err, localstorage.ErrKeyNotFound) {
		t.Fatalf("Get error = %v, want ErrKeyNotFound", err)
	}

	var opErr *localstorage.Error
	if !errors.As(err, &opErr) {
		t.Fatalf("error %T is not *Error", err)
	}
	if opErr.Op != "get" || opErr.Key != "missing" {
		t.Errorf("Error = %+v", opErr)
	}
}

func TestGetWrongType(t *testing.T) {
	s := open(t, t.TempDir(), nil)

	if err := s.Store("key", "not a number"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := localstorage.Get[int](s, "key"); !errors.Is(err, localstorage.ErrDecode) {
		t.Fatalf("Get error = %v, want ErrDecode", err)
	}
}

func TestGetInto(t *testing.T) {
	s := open(t, t.TempDir(), nil)

	type point struct{ X, Y int }
	if err := s.Store("p", point{1, 2}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	var got point
	if err := s.GetInto("p", &got); err != nil {
		t.Fatalf("GetInto: %v", err)
	}
	if got != (point{1, 2}) {
		t.Errorf("GetInto = %+v", got)
	}
}

func TestRemove(t *testing.T) {
	s := open(t, t.TempDir(), nil)

	if err := s.Store("a", 1); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Exists("a") {
		t.Error("Exists after Remove")
	}
	if err := s.Remove("a"); err != nil {
		t.Fatalf("Remove absent key: %v", err)
	}
	if n := s.Count(); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestKeysSorted(t *testing.T) {
	s := open(t, t.TempDir(), nil)

	for _, k := range []string{"charlie", "alpha", "bravo"} {
		if err := s.Store(k, k); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	got := s.Keys()
	want := []string{"alpha", "bravo", "charlie"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Keys = %v, want %v", got, want)
	}
}

func TestPersistAndAutoLoad(t *testing.T) {
	dir := t.TempDir()

	first := open(t, dir, nil)
	if err := first.Store("greeting", "hello"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !first.Dirty() {
		t.Error("Dirty = false after Store")
	}
	if err := first.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if first.Dirty() {
		t.Error("Dirty = true after Persist")
	}

	second := open(t, dir, nil)
	got, err := localstorage.Get[string](second, "greeting")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "hello" {
		t.Errorf("Get = %q, want hello", got)
	}
	if second.Dirty() {
		t.Error("Dirty = true after load")
	}
}

func TestWithoutAutoLoad(t *testing.T) {
	dir := t.TempDir()

	first := open(t, dir, nil)
	if err := first.Store("k", "v"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := first.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	cfg := localstorage.DefaultConfig()
	cfg.AutoLoad = false
	second := open(t, dir, cfg)
	if n := second.Count(); n != 0 {
		t.Fatalf("Count before Load = %d, want 0", n)
	}
	if err := second.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !second.Exists("k") {
		t.Error("key missing after Load")
	}
}

func TestLoadReplacesMemory(t *testing.T) {
	dir := t.TempDir()
	s := open(t, dir, nil)

	if err := s.Store("kept", 1); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := s.Store("dropped", 2); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Exists("dropped") {
		t.Error("unsaved key survived Load")
	}
	if !s.Exists("kept") {
		t.Error("persisted key missing after Load")
	}
}

func TestClearLeavesFileUntilPersist(t *testing.T) {
	dir := t.TempDir()
	s := open(t, dir, nil)

	if err := s.Store("k", "v"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n := s.Count(); n != 0 {
		t.Fatalf("Count after Clear = %d", n)
	}

	if other := open(t, dir, nil); !other.Exists("k") {
		t.Fatal("file lost content before Persist")
	}

	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if other := open(t, dir, nil); other.Count() != 0 {
		t.Fatalf("file still holds %d entries after Persist", other.Count())
	}
}

func TestDestroy(t *testing.T) {
	s := open(t, t.TempDir(), nil)

	if err := s.Store("k", "v"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file still exists: %v", err)
	}
	if !s.Exists("k") {
		t.Error("Destroy dropped memory")
	}
	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy without file: %v", err)
	}
}

func TestEmptyFileLoadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, localstorage.DefaultFilename), nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	s := open(t, dir, nil)
	if n := s.Count(); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, localstorage.DefaultFilename), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := localstorage.New(localstorage.DefaultConfig(), localstorage.WithBaseDir(dir))
	if !errors.Is(err, localstorage.ErrCorruptStore) {
		t.Fatalf("New error = %v, want ErrCorruptStore", err)
	}
}

func TestNewConfiguration(t *testing.T) {
	encrypted := func(salt string) *localstorage.Config {
		cfg := localstorage.DefaultConfig()
		cfg.EnableEncryption = true
		cfg.EncryptionSalt = salt
		return cfg
	}

	tests := []struct {
		name string
		cfg  *localstorage.Config
		opts []localstorage.Option
	}{
		{"nil config", nil, nil},
		{"empty filename", &localstorage.Config{}, nil},
		{"compression out of range", &localstorage.Config{Filename: "x", Compression: 9}, nil},
		{"encryption without key", encrypted("salt"), nil},
		{"encryption without salt", encrypted(""), []localstorage.Option{localstorage.WithEncryptionKey("pw")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]localstorage.Option{localstorage.WithBaseDir(t.TempDir())}, tt.opts...)
			_, err := localstorage.New(tt.cfg, opts...)
			if !errors.Is(err, localstorage.ErrConfiguration) {
				t.Fatalf("New error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestCustomFilename(t *testing.T) {
	dir := t.TempDir()
	cfg := localstorage.DefaultConfig()
	cfg.Filename = "settings.json"

	s := open(t, dir, cfg)
	if want := filepath.Join(dir, "settings.json"); s.Path() != want {
		t.Errorf("Path = %q, want %q", s.Path(), want)
	}
	if err := s.Store("k", "v"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "settings.json")); err != nil {
		t.Fatalf("backing file: %v", err)
	}
}

func TestAbsoluteFilename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store")
	cfg := localstorage.DefaultConfig()
	cfg.Filename = path

	s := open(t, t.TempDir(), cfg)
	if s.Path() != path {
		t.Errorf("Path = %q, want %q", s.Path(), path)
	}
	if err := s.Store("k", "v"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backing file: %v", err)
	}
}

func TestPersistConcurrent(t *testing.T) {
	dir := t.TempDir()
	s := open(t, dir, nil)

	const n = 50
	var wg conc.WaitGroup
	for i := range n {
		wg.Go(func() {
			if err := s.Store(fmt.Sprintf("key-%02d", i), i); err != nil {
				t.Errorf("Store: %v", err)
			}
			if err := s.Persist(); err != nil {
				t.Errorf("Persist: %v", err)
			}
		})
	}
	wg.Wait()

	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	other := open(t, dir, nil)
	if got := other.Count(); got != n {
		t.Fatalf("Count = %d, want %d", got, n)
	}
	for i := range n {
		got, err := localstorage.Get[int](other, fmt.Sprintf("key-%02d", i))
		if err != nil || got != i {
			t.Errorf("key-%02d = %d, %v", i, got, err)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := open(t, t.TempDir(), nil)

	var wg conc.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			key := fmt.Sprintf("key-%d", i)
			for j := range 100 {
				if err := s.Store(key, j); err != nil {
					t.Errorf("Store: %v", err)
					return
				}
				if _, err := localstorage.Get[int](s, key); err != nil {
					t.Errorf("Get: %v", err)
					return
				}
				_ = s.Keys()
			}
		})
	}
	wg.Wait()

	if n := s.Count(); n != 8 {
		t.Errorf("Count = %d, want 8", n)
	}
}

func TestCloseAutoSave(t *testing.T) {
	t.Run("clean store is written", func(t *testing.T) {
		dir := t.TempDir()
		s, err := localstorage.New(localstorage.DefaultConfig(), localstorage.WithBaseDir(dir))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if _, err := os.Stat(s.Path()); err != nil {
			t.Fatalf("Close did not write the file: %v", err)
		}
	})

	t.Run("destroyed file is rewritten", func(t *testing.T) {
		dir := t.TempDir()
		s, err := localstorage.New(localstorage.DefaultConfig(), localstorage.WithBaseDir(dir))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := s.Store("k", "v"); err != nil {
			t.Fatalf("Store: %v", err)
		}
		if err := s.Persist(); err != nil {
			t.Fatalf("Persist: %v", err)
		}
		if err := s.Destroy(); err != nil {
			t.Fatalf("Destroy: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if other := open(t, dir, nil); !other.Exists("k") {
			t.Fatal("Close did not persist after Destroy")
		}
	})

	t.Run("memory replaces file without auto load", func(t *testing.T) {
		dir := t.TempDir()
		writer := open(t, dir, nil)
		if err := writer.Store("old", 1); err != nil {
			t.Fatalf("Store: %v", err)
		}
		if err := writer.Persist(); err != nil {
			t.Fatalf("Persist: %v", err)
		}

		cfg := localstorage.DefaultConfig()
		cfg.AutoLoad = false
		s, err := localstorage.New(cfg, localstorage.WithBaseDir(dir))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := s.Store("new", 2); err != nil {
			t.Fatalf("Store: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		other := open(t, dir, nil)
		if other.Exists("old") || !other.Exists("new") {
			t.Fatalf("file keys = %v, want [new]", other.Keys())
		}
	})

	t.Run("dirty store is persisted", func(t *testing.T) {
		dir := t.TempDir()
		s, err := localstorage.New(localstorage.DefaultConfig(), localstorage.WithBaseDir(dir))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := s.Store("k", "v"); err != nil {
			t.Fatalf("Store: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if other := open(t, dir, nil); !other.Exists("k") {
			t.Fatal("Close did not persist")
		}
	})

	t.Run("auto save off", func(t *testing.T) {
		dir := t.TempDir()
		cfg := localstorage.DefaultConfig()
		cfg.AutoSave = false
		s, err := localstorage.New(cfg, localstorage.WithBaseDir(dir))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := s.Store("k", "v"); err != nil {
			t.Fatalf("Store: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("file written with AutoSave off: %v", err)
		}
	})
}

func TestClosed(t *testing.T) {
	s, err := localstorage.New(localstorage.DefaultConfig(), localstorage.WithBaseDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Store("k", "v"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	ops := map[string]func() error{
		"store":   func() error { return s.Store("k", "v") },
		"get":     func() error { _, err := s.Get("k"); return err },
		"remove":  func() error { return s.Remove("k") },
		"clear":   s.Clear,
		"load":    s.Load,
		"persist": s.Persist,
		"destroy": s.Destroy,
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, localstorage.ErrClosed) {
			t.Errorf("%s error = %v, want ErrClosed", name, err)
		}
	}

	if !s.Exists("k") || s.Count() != 1 {
		t.Error("read-only views unavailable after Close")
	}
}

func TestCompression(t *testing.T) {
	dir := t.TempDir()
	cfg := localstorage.DefaultConfig()
	cfg.Compression = 2

	s := open(t, dir, cfg)
	long := make([]string, 100)
	for i := range long {
		long[i] = "lorem ipsum dom dolor sit amet"
	}
	if err := s.Store("long", long); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if len(data) < 4 || data[0] != 0x28 || data[1] != 0xb5 || data[2] != 0x2f || data[3] != 0xfd {
		t.Fatalf("file is not a zstd frame: % x", data[:min(len(data), 4)])
	}

	// reading does not depend on the configured level
	plain := localstorage.DefaultConfig()
	other := open(t, dir, plain)
	got, err := localstorage.Get[[]string](other, "long")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != len(long) || got[0] != long[0] {
		t.Errorf("Get returned %d items", len(got))
	}
}

func TestYAMLCodec(t *testing.T) {
	dir := t.TempDir()
	s := open(t, dir, nil, localstorage.WithCodec(localstorage.YAMLCodec{}))

	type server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	}
	if err := s.Store("server", server{"localhost", 8080}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	other := open(t, dir, nil, localstorage.WithCodec(localstorage.YAMLCodec{}))
	got, err := localstorage.Get[server](other, "server")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != (server{"localhost", 8080}) {
		t.Errorf("Get = %+v", got)
	}
}

func TestFileMode(t *testing.T) {
	s := open(t, t.TempDir(), nil)
	if err := s.Store("k", "v"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	fi, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if mode := fi.Mode().Perm(); mode != 0o644 {
		t.Errorf("mode = %o, want 644", mode)
	}
}

func TestCloseDuringReads(t *testing.T) {
	s, err := localstorage.New(encryptedConfig(),
		localstorage.WithBaseDir(t.TempDir()),
		localstorage.WithEncryptionKey("pw"),
		localstorage.WithCacheSize(0),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Store("k", lorem); err != nil {
		t.Fatalf("Store: %v", err)
	}

	var wg conc.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 200 {
				_, err := localstorage.Get[string](s, "k")
				if err != nil && !errors.Is(err, localstorage.ErrClosed) {
					t.Errorf("Get error = %v, want nil or ErrClosed", err)
					return
				}
				if err := s.Store("k", lorem); err != nil && !errors.Is(err, localstorage.ErrClosed) {
					t.Errorf("Store error = %v, want nil or ErrClosed", err)
					return
				}
			}
		})
	}
	wg.Go(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	wg.Wait()

	if _, err := s.Get("k"); !errors.Is(err, localstorage.ErrClosed) {
		t.Fatalf("Get after Close = %v, want ErrClosed", err)
	}
}
