// Package localstorage provides an embeddable, file-backed key-value store for
// application-local data.
//
// Values of any encodable type are stored under string keys, kept in memory and
// written to a single file on demand. Values can be encrypted at rest.
//
// Basic usage:
//
//	s, _ := localstorage.New(localstorage.DefaultConfig())
//	defer s.Close() // persists when AutoSave is set
//
//	// Store values of any type
//	s.Store("greeting", "hello")
//	s.Store("launched", time.Now())
//
//	// Read them back typed
//	greeting, _ := localstorage.Get[string](s, "greeting")
//
//	// Or without knowing the type
//	v, _ := s.Get("greeting")
//	fmt.Println(v.Kind(), v)
//
//	// Query a stored collection
//	s.Store("cars", cars)
//	bmws, _ := localstorage.Query(s, "cars", func(c Car) bool { return c.Brand == "BMW" })
//	for car := range bmws { ... }
//
//	// Lifecycle
//	s.Persist() // write the file now
//	s.Clear()   // empty memory, keep the file
//	s.Destroy() // delete the file, keep memory
//
// With encryption:
//
//	cfg := localstorage.DefaultConfig()
//	cfg.EnableEncryption = true
//	cfg.EncryptionSalt = "SALT-N-PEPPA"
//	s, _ := localstorage.New(cfg, localstorage.WithEncryptionKey(password))
//
// The salt is not stored in the file. Data written with one salt can only be
// read back with the same salt; use Rekey to move values to a new password.
package localstorage
