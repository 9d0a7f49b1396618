package localstorage

// Storage is the public contract of LocalStorage, for callers that want to
// depend on an interface. Typed reads go through Get and Query, which take a
// *LocalStorage.
type Storage interface {
	Store(key string, value any) error
	Get(key string) (Value, error)
	GetInto(key string, out any) error
	Remove(key string) error
	Exists(key string) bool
	Keys() []string
	Count() int

	Load() error    // replace memory with the backing file
	Persist() error // write memory to the backing file
	Clear() error   // empty memory, keep the file
	Destroy() error // delete the file, keep memory
	Close() error   // persists when AutoSave is set
}

var _ Storage = (*LocalStorage)(nil)
