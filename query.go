package localstorage

import "iter"

// Get returns the value stored under key decoded as T.
func Get[T any](s *LocalStorage, key string) (T, error) {
	var out T
	if err := s.decode("get", key, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Query decodes the value stored under key as a collection of T and yields the
// elements matching predicate. A nil predicate matches every element.
//
// Lookup and decode errors are returned immediately; filtering happens as the
// sequence is consumed.
func Query[T any](s *LocalStorage, key string, predicate func(T) bool) (iter.Seq[T], error) {
	var items []T
	if err := s.decode("query", key, &items); err != nil {
		return nil, err
	}
	return func(yield func(T) bool) {
		for _, item := range items {
			if predicate != nil && !predicate(item) {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}, nil
}
