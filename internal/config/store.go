// Package config implements pppoat2's configuration store: a flat,
// string-keyed record set populated from two sources (command-line
// arguments and an INI file), with argv taking precedence.
//
// Grounded on original_source/src/conf_argv.c and conf_file.c. A
// generic INI library is deliberately not used: the precedence rule
// (argv read first, file source silently skips a key already present)
// and the section-prefixing rule (section "core", or no section,
// produces bare keys; any other section produces "section.key") are
// bespoke to this program, and spec.md §1 names this loader as an
// out-of-scope collaborator rather than something borrowed off the
// shelf. See DESIGN.md for the full justification.
package config

import (
	"errors"
	"strconv"
)

// ErrNotFound is returned by the Find* lookups when a key has no record.
var ErrNotFound = errors.New("config: not found")

// Store is a flat set of string-valued records. The zero value is not
// usable; use New.
type Store struct {
	records map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{records: make(map[string]string)}
}

// Set stores val under key, replacing any existing record (single
// record per key, per spec.md §8's config-precedence invariant). Used
// by the argv source, which always wins.
func (s *Store) Set(key, val string) {
	s.records[key] = val
}

// SetIfAbsent stores val under key only if key has no record yet, and
// reports whether it did so. Used by the file source, which is
// subordinate to argv.
func (s *Store) SetIfAbsent(key, val string) bool {
	if _, ok := s.records[key]; ok {
		return false
	}
	s.records[key] = val
	return true
}

// Drop removes a key's record. A subsequent lookup returns ErrNotFound.
func (s *Store) Drop(key string) {
	delete(s.records, key)
}

// Lookup returns the raw string value for key.
func (s *Store) Lookup(key string) (string, bool) {
	v, ok := s.records[key]
	return v, ok
}

// FindString returns the string value for key.
func (s *Store) FindString(key string) (string, error) {
	v, ok := s.records[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// FindStringDefault is FindString with a fallback when the key is absent.
func (s *Store) FindStringDefault(key, def string) string {
	v, err := s.FindString(key)
	if err != nil {
		return def
	}
	return v
}

// FindLong returns the integer value for key.
func (s *Store) FindLong(key string) (int64, error) {
	v, ok := s.records[key]
	if !ok {
		return 0, ErrNotFound
	}
	return strconv.ParseInt(v, 10, 64)
}

// FindBool returns the boolean value for key. Per spec.md §6, the value
// is false iff it is exactly "0", "false", "False", or "FALSE"; any
// other present value (including the empty string) is true.
func (s *Store) FindBool(key string) (bool, error) {
	v, ok := s.records[key]
	if !ok {
		return false, ErrNotFound
	}
	switch v {
	case "0", "false", "False", "FALSE":
		return false, nil
	default:
		return true, nil
	}
}
