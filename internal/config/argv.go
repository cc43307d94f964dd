package config

import (
	"fmt"
	"strings"
)

// Flags mirrors the CLI's recognised short/long options (spec.md §6),
// populated by cobra flag binding in cmd/pppoat before ReadArgv runs.
type Flags struct {
	Help      bool
	Config    string
	Interface string
	Transport string
	Server    bool
	List      bool
	Verbose   bool
}

// ReadArgv is the argv configuration source: it always wins over the
// file source, because it is applied first and Store.Set (unlike
// SetIfAbsent) always overwrites. Boolean flags are stored as "1" when
// set, matching conf_argv.c's conf_argv_store_single, which stores "1"
// for any flag without an explicit argument.
//
// positional holds the CLI's trailing "key=value" arguments, applied in
// order after the named flags (conf_argv.c's trailing-argv loop); an
// entry without an "=" stores its whole text as the key with the value
// "1", an entry with an empty key is rejected, and an entry starting
// with "-" is rejected, mirroring the original's treatment of stray
// options reaching the positional scan.
func ReadArgv(store *Store, f Flags, positional []string) error {
	if f.Help {
		store.Set("help", "1")
	}
	if f.Config != "" {
		store.Set("config", f.Config)
	}
	if f.Interface != "" {
		store.Set("interface", f.Interface)
	}
	if f.Transport != "" {
		store.Set("transport", f.Transport)
	}
	if f.Server {
		store.Set("server", "1")
	}
	if f.List {
		store.Set("list", "1")
	}
	if f.Verbose {
		store.Set("verbose", "1")
	}

	for _, arg := range positional {
		if strings.HasPrefix(arg, "-") {
			return fmt.Errorf("config: unexpected option in positional arguments: %q", arg)
		}
		idx := strings.Index(arg, "=")
		key := arg
		val := "1"
		if idx >= 0 {
			key = arg[:idx]
			val = arg[idx+1:]
		}
		if key == "" {
			return fmt.Errorf("config: empty key in positional argument %q", arg)
		}
		store.Set(key, val)
	}
	return nil
}
