package config

import (
	"fmt"
	"os"
)

// MissingVarError reports a required environment variable that has no value
// and no default. Configuration errors are operator errors: callers treat
// this as fatal and abort startup.
type MissingVarError struct {
	Name string
}

func (e *MissingVarError) Error() string {
	return fmt.Sprintf("config: required environment variable %s is not set", e.Name)
}

// Resolver reads configuration values from the process environment.
// The lookup function is injectable so tests can resolve against a fixed
// map instead of mutating the real environment.
type Resolver struct {
	lookup func(string) (string, bool)
}

// NewResolver returns a Resolver backed by os.LookupEnv.
func NewResolver() *Resolver {
	return &Resolver{lookup: os.LookupEnv}
}

// NewResolverFunc returns a Resolver backed by the given lookup.
func NewResolverFunc(lookup func(string) (string, bool)) *Resolver {
	return &Resolver{lookup: lookup}
}

// Require returns the value of a required variable, or a *MissingVarError
// naming it when unset. A variable set to the empty string counts as set.
func (r *Resolver) Require(name string) (string, error) {
	if v, ok := r.lookup(name); ok {
		return v, nil
	}
	return "", &MissingVarError{Name: name}
}

// Get returns the variable's value, or def when it is unset.
func (r *Resolver) Get(name, def string) string {
	if v, ok := r.lookup(name); ok {
		return v
	}
	return def
}
