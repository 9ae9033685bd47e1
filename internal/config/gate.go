package config

import (
	"errors"
	"fmt"
)

// ErrEnvironmentForbidden is returned when the process runs outside its
// allow-list. Every state-touching operation checks it first.
var ErrEnvironmentForbidden = errors.New("environment not in allow-list")

// Gate is the deployment allow-list. An empty allow-list refuses every
// environment; the rail fails closed rather than defaulting open.
type Gate struct {
	Current string
	Allowed []string
}

// Check reports whether the current environment may operate.
func (g Gate) Check() error {
	if len(g.Allowed) == 0 {
		return fmt.Errorf("%w: allow-list is empty", ErrEnvironmentForbidden)
	}
	for _, allowed := range g.Allowed {
		if g.Current == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %q not in %v", ErrEnvironmentForbidden, g.Current, g.Allowed)
}
