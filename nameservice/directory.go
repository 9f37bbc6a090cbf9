// Package nameservice maps endpoint names such as "/fakeyServer/rpc" to network addresses.
package nameservice

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrNameNotFound is returned by Resolve for names that were never registered.
var ErrNameNotFound = errors.New("name not registered")

// Directory is a concurrency safe name to address table.
type Directory struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewDirectory returns a directory seeded with "name=address" entries.
func NewDirectory(seed ...string) (*Directory, error) {
	d := &Directory{entries: map[string]string{}}
	for _, entry := range seed {
		name, addr, ok := strings.Cut(entry, "=")
		if !ok || name == "" || addr == "" {
			return nil, errors.Errorf("expected \"name=address\" but got %q", entry)
		}
		if err := d.Register(name, addr); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register maps `name` to `addr`. Registering a name that already maps to a different address is
// an error.
func (d *Directory) Register(name, addr string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.entries[name]; ok && existing != addr {
		return errors.Errorf("name %q already registered at %s", name, existing)
	}
	d.entries[name] = addr
	return nil
}

// Unregister removes `name`. Unknown names are ignored.
func (d *Directory) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, name)
}

// Resolve returns the address registered for `name`.
func (d *Directory) Resolve(name string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	addr, ok := d.entries[name]
	if !ok {
		return "", errors.Wrapf(ErrNameNotFound, "%q", name)
	}
	return addr, nil
}

// Names returns the registered names in sorted order.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := lo.Keys(d.entries)
	sort.Strings(names)
	return names
}

// ValidateName checks that `name` is an absolute, slash separated endpoint name.
func ValidateName(name string) error {
	if !strings.HasPrefix(name, "/") || len(name) < 2 {
		return errors.Errorf("name %q must start with \"/\"", name)
	}
	if strings.ContainsAny(name, " \t\n=") {
		return errors.Errorf("name %q must not contain whitespace or \"=\"", name)
	}
	return nil
}
