package browse

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory builds a Session against an automation endpoint.
type Factory func(ctx context.Context, endpoint string) (Session, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Factory)
)

// RegisterDriver makes an automation driver available under a name. Drivers
// register from their package init, the way database/sql drivers do.
// Registering a duplicate name or a nil factory panics.
func RegisterDriver(name string, factory Factory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if factory == nil {
		panic("browse: RegisterDriver factory is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("browse: RegisterDriver called twice for driver " + name)
	}
	drivers[name] = factory
}

// Drivers lists the registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewSession opens a session with the named driver.
func NewSession(ctx context.Context, name, endpoint string) (Session, error) {
	driversMu.RLock()
	factory, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("browse: unknown automation driver %q (registered: %v)", name, Drivers())
	}
	return factory(ctx, endpoint)
}
