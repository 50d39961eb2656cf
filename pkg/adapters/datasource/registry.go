package datasource

import (
	"context"
	"fmt"
	"sync"
)

// AdapterInfo describes a registered driver for discovery endpoints.
type AdapterInfo struct {
	Driver      string `json:"driver"`       // "postgres", "sqlserver"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
}

// Registration bundles the factories a driver contributes. Transient
// factories (tester, introspector) dial their own short-lived connection;
// PoolFactory builds the long-lived cached resource; ExecutorFactory binds
// an executor to an already-built resource.
type Registration struct {
	Info                AdapterInfo
	TesterFactory       func(ctx context.Context, cfg ConnConfig) (ConnectionTester, error)
	IntrospectorFactory func(ctx context.Context, cfg ConnConfig) (SchemaIntrospector, error)
	PoolFactory         func(ctx context.Context, cfg ConnConfig, poolCfg PoolConfig) (PoolConnector, error)
	ExecutorFactory     func(pool PoolConnector) (QueryExecutor, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter's init(). Thread-safe.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Driver] = reg
}

// RegisteredAdapters returns info for all registered drivers.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// Lookup returns the registration for a driver.
func Lookup(driver string) (Registration, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	reg, ok := registry[driver]
	if !ok {
		return Registration{}, fmt.Errorf("unsupported driver: %s (not compiled in)", driver)
	}
	return reg, nil
}

// IsRegistered checks whether a driver is available.
func IsRegistered(driver string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[driver]
	return ok
}
