package db

import (
	"fmt"
	"sync/atomic"
)

// Provider returns the current database instance.
type Provider interface {
	Current() Database
}

// Manager holds the active database instance and supports swapping it
// atomically, for example during a controlled failover.
type Manager struct {
	current atomic.Value
}

// NewManager creates a Manager seeded with the given database instance.
func NewManager(database Database) *Manager {
	m := &Manager{}
	m.current.Store(database)
	return m
}

// Current returns the active database instance.
func (m *Manager) Current() Database {
	if m == nil {
		return nil
	}
	value := m.current.Load()
	if value == nil {
		return nil
	}
	return value.(Database)
}

// Swap replaces the active database instance and returns the previous one.
func (m *Manager) Swap(next Database) Database {
	prev := m.Current()
	m.current.Store(next)
	return prev
}

// CurrentDatabase fetches the active database from provider, guarding
// against a nil provider or an unset instance.
func CurrentDatabase(provider Provider) (Database, error) {
	if provider == nil {
		return nil, fmt.Errorf("database provider is nil")
	}
	database := provider.Current()
	if database == nil {
		return nil, fmt.Errorf("database is nil")
	}
	return database, nil
}
