package app

import (
	"context"

	"github.com/talkincode/toughcrm/config"
	"github.com/talkincode/toughcrm/internal/auth"
	"github.com/talkincode/toughcrm/internal/csvbridge"
	"github.com/talkincode/toughcrm/internal/domain"
	"github.com/talkincode/toughcrm/internal/metrics"
	"github.com/talkincode/toughcrm/internal/registry"
)

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// RegistryProvider provides read access to the entity registries
type RegistryProvider interface {
	Clients() *registry.Registry[domain.Client]
	Invoices() *registry.Registry[domain.Invoice]
	Products() *registry.Registry[domain.Product]
}

// UserProvider provides the user store and token verification
type UserProvider interface {
	Users() *auth.UserStore
}

// BridgeProvider provides CSV import/export
type BridgeProvider interface {
	Bridge() *csvbridge.Bridge
}

// MetricsProvider provides the metrics store
type MetricsProvider interface {
	Metrics() *metrics.Metrics
}

// JobProvider exposes the scheduler state
type JobProvider interface {
	Jobs() []JobInfo
	RunJob(name string) error
}

// AppContext combines all provider interfaces with the mutating operations.
// Mutations go through these methods so events and metrics stay consistent.
type AppContext interface {
	ConfigProvider
	RegistryProvider
	UserProvider
	BridgeProvider
	MetricsProvider
	JobProvider

	RegisterUser(email, password string) (domain.User, error)
	CreateClient(client domain.Client, password string) (domain.Client, error)
	CreateInvoice(invoice domain.Invoice) (domain.Invoice, error)
	CreateProduct(product domain.Product) (domain.Product, error)
	ImportClients(ctx context.Context, data []byte) (csvbridge.ImportResult, error)

	// SaveSnapshot writes all registries to the snapshot store, a no-op for memory storage
	SaveSnapshot() error
	Release()
}
