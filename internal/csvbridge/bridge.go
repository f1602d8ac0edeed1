// Package csvbridge moves client records in and out of the registries as
// CSV (and XLSX for the summary export).
package csvbridge

import (
	"github.com/go-playground/validator/v10"

	"github.com/talkincode/toughcrm/internal/domain"
	"github.com/talkincode/toughcrm/internal/validation"
)

// ClientStore is the part of the client registry the bridge needs
type ClientStore interface {
	List() []domain.Client
	Upsert(domain.Client) bool
	Merge(rec domain.Client, merge func(existing, incoming domain.Client) domain.Client) bool
}

// InvoiceStore is the part of the invoice registry the bridge needs
type InvoiceStore interface {
	Ascend(func(domain.Invoice) bool)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type Bridge struct {
	clients  ClientStore
	invoices InvoiceStore
	hasher   PasswordHasher
	workers  int
	validate *validator.Validate
}

// New builds a Bridge; workers bounds the password hashing pool used by imports
func New(clients ClientStore, invoices InvoiceStore, hasher PasswordHasher, workers int) *Bridge {
	if workers <= 0 {
		workers = 4
	}
	return &Bridge{
		clients:  clients,
		invoices: invoices,
		hasher:   hasher,
		workers:  workers,
		validate: validation.New(),
	}
}
