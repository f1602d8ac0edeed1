package app

import (
	"context"

	"github.com/pkg/errors"

	"github.com/talkincode/toughcrm/internal/csvbridge"
	"github.com/talkincode/toughcrm/internal/domain"
)

func (a *Application) RegisterUser(email, password string) (domain.User, error) {
	user, err := a.users.Register(email, password)
	if err != nil {
		return user, err
	}
	a.bus.Publish(TopicUserRegistered, user.ID)
	return user, nil
}

// CreateClient stores the bcrypt hash of password, never the password itself
func (a *Application) CreateClient(client domain.Client, password string) (domain.Client, error) {
	if _, err := a.clients.Get(client.ID); err == nil {
		return domain.Client{}, errors.Wrapf(domain.ErrConflict, "%s id %d", domain.TableClients, client.ID)
	}
	hash, err := a.hasher.Hash(password)
	if err != nil {
		return domain.Client{}, err
	}
	client.PasswordHash = hash

	created, err := a.clients.Create(client)
	if err != nil {
		return created, err
	}
	a.bus.Publish(TopicRegistryCreated, domain.TableClients, created.ID)
	return created, nil
}

func (a *Application) CreateInvoice(invoice domain.Invoice) (domain.Invoice, error) {
	created, err := a.invoices.Create(invoice)
	if err != nil {
		return created, err
	}
	a.bus.Publish(TopicRegistryCreated, domain.TableInvoices, created.ID)
	return created, nil
}

func (a *Application) CreateProduct(product domain.Product) (domain.Product, error) {
	created, err := a.products.Create(product)
	if err != nil {
		return created, err
	}
	a.bus.Publish(TopicRegistryCreated, domain.TableProducts, created.ID)
	return created, nil
}

func (a *Application) ImportClients(ctx context.Context, data []byte) (csvbridge.ImportResult, error) {
	res, err := a.bridge.ImportClients(ctx, data)
	if err != nil {
		return res, err
	}
	a.bus.Publish(TopicRegistryImported, domain.TableClients, res.Imported)
	return res, nil
}
