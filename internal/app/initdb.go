package app

import (
	"go.uber.org/zap"
)

// restoreSnapshot loads the last saved snapshot into the empty registries
func (a *Application) restoreSnapshot() error {
	snap, err := a.snapshots.Load()
	if err != nil {
		return err
	}

	a.users.Restore(snap.Users)
	for _, c := range snap.Clients {
		a.clients.Upsert(c)
	}
	for _, i := range snap.Invoices {
		a.invoices.Upsert(i)
	}
	for _, p := range snap.Products {
		a.products.Upsert(p)
	}

	zap.L().Info("restored registries from snapshot",
		zap.Int("users", len(snap.Users)),
		zap.Int("clients", len(snap.Clients)),
		zap.Int("invoices", len(snap.Invoices)),
		zap.Int("products", len(snap.Products)))
	return nil
}

// SaveSnapshot copies every registry and writes the copy to the snapshot store
func (a *Application) SaveSnapshot() error {
	if a.snapshots == nil {
		return nil
	}
	return a.snapshots.Save(Snapshot{
		Users:    a.users.List(),
		Clients:  a.clients.List(),
		Invoices: a.invoices.List(),
		Products: a.products.List(),
	})
}
