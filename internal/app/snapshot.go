package app

import (
	"encoding/binary"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/talkincode/toughcrm/internal/domain"
)

// snapshotJSON ignores json tags so password hashes survive a restart
var snapshotJSON = jsoniter.Config{TagKey: "snapshot", SortMapKeys: true}.Froze()

// Snapshot is a full copy of every registry
type Snapshot struct {
	Users    []domain.User
	Clients  []domain.Client
	Invoices []domain.Invoice
	Products []domain.Product
}

// SnapshotStore persists snapshots in a bbolt file, one bucket per registry
type SnapshotStore struct {
	db *bolt.DB
}

func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open snapshot store %s", path)
	}
	return &SnapshotStore{db: db}, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// putAll replaces the bucket content with records
func putAll[T interface{ Key() int64 }](tx *bolt.Tx, bucket string, records []T) error {
	if tx.Bucket([]byte(bucket)) != nil {
		if err := tx.DeleteBucket([]byte(bucket)); err != nil {
			return err
		}
	}
	b, err := tx.CreateBucket([]byte(bucket))
	if err != nil {
		return err
	}
	for _, rec := range records {
		data, err := snapshotJSON.Marshal(rec)
		if err != nil {
			return err
		}
		if err := b.Put(itob(rec.Key()), data); err != nil {
			return err
		}
	}
	return nil
}

func getAll[T any](tx *bolt.Tx, bucket string) ([]T, error) {
	b := tx.Bucket([]byte(bucket))
	if b == nil {
		return nil, nil
	}
	var out []T
	err := b.ForEach(func(_, v []byte) error {
		var rec T
		if err := snapshotJSON.Unmarshal(v, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// Save writes snap in a single transaction
func (s *SnapshotStore) Save(snap Snapshot) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := putAll(tx, domain.TableUsers, snap.Users); err != nil {
			return err
		}
		if err := putAll(tx, domain.TableClients, snap.Clients); err != nil {
			return err
		}
		if err := putAll(tx, domain.TableInvoices, snap.Invoices); err != nil {
			return err
		}
		return putAll(tx, domain.TableProducts, snap.Products)
	})
	return errors.Wrap(err, "save snapshot")
}

func (s *SnapshotStore) Load() (Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		if snap.Users, err = getAll[domain.User](tx, domain.TableUsers); err != nil {
			return err
		}
		if snap.Clients, err = getAll[domain.Client](tx, domain.TableClients); err != nil {
			return err
		}
		if snap.Invoices, err = getAll[domain.Invoice](tx, domain.TableInvoices); err != nil {
			return err
		}
		snap.Products, err = getAll[domain.Product](tx, domain.TableProducts)
		return err
	})
	return snap, errors.Wrap(err, "load snapshot")
}
