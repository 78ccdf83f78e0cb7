package repositories

import (
	"chat-stress/contract"
	"chat-stress/domain"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const identityPrefix = "identity:"

// IdentityRepository keeps the provisioned identities so that a cleanup pass
// can run later, from another process.
type IdentityRepository struct {
	db *badger.DB
}

func NewIdentityRepository(db *badger.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Save upserts identities keyed by email in a single transaction batch.
func (r *IdentityRepository) Save(identities ...domain.Identity) error {
	if len(identities) == 0 {
		return nil
	}
	wb := r.db.NewWriteBatch()
	defer wb.Cancel()

	for _, identity := range identities {
		data, err := json.Marshal(identity)
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		if err = wb.Set(identityKey(identity.Email), data); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// List returns identities ordered by email.
func (r *IdentityRepository) List() ([]domain.Identity, error) {
	var identities []domain.Identity
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(identityPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var identity domain.Identity
				if err := json.Unmarshal(val, &identity); err != nil {
					return err
				}
				identities = append(identities, identity)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return identities, err
}

// Delete ignores emails that are not listed.
func (r *IdentityRepository) Delete(emails ...string) error {
	if len(emails) == 0 {
		return nil
	}
	wb := r.db.NewWriteBatch()
	defer wb.Cancel()

	for _, email := range emails {
		if err := wb.Delete(identityKey(email)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (r *IdentityRepository) Clear() error {
	return r.db.DropPrefix([]byte(identityPrefix))
}

func identityKey(email string) []byte {
	return []byte(identityPrefix + email)
}

var _ contract.IIdentityRepository = (*IdentityRepository)(nil)
