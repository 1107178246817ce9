// badger.go - Persistent spend registry on badger.
//
// One key per set member, prefixed by kind. A Batch maps onto a single
// badger transaction, so Commit/Discard inherit badger's atomicity.

package registry

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
)

var (
	prefixCommitment = []byte("c/")
	prefixNullifier  = []byte("n/")
	prefixFooter     = []byte("f/")
	prefixLock       = []byte("l/")
)

// Badger is the persistent Store.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the registry database at path.
func OpenBadger(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open registry db: %w", err)
	}
	return &Badger{db: db}, nil
}

func key(prefix []byte, id common.Hash) []byte {
	k := make([]byte, 0, len(prefix)+common.HashLength)
	k = append(k, prefix...)
	return append(k, id[:]...)
}

func (s *Badger) has(prefix []byte, id common.Hash) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key(prefix, id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (s *Badger) IsCommitmentCreated(id common.Hash) (bool, error) {
	return s.has(prefixCommitment, id)
}

func (s *Badger) IsNullifierUsed(id common.Hash) (bool, error) {
	return s.has(prefixNullifier, id)
}

func (s *Badger) IsNullifierLocked(id common.Hash) (bool, error) {
	return s.has(prefixLock, id)
}

func (s *Badger) IsFooterUsed(id common.Hash) (bool, error) {
	return s.has(prefixFooter, id)
}

func (s *Badger) SetNullifierLocked(id common.Hash, locked bool) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if locked {
			return txn.Set(key(prefixLock, id), nil)
		}
		err := txn.Delete(key(prefixLock, id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (s *Badger) Batch() (Batch, error) {
	return &badgerBatch{txn: s.db.NewTransaction(true)}, nil
}

func (s *Badger) Close() error {
	return s.db.Close()
}

type badgerBatch struct {
	txn *badger.Txn
}

// markOnce sets the key iff it is absent, mapping a repeat to sentinel.
func (b *badgerBatch) markOnce(prefix []byte, id common.Hash, sentinel error) error {
	k := key(prefix, id)
	_, err := b.txn.Get(k)
	if err == nil {
		return sentinel
	}
	if err != badger.ErrKeyNotFound {
		return err
	}
	return b.txn.Set(k, nil)
}

func (b *badgerBatch) MarkCommitmentCreated(id common.Hash) error {
	return b.markOnce(prefixCommitment, id, ErrNoteAlreadyCreated)
}

func (b *badgerBatch) MarkNullifierUsed(id common.Hash) error {
	return b.markOnce(prefixNullifier, id, ErrNullifierUsed)
}

func (b *badgerBatch) MarkFooterUsed(id common.Hash) error {
	return b.markOnce(prefixFooter, id, ErrNoteFooterUsed)
}

func (b *badgerBatch) Commit() error {
	return b.txn.Commit()
}

func (b *badgerBatch) Discard() {
	b.txn.Discard()
}
