package ledger

import "swapvault/storage"

// Overlay is a read-through write buffer over a storage.Database. Every
// ledger operation runs against a fresh overlay: reads fall through to the
// backing store, writes and deletes accumulate in memory, and Commit flushes
// them as one atomic batch. Discarding the overlay leaves the store
// untouched, which is the whole recovery mechanism — nothing partial ever
// reaches disk.
type Overlay struct {
	db      storage.Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

func NewOverlay(db storage.Database) *Overlay {
	return &Overlay{
		db:      db,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	k := string(key)
	if _, gone := o.deletes[k]; gone {
		return nil, storage.ErrNotFound
	}
	if v, ok := o.writes[k]; ok {
		return append([]byte(nil), v...), nil
	}
	return o.db.Get(key)
}

func (o *Overlay) Put(key []byte, value []byte) error {
	k := string(key)
	delete(o.deletes, k)
	o.writes[k] = append([]byte(nil), value...)
	return nil
}

func (o *Overlay) Has(key []byte) (bool, error) {
	k := string(key)
	if _, gone := o.deletes[k]; gone {
		return false, nil
	}
	if _, ok := o.writes[k]; ok {
		return true, nil
	}
	return o.db.Has(key)
}

func (o *Overlay) Delete(key []byte) error {
	k := string(key)
	delete(o.writes, k)
	o.deletes[k] = struct{}{}
	return nil
}

// Dirty reports whether the overlay holds any uncommitted effect.
func (o *Overlay) Dirty() bool {
	return len(o.writes) > 0 || len(o.deletes) > 0
}

// Commit writes every buffered effect to the backing store in one batch and
// resets the overlay.
func (o *Overlay) Commit() error {
	if !o.Dirty() {
		return nil
	}
	batch := o.db.NewBatch()
	for k, v := range o.writes {
		batch.Put([]byte(k), v)
	}
	for k := range o.deletes {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]struct{})
	return nil
}
