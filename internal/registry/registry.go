// Package registry is the authoritative owner/resolver/TTL store of the naming tree.
//
// Every mutation is gated on the caller owning the target node (or, for
// subnode assignments, the parent). Ownership never cascades: owning a node
// grants mutation of that node and assignment of its direct children only.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"YakNS/internal/logger"
	"YakNS/internal/namehash"
	"YakNS/internal/storage"
)

const (
	// defaultCacheSize is the number of node records kept in memory.
	defaultCacheSize = 4096
)

// ErrUnauthorized is returned when the caller does not own the node it tries to mutate.
var ErrUnauthorized = errors.New("unauthorized")

// Registry maps namehashes to node records.
// Mutations are serialized; the ownership check and the commit happen under
// the same lock, so a caller that lost ownership is rejected without effect.
type Registry struct {
	mu      sync.RWMutex
	db      *storage.Storage
	records *recordStore
	journal *journal
	cache   *lru.Cache[common.Hash, cachedRecord]
}

// New opens the registry stored in db. On first open the root node is
// assigned to authority; an existing root is left untouched.
func New(db *storage.Storage, authority common.Address) (*Registry, error) {
	if authority == (common.Address{}) {
		return nil, fmt.Errorf("authority is required")
	}

	j, err := loadJournal(db)
	if err != nil {
		return nil, fmt.Errorf("load journal:\n%w", err)
	}

	cache, err := lru.New[common.Hash, cachedRecord](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache:\n%w", err)
	}

	r := &Registry{
		db:      db,
		records: &recordStore{db: db},
		journal: j,
		cache:   cache,
	}

	_, exists, err := r.records.get(namehash.Root)
	if err != nil {
		return nil, fmt.Errorf("load root:\n%w", err)
	}

	if !exists {
		root := Record{Owner: authority}
		ev := Event{Kind: EventTransfer, Node: namehash.Root, Addr: authority}

		if err := r.commit(namehash.Root, root, ev); err != nil {
			return nil, fmt.Errorf("init root:\n%w", err)
		}

		logger.Info("registry root initialized", "owner", authority.Hex())
	}

	return r, nil
}

// SetSubnodeOwner assigns the child of parent under labelHash to owner.
// The caller must own parent. Re-issuing the same assignment is a no-op.
func (r *Registry) SetSubnodeOwner(caller common.Address, parent, labelHash common.Hash, owner common.Address) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorize(caller, parent); err != nil {
		return common.Hash{}, err
	}

	child := namehash.Subnode(parent, labelHash)

	rec, exists := r.load(child)
	if exists && rec.Owner == owner {
		return child, nil
	}

	rec.Owner = owner
	ev := Event{Kind: EventNewOwner, Node: parent, Label: labelHash, Addr: owner}

	if err := r.commit(child, rec, ev); err != nil {
		return common.Hash{}, err
	}

	logger.Debug("subnode owner set", "parent", parent.Hex(), "node", child.Hex(), "owner", owner.Hex())

	return child, nil
}

// SetSubnodeRecord assigns owner, resolver and TTL of a child of parent in one commit.
// The caller must own parent.
func (r *Registry) SetSubnodeRecord(caller common.Address, parent, labelHash common.Hash, owner, resolver common.Address, ttl uint64) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorize(caller, parent); err != nil {
		return common.Hash{}, err
	}

	child := namehash.Subnode(parent, labelHash)
	want := Record{Owner: owner, Resolver: resolver, TTL: ttl}

	cur, exists := r.load(child)
	if exists && cur == want {
		return child, nil
	}

	events := []Event{{Kind: EventNewOwner, Node: parent, Label: labelHash, Addr: owner}}
	if cur.Resolver != resolver {
		events = append(events, Event{Kind: EventNewResolver, Node: child, Addr: resolver})
	}
	if cur.TTL != ttl {
		events = append(events, Event{Kind: EventNewTTL, Node: child, TTL: ttl})
	}

	if err := r.commit(child, want, events...); err != nil {
		return common.Hash{}, err
	}

	logger.Debug("subnode record set", "parent", parent.Hex(), "node", child.Hex(), "owner", owner.Hex(), "resolver", resolver.Hex(), "ttl", ttl)

	return child, nil
}

// SetOwner transfers node to owner. The caller must own node.
// Transferring to the zero address retires the node; its record persists.
func (r *Registry) SetOwner(caller common.Address, node common.Hash, owner common.Address) error {
	return r.update(caller, node, func(rec *Record) (Event, bool) {
		if rec.Owner == owner {
			return Event{}, false
		}

		rec.Owner = owner

		return Event{Kind: EventTransfer, Node: node, Addr: owner}, true
	})
}

// SetResolver points node at a resolver instance. The caller must own node.
func (r *Registry) SetResolver(caller common.Address, node common.Hash, resolver common.Address) error {
	return r.update(caller, node, func(rec *Record) (Event, bool) {
		if rec.Resolver == resolver {
			return Event{}, false
		}

		rec.Resolver = resolver

		return Event{Kind: EventNewResolver, Node: node, Addr: resolver}, true
	})
}

// SetTTL sets the TTL of node. The caller must own node.
func (r *Registry) SetTTL(caller common.Address, node common.Hash, ttl uint64) error {
	return r.update(caller, node, func(rec *Record) (Event, bool) {
		if rec.TTL == ttl {
			return Event{}, false
		}

		rec.TTL = ttl

		return Event{Kind: EventNewTTL, Node: node, TTL: ttl}, true
	})
}

// RecordWrite queues a resolver record change on b. It reports false when
// the record already holds the requested value.
type RecordWrite func(b *storage.Batch) (bool, error)

// Publish commits a resolver record change together with its journal entry,
// if caller owns node. ev.Node is set to node. Writes that change nothing are
// not journaled.
func (r *Registry) Publish(caller common.Address, node common.Hash, ev Event, write RecordWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorize(caller, node); err != nil {
		return err
	}

	batch := r.db.NewBatch()
	defer batch.Close()

	changed, err := write(batch)
	if err != nil {
		return fmt.Errorf("queue record:\n%w", err)
	}
	if !changed {
		return nil
	}

	ev.Node = node

	if err := r.apply(batch, ev); err != nil {
		return fmt.Errorf("commit record on %s:\n%w", node.Hex(), err)
	}

	return nil
}

// Owner returns the owner of node, or the zero address if the node is absent.
func (r *Registry) Owner(node common.Hash) common.Address {
	return r.Record(node).Owner
}

// Resolver returns the resolver of node, or the zero address.
func (r *Registry) Resolver(node common.Hash) common.Address {
	return r.Record(node).Resolver
}

// TTL returns the TTL of node, or 0.
func (r *Registry) TTL(node common.Hash) uint64 {
	return r.Record(node).TTL
}

// Record returns the full record of node. Absent nodes yield a zero record.
func (r *Registry) Record(node common.Hash) Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, _ := r.load(node)

	return rec
}

// RecordExists reports whether node was ever the target of an owner assignment.
func (r *Registry) RecordExists(node common.Hash) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.load(node)

	return exists
}

// Events calls fn for each journal entry with sequence >= from, in commit order.
func (r *Registry) Events(from uint64, fn func(Event) error) error {
	return r.journal.iterate(from, fn)
}

// Head returns the sequence the next journal entry will receive.
func (r *Registry) Head() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.journal.next
}

// update applies an owner-gated change to an existing node.
// mutate returns false when the record is already in the requested state.
func (r *Registry) update(caller common.Address, node common.Hash, mutate func(*Record) (Event, bool)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorize(caller, node); err != nil {
		return err
	}

	rec, _ := r.load(node)

	ev, changed := mutate(&rec)
	if !changed {
		return nil
	}

	if err := r.commit(node, rec, ev); err != nil {
		return err
	}

	logger.Debug("node updated", "event", ev.Kind.String(), "node", node.Hex())

	return nil
}

// authorize checks that caller is the current owner of node. Callers hold r.mu (read or write).
// The zero address never authorizes, so unowned nodes cannot be claimed through it.
func (r *Registry) authorize(caller common.Address, node common.Hash) error {
	rec, _ := r.load(node)

	if caller == (common.Address{}) || rec.Owner != caller {
		logger.Debug("mutation rejected", "node", node.Hex(), "caller", caller.Hex(), "owner", rec.Owner.Hex())
		return fmt.Errorf("%w: %s does not own %s", ErrUnauthorized, caller.Hex(), node.Hex())
	}

	return nil
}

// commit writes the record and its journal entries in one batch, then
// refreshes the cache. On failure nothing is visible. Callers hold r.mu.
func (r *Registry) commit(node common.Hash, rec Record, events ...Event) error {
	batch := r.db.NewBatch()
	defer batch.Close()

	if err := r.records.put(batch, node, rec); err != nil {
		return fmt.Errorf("queue record:\n%w", err)
	}

	if err := r.apply(batch, events...); err != nil {
		return fmt.Errorf("commit node %s:\n%w", node.Hex(), err)
	}

	r.cache.Add(node, cachedRecord{rec: rec, exists: true})

	return nil
}

// apply appends events to the batch at the next sequences and commits it.
// The journal head only advances once the batch is applied. Callers hold r.mu.
func (r *Registry) apply(batch *storage.Batch, events ...Event) error {
	var last uint64
	for i, ev := range events {
		ev.Seq = r.journal.next + uint64(i)

		seq, err := r.journal.appendAt(batch, ev)
		if err != nil {
			return fmt.Errorf("queue event:\n%w", err)
		}

		last = seq
	}

	if err := batch.Commit(); err != nil {
		return err
	}

	if len(events) > 0 {
		r.journal.committed(last)
	}

	return nil
}

// load reads a record through the cache. Callers hold r.mu (read or write).
// Storage errors are logged and reported as an absent node.
func (r *Registry) load(node common.Hash) (Record, bool) {
	if c, ok := r.cache.Get(node); ok {
		return c.rec, c.exists
	}

	rec, exists, err := r.records.get(node)
	if err != nil {
		logger.Error("registry read failed", "node", node.Hex(), "error", err)
		return Record{}, false
	}

	r.cache.Add(node, cachedRecord{rec: rec, exists: exists})

	return rec, exists
}
