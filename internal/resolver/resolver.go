// Package resolver stores per-node resolution records and implements the
// lookup protocol: registry resolver pointer first, then the record itself.
package resolver

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"YakNS/internal/logger"
	"YakNS/internal/registry"
	"YakNS/internal/storage"
)

var (
	// ErrInvalidRecord is returned for values that do not fit their kind.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrNoResolver is returned when a node has no resolver set.
	ErrNoResolver = errors.New("no resolver")

	// ErrUnknownResolver is returned when a node points at a resolver not in the directory.
	ErrUnknownResolver = errors.New("unknown resolver")

	// ErrRecordNotFound is returned when the resolver has no record of the requested kind.
	ErrRecordNotFound = errors.New("record not found")
)

// recordKeyPrefix is the Pebble key prefix for resolver records.
var recordKeyPrefix = []byte("r:")

// Publisher gates record writes on node ownership and journals them.
type Publisher interface {
	Publish(caller common.Address, node common.Hash, ev registry.Event, write registry.RecordWrite) error
}

// Resolver holds records for any node that points at it. Writes require
// the caller to own the node in the registry at the time of the write.
type Resolver struct {
	addr common.Address   // addr is the resolver's own identity
	pub  Publisher        // pub is the registry committing each write
	db   *storage.Storage // db holds the records
}

// New creates a resolver identified by addr.
func New(addr common.Address, pub Publisher, db *storage.Storage) *Resolver {
	return &Resolver{addr: addr, pub: pub, db: db}
}

// Address returns the resolver's identity, the value nodes store as their resolver.
func (r *Resolver) Address() common.Address {
	return r.addr
}

// SetRecord writes a record of kind for node. An empty value clears it.
// Text records need a key; use SetText.
func (r *Resolver) SetRecord(caller common.Address, node common.Hash, kind Kind, value []byte) error {
	if kind == KindText {
		return fmt.Errorf("%w: text records need a key", ErrInvalidRecord)
	}

	if err := validate(kind, value); err != nil {
		return err
	}

	return r.write(caller, node, kind, "", value)
}

// Record returns the record of kind for node.
func (r *Resolver) Record(node common.Hash, kind Kind) ([]byte, bool) {
	return r.read(makeRecordKey(r.addr, node, kind, ""))
}

// SetAddr sets the address record of node.
func (r *Resolver) SetAddr(caller common.Address, node common.Hash, addr common.Address) error {
	return r.SetRecord(caller, node, KindAddr, addr.Bytes())
}

// Addr returns the address record of node.
func (r *Resolver) Addr(node common.Hash) (common.Address, bool) {
	data, ok := r.Record(node, KindAddr)
	if !ok {
		return common.Address{}, false
	}

	return common.BytesToAddress(data), true
}

// SetName sets the name record of node.
func (r *Resolver) SetName(caller common.Address, node common.Hash, name string) error {
	return r.SetRecord(caller, node, KindName, []byte(name))
}

// Name returns the name record of node.
func (r *Resolver) Name(node common.Hash) (string, bool) {
	data, ok := r.Record(node, KindName)
	return string(data), ok
}

// SetContentHash sets the content hash record of node.
func (r *Resolver) SetContentHash(caller common.Address, node common.Hash, hash []byte) error {
	return r.SetRecord(caller, node, KindContentHash, hash)
}

// ContentHash returns the content hash record of node.
func (r *Resolver) ContentHash(node common.Hash) ([]byte, bool) {
	return r.Record(node, KindContentHash)
}

// SetText sets the text record stored under key for node.
func (r *Resolver) SetText(caller common.Address, node common.Hash, key, value string) error {
	if key == "" || !utf8.ValidString(key) || !utf8.ValidString(value) {
		return fmt.Errorf("%w: text key and value must be utf-8, key non-empty", ErrInvalidRecord)
	}

	return r.write(caller, node, KindText, key, []byte(value))
}

// Text returns the text record stored under key for node.
func (r *Resolver) Text(node common.Hash, key string) (string, bool) {
	data, ok := r.read(makeRecordKey(r.addr, node, KindText, key))
	return string(data), ok
}

// write stores or clears a record through the registry, which checks
// ownership and journals the change in the same batch.
func (r *Resolver) write(caller common.Address, node common.Hash, kind Kind, textKey string, value []byte) error {
	key := makeRecordKey(r.addr, node, kind, textKey)

	ev := registry.Event{Kind: kind.event(), Addr: r.addr}
	if kind == KindText {
		ev.Label = crypto.Keccak256Hash([]byte(textKey))
	}

	err := r.pub.Publish(caller, node, ev, func(b *storage.Batch) (bool, error) {
		cur, err := r.db.Get(key)
		if err != nil {
			return false, err
		}

		if bytes.Equal(cur, value) {
			return false, nil
		}

		if len(value) == 0 {
			return true, b.Delete(key)
		}

		return true, b.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("set record on %s:\n%w", node.Hex(), err)
	}

	logger.Debug("record set", "resolver", r.addr.Hex(), "node", node.Hex(), "kind", kind.String(), "size", len(value))

	return nil
}

// read loads a record; storage errors read as absent.
func (r *Resolver) read(key []byte) ([]byte, bool) {
	data, err := r.db.Get(key)
	if err != nil {
		logger.Error("resolver read failed", "resolver", r.addr.Hex(), "error", err)
		return nil, false
	}

	return data, data != nil
}

// validate checks value against the constraints of kind. Empty values clear.
func validate(kind Kind, value []byte) error {
	if len(value) == 0 {
		return nil
	}

	switch kind {
	case KindAddr:
		if len(value) != common.AddressLength {
			return fmt.Errorf("%w: addr must be %d bytes, got %d", ErrInvalidRecord, common.AddressLength, len(value))
		}
	case KindName:
		if !utf8.Valid(value) {
			return fmt.Errorf("%w: name is not utf-8", ErrInvalidRecord)
		}
	case KindContentHash:
	default:
		return fmt.Errorf("%w: unsupported kind %s", ErrInvalidRecord, kind)
	}

	return nil
}

// makeRecordKey builds "r:" + resolver(20) + node(32) + u16 kind + text key.
// Prefixing the resolver address keeps several resolvers apart in one store.
func makeRecordKey(resolver common.Address, node common.Hash, kind Kind, textKey string) []byte {
	key := make([]byte, 0, len(recordKeyPrefix)+common.AddressLength+common.HashLength+2+len(textKey))
	key = append(key, recordKeyPrefix...)
	key = append(key, resolver[:]...)
	key = append(key, node[:]...)
	key = binary.BigEndian.AppendUint16(key, uint16(kind))
	key = append(key, textKey...)

	return key
}
