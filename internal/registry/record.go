package registry

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"YakNS/internal/storage"
)

const (
	// recordSize is owner(20) + resolver(20) + ttl(8).
	recordSize = 2*common.AddressLength + 8
)

// nodeKeyPrefix is the Pebble key prefix for node records.
var nodeKeyPrefix = []byte("n:")

// Record is the registry entry of one node.
type Record struct {
	Owner    common.Address // Owner may mutate the node and assign its direct children
	Resolver common.Address // Resolver is the resolver instance serving the node's records
	TTL      uint64         // TTL is the cache lifetime hint, opaque to the registry
}

// cachedRecord remembers absent nodes as well as present ones.
type cachedRecord struct {
	rec    Record
	exists bool
}

// recordStore persists node records in Pebble.
type recordStore struct {
	db *storage.Storage
}

// get loads a node record. Absent nodes return exists=false and a zero record.
func (s *recordStore) get(node common.Hash) (Record, bool, error) {
	data, err := s.db.Get(makeNodeKey(node))
	if err != nil {
		return Record{}, false, err
	}

	if data == nil {
		return Record{}, false, nil
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return Record{}, false, fmt.Errorf("decode record %s:\n%w", node.Hex(), err)
	}

	return rec, true, nil
}

// put queues a node record write on the batch.
func (s *recordStore) put(b *storage.Batch, node common.Hash, rec Record) error {
	return b.Set(makeNodeKey(node), encodeRecord(rec))
}

// makeNodeKey builds the Pebble key for a node: "n:" + 32-byte hash.
func makeNodeKey(node common.Hash) []byte {
	key := make([]byte, len(nodeKeyPrefix)+common.HashLength)
	copy(key, nodeKeyPrefix)
	copy(key[len(nodeKeyPrefix):], node[:])

	return key
}

// encodeRecord serializes a record.
// Format: [20]u8 owner + [20]u8 resolver + u64 ttl (big-endian)
func encodeRecord(rec Record) []byte {
	buf := make([]byte, recordSize)
	copy(buf[0:20], rec.Owner[:])
	copy(buf[20:40], rec.Resolver[:])
	binary.BigEndian.PutUint64(buf[40:48], rec.TTL)

	return buf
}

// decodeRecord parses a record produced by encodeRecord.
func decodeRecord(data []byte) (Record, error) {
	if len(data) != recordSize {
		return Record{}, fmt.Errorf("invalid record size: got %d, want %d", len(data), recordSize)
	}

	var rec Record
	copy(rec.Owner[:], data[0:20])
	copy(rec.Resolver[:], data[20:40])
	rec.TTL = binary.BigEndian.Uint64(data[40:48])

	return rec, nil
}
