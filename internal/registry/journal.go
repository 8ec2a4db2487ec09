package registry

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"YakNS/internal/storage"
)

// EventKind identifies an accepted registry transition.
type EventKind uint8

const (
	EventNewOwner    EventKind = iota + 1 // child of Node under Label assigned to Addr
	EventTransfer                         // Node owner set to Addr
	EventNewResolver                      // Node resolver set to Addr
	EventNewTTL                           // Node TTL set to TTL

	EventAddrChanged        // address record of Node changed on resolver Addr
	EventNameChanged        // name record of Node changed on resolver Addr
	EventContentHashChanged // content hash record of Node changed on resolver Addr
	EventTextChanged        // text record keccak(key) = Label of Node changed on resolver Addr
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventNewOwner:
		return "NewOwner"
	case EventTransfer:
		return "Transfer"
	case EventNewResolver:
		return "NewResolver"
	case EventNewTTL:
		return "NewTTL"
	case EventAddrChanged:
		return "AddrChanged"
	case EventNameChanged:
		return "NameChanged"
	case EventContentHashChanged:
		return "ContenthashChanged"
	case EventTextChanged:
		return "TextChanged"
	default:
		return "Unknown"
	}
}

// eventSize is kind(1) + node(32) + label(32) + addr(20) + ttl(8).
const eventSize = 1 + 2*common.HashLength + common.AddressLength + 8

var (
	// eventKeyPrefix is the Pebble key prefix for journal entries.
	eventKeyPrefix = []byte("e:")

	// journalHeadKey stores the next journal sequence number.
	journalHeadKey = []byte("m:journal")
)

// Event is one entry of the append-only journal of accepted mutations.
// For NewOwner, Node is the parent and Label the child's label hash.
// Record events carry the resolver in Addr; TextChanged carries the key hash in Label.
type Event struct {
	Seq   uint64         // Seq is the position in the journal, starting at 0
	Kind  EventKind      // Kind selects which fields are meaningful
	Node  common.Hash    // Node is the mutated node (the parent for NewOwner)
	Label common.Hash    // Label is set for NewOwner and TextChanged
	Addr  common.Address // Addr is the new owner or resolver, or the resolver holding the record
	TTL   uint64         // TTL is set for NewTTL only
}

// journal appends events in the same batch as the records they describe.
type journal struct {
	db   *storage.Storage
	next uint64
}

// loadJournal reads the persisted head sequence.
func loadJournal(db *storage.Storage) (*journal, error) {
	data, err := db.Get(journalHeadKey)
	if err != nil {
		return nil, err
	}

	j := &journal{db: db}
	if len(data) == 8 {
		j.next = binary.BigEndian.Uint64(data)
	}

	return j, nil
}

// appendAt queues ev at ev.Seq on the batch and moves the persisted head past it.
// The in-memory head only advances once the caller reports a successful commit.
func (j *journal) appendAt(b *storage.Batch, ev Event) (uint64, error) {
	if err := b.Set(makeEventKey(ev.Seq), encodeEvent(ev)); err != nil {
		return 0, err
	}

	head := make([]byte, 8)
	binary.BigEndian.PutUint64(head, ev.Seq+1)

	if err := b.Set(journalHeadKey, head); err != nil {
		return 0, err
	}

	return ev.Seq, nil
}

// committed advances the head after the batch holding seq was applied.
func (j *journal) committed(seq uint64) {
	j.next = seq + 1
}

// iterate calls fn for each event with Seq >= from, in order.
func (j *journal) iterate(from uint64, fn func(Event) error) error {
	return j.db.IterateFrom(eventKeyPrefix, makeEventKey(from), func(key, value []byte) error {
		ev, err := decodeEvent(value)
		if err != nil {
			return err
		}

		ev.Seq = binary.BigEndian.Uint64(key[len(eventKeyPrefix):])

		return fn(ev)
	})
}

// makeEventKey builds "e:" + u64 seq (big-endian) so keys sort by sequence.
func makeEventKey(seq uint64) []byte {
	key := make([]byte, len(eventKeyPrefix)+8)
	copy(key, eventKeyPrefix)
	binary.BigEndian.PutUint64(key[len(eventKeyPrefix):], seq)

	return key
}

// encodeEvent serializes an event without its sequence (carried by the key).
func encodeEvent(ev Event) []byte {
	buf := make([]byte, eventSize)
	buf[0] = byte(ev.Kind)
	copy(buf[1:33], ev.Node[:])
	copy(buf[33:65], ev.Label[:])
	copy(buf[65:85], ev.Addr[:])
	binary.BigEndian.PutUint64(buf[85:93], ev.TTL)

	return buf
}

// decodeEvent parses an event produced by encodeEvent.
func decodeEvent(data []byte) (Event, error) {
	if len(data) != eventSize {
		return Event{}, fmt.Errorf("invalid event size: got %d, want %d", len(data), eventSize)
	}

	var ev Event
	ev.Kind = EventKind(data[0])
	copy(ev.Node[:], data[1:33])
	copy(ev.Label[:], data[33:65])
	copy(ev.Addr[:], data[65:85])
	ev.TTL = binary.BigEndian.Uint64(data[85:93])

	return ev, nil
}
