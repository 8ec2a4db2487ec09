// Package snapshot exports and restores the complete naming store: node
// records, resolver records, the event journal and bootstrap progress.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"YakNS/internal/storage"
)

const (
	// snapshotVersion is the current snapshot format version.
	snapshotVersion = 1

	// headerSize is u32 version + u64 entry count.
	headerSize = 4 + 8

	// checksumSize is the trailing blake3 digest.
	checksumSize = 32
)

var (
	// ErrChecksum is returned when the trailing checksum does not match the contents.
	ErrChecksum = errors.New("snapshot checksum mismatch")

	// ErrVersion is returned for snapshots written by an unknown format version.
	ErrVersion = errors.New("unsupported snapshot version")

	// ErrNotEmpty is returned when restoring into a store that already holds data.
	ErrNotEmpty = errors.New("target store is not empty")
)

// Info describes a snapshot.
type Info struct {
	Entries  uint64   // Entries is the number of key-value pairs
	Checksum [32]byte // Checksum is the blake3 digest over header and entries
}

// Create serializes every key of db and compresses the result.
// Format before compression:
// u32 version + u64 count + count * (u32 klen + key + u32 vlen + value) + [32]u8 blake3
func Create(db *storage.Storage) ([]byte, Info, error) {
	var body []byte
	var count uint64

	err := db.Iterate(func(key, value []byte) error {
		body = appendBytes(body, key)
		body = appendBytes(body, value)
		count++

		return nil
	})
	if err != nil {
		return nil, Info{}, fmt.Errorf("collect entries:\n%w", err)
	}

	data := make([]byte, headerSize, headerSize+len(body)+checksumSize)
	binary.BigEndian.PutUint32(data[0:4], snapshotVersion)
	binary.BigEndian.PutUint64(data[4:12], count)
	data = append(data, body...)

	checksum := blake3.Sum256(data)
	data = append(data, checksum[:]...)

	compressed, err := compress(data)
	if err != nil {
		return nil, Info{}, err
	}

	return compressed, Info{Entries: count, Checksum: checksum}, nil
}

// Restore verifies a snapshot and writes its entries into db in one batch.
// db must be empty.
func Restore(db *storage.Storage, compressed []byte) (Info, error) {
	empty, err := db.Empty()
	if err != nil {
		return Info{}, fmt.Errorf("check target:\n%w", err)
	}

	if !empty {
		return Info{}, ErrNotEmpty
	}

	pairs, info, err := Decode(compressed)
	if err != nil {
		return Info{}, err
	}

	if err := db.SetBatch(pairs); err != nil {
		return Info{}, fmt.Errorf("write entries:\n%w", err)
	}

	return info, nil
}

// Decode decompresses and verifies a snapshot, returning its entries.
func Decode(compressed []byte) ([]storage.KeyValue, Info, error) {
	data, err := decompress(compressed)
	if err != nil {
		return nil, Info{}, err
	}

	if len(data) < headerSize+checksumSize {
		return nil, Info{}, fmt.Errorf("snapshot too short: %d bytes", len(data))
	}

	var info Info
	content := data[:len(data)-checksumSize]
	copy(info.Checksum[:], data[len(data)-checksumSize:])

	if blake3.Sum256(content) != info.Checksum {
		return nil, Info{}, ErrChecksum
	}

	if v := binary.BigEndian.Uint32(content[0:4]); v != snapshotVersion {
		return nil, Info{}, fmt.Errorf("%w: %d", ErrVersion, v)
	}

	info.Entries = binary.BigEndian.Uint64(content[4:12])

	pairs, err := decodeEntries(content[headerSize:], info.Entries)
	if err != nil {
		return nil, Info{}, err
	}

	return pairs, info, nil
}

// decodeEntries parses count length-prefixed key-value pairs.
func decodeEntries(data []byte, count uint64) ([]storage.KeyValue, error) {
	pairs := make([]storage.KeyValue, 0, min(count, uint64(len(data)/8)))

	for i := uint64(0); i < count; i++ {
		key, rest, err := readBytes(data)
		if err != nil {
			return nil, fmt.Errorf("entry %d key:\n%w", i, err)
		}

		value, rest, err := readBytes(rest)
		if err != nil {
			return nil, fmt.Errorf("entry %d value:\n%w", i, err)
		}

		pairs = append(pairs, storage.KeyValue{Key: key, Value: value})
		data = rest
	}

	if len(data) != 0 {
		return nil, fmt.Errorf("%d trailing bytes", len(data))
	}

	return pairs, nil
}

// appendBytes appends a u32 length prefix and b.
func appendBytes(buf, b []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

// readBytes reads one length-prefixed field.
func readBytes(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("truncated length")
	}

	n := binary.BigEndian.Uint32(data[0:4])
	if uint64(len(data)-4) < uint64(n) {
		return nil, nil, fmt.Errorf("truncated field: need %d bytes, have %d", n, len(data)-4)
	}

	field := make([]byte, n)
	copy(field, data[4:4+n])

	return field, data[4+n:], nil
}

// compress compresses snapshot data using zstd.
func compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// decompress decompresses zstd-compressed snapshot data.
func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress:\n%w", err)
	}

	return out, nil
}
