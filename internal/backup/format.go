// Package backup writes and restores whole-store snapshots.
//
// A snapshot is laid out as:
//   - 4 bytes: magic "ESNP"
//   - 1 byte: format version
//   - 8 bytes: murmur3 64-bit checksum of the body (little-endian)
//   - remaining: snappy-compressed CBOR array of store entries
//
// Counters are part of the snapshot, so identifiers keep increasing after a
// restore.
package backup

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/eventsphere/eventsphere/internal/codec"
	apperrors "github.com/eventsphere/eventsphere/internal/errors"
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"
)

const (
	magic         = "ESNP"
	formatVersion = byte(1)
	headerSize    = len(magic) + 1 + 8
)

// Info describes one snapshot.
type Info struct {
	Entries  int
	Bytes    int64
	Checksum uint64
}

// Export writes a snapshot of every namespace of s to w.
func Export(ctx context.Context, s store.Store, w io.Writer) (Info, error) {
	entries, err := store.ExportAll(ctx, s)
	if err != nil {
		return Info{}, err
	}
	if entries == nil {
		entries = []store.Entry{}
	}

	raw, err := codec.Marshal(entries)
	if err != nil {
		return Info{}, apperrors.NewStorageError(apperrors.CodeSerialization, "failed to encode snapshot", err)
	}
	body := snappy.Encode(nil, raw)
	sum := murmur3.Sum64(body)

	header := make([]byte, headerSize)
	copy(header, magic)
	header[len(magic)] = formatVersion
	binary.LittleEndian.PutUint64(header[len(magic)+1:], sum)

	if _, err := w.Write(header); err != nil {
		return Info{}, fmt.Errorf("backup: write header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return Info{}, fmt.Errorf("backup: write body: %w", err)
	}

	return Info{
		Entries:  len(entries),
		Bytes:    int64(headerSize + len(body)),
		Checksum: sum,
	}, nil
}

// Decode reads and verifies a snapshot without touching any store.
func Decode(r io.Reader) ([]store.Entry, Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Info{}, fmt.Errorf("backup: read snapshot: %w", err)
	}
	if len(data) < headerSize {
		return nil, Info{}, corruption("snapshot is truncated")
	}
	if !bytes.Equal(data[:len(magic)], []byte(magic)) {
		return nil, Info{}, corruption("not a snapshot")
	}
	if v := data[len(magic)]; v != formatVersion {
		return nil, Info{}, corruption(fmt.Sprintf("unsupported snapshot version %d", v))
	}

	want := binary.LittleEndian.Uint64(data[len(magic)+1 : headerSize])
	body := data[headerSize:]
	if got := murmur3.Sum64(body); got != want {
		return nil, Info{}, corruption("snapshot checksum mismatch").WithDetails(map[string]interface{}{
			"expected": want,
			"actual":   got,
		})
	}

	raw, err := snappy.Decode(nil, body)
	if err != nil {
		return nil, Info{}, apperrors.NewStorageError(apperrors.CodeCorruption, "snapshot body is not valid snappy", err)
	}
	var entries []store.Entry
	if err := codec.Unmarshal(raw, &entries); err != nil {
		return nil, Info{}, apperrors.NewStorageError(apperrors.CodeSerialization, "failed to decode snapshot", err)
	}

	return entries, Info{Entries: len(entries), Bytes: int64(len(data)), Checksum: want}, nil
}

// Import restores a snapshot from r into s. The target store must be empty.
func Import(ctx context.Context, s store.Store, r io.Reader) (Info, error) {
	entries, info, err := Decode(r)
	if err != nil {
		return Info{}, err
	}
	if err := store.ImportAll(ctx, s, entries); err != nil {
		return Info{}, err
	}
	return info, nil
}

func corruption(msg string) *apperrors.Error {
	return apperrors.NewStorageError(apperrors.CodeCorruption, msg, nil)
}
