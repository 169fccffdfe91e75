package actkey

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Record layout, 10 bytes total:
//
//	[0:4]  created_at, big-endian uint32 unix seconds
//	[4:8]  expires_at, big-endian uint32 unix seconds
//	[8]    bit 0 = agent deployed, bits 1-7 random padding
//	[9]    random filler
//
// The padding bits are drawn fresh on every encode so that two keys that
// differ only in the flag are not byte-diffable beyond the flag position.
const (
	recordLen = 10
	tagLen    = 10
	signedLen = recordLen + tagLen
)

func packRecord(createdAt, expiresAt uint32, deployed bool, random io.Reader) ([]byte, error) {
	var pad [2]byte
	if _, err := io.ReadFull(random, pad[:]); err != nil {
		return nil, fmt.Errorf("read record padding: %w", err)
	}

	record := make([]byte, recordLen)
	binary.BigEndian.PutUint32(record[0:4], createdAt)
	binary.BigEndian.PutUint32(record[4:8], expiresAt)
	record[8] = pad[0] << 1
	if deployed {
		record[8] |= 1
	}
	record[9] = pad[1]
	return record, nil
}

func unpackRecord(record []byte) (createdAt, expiresAt uint32, deployed bool, err error) {
	if len(record) != recordLen {
		return 0, 0, false, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedRecord, len(record), recordLen)
	}
	createdAt = binary.BigEndian.Uint32(record[0:4])
	expiresAt = binary.BigEndian.Uint32(record[4:8])
	deployed = record[8]&1 == 1
	// record[9] is filler, ignored on read.
	return createdAt, expiresAt, deployed, nil
}
