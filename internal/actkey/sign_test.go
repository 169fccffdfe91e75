package actkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignRecordTruncation(t *testing.T) {
	record := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	secret := []byte("s3cret")

	tag := signRecord(record, secret)
	require.Len(t, tag, tagLen)

	mac := hmac.New(sha256.New, secret)
	mac.Write(record)
	full := mac.Sum(nil)
	assert.Equal(t, full[:tagLen], tag)
}

func TestSignRecordDeterministic(t *testing.T) {
	record := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, signRecord(record, []byte("a")), signRecord(record, []byte("a")))
	assert.NotEqual(t, signRecord(record, []byte("a")), signRecord(record, []byte("b")))
}

func TestVerifyRecord(t *testing.T) {
	record := []byte{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	secret := []byte("s3cret")
	tag := signRecord(record, secret)

	assert.True(t, verifyRecord(record, tag, secret))
	assert.False(t, verifyRecord(record, tag, []byte("wrong")))

	flipped := make([]byte, len(tag))
	copy(flipped, tag)
	flipped[0] ^= 1
	assert.False(t, verifyRecord(record, flipped, secret))

	changed := make([]byte, len(record))
	copy(changed, record)
	changed[4] ^= 0x80
	assert.False(t, verifyRecord(changed, tag, secret))
}
