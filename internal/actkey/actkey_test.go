package actkey

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqReader yields a deterministic byte sequence so padding-dependent
// assertions are exact.
type seqReader struct{ next byte }

func (r *seqReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.next
		r.next++
	}
	return len(p), nil
}

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0).UTC() }
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]byte{})
	assert.Error(t, err)
}

func TestNewRejectsNonPositiveValidity(t *testing.T) {
	_, err := New([]byte("secret"), WithValidity(0))
	assert.Error(t, err)

	_, err = New([]byte("secret"), WithValidity(-time.Hour))
	assert.Error(t, err)
}

func TestIssueRoundTrip(t *testing.T) {
	now := int64(1700000000)
	kc, err := New([]byte("s3cret"),
		WithClock(fixedClock(now)),
		WithValidity(90*24*time.Hour))
	require.NoError(t, err)

	key, err := kc.Issue()
	require.NoError(t, err)

	rec, err := kc.Validate(key)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(now, 0).UTC(), rec.CreatedAt)
	assert.Equal(t, time.Unix(now, 0).UTC().Add(90*24*time.Hour), rec.ExpiresAt)
	assert.False(t, rec.AgentDeployed)
}

func TestIssueAtRoundTrip(t *testing.T) {
	now := int64(1700000000)
	kc, err := New([]byte("s3cret"), WithClock(fixedClock(now)))
	require.NoError(t, err)

	cases := []struct {
		name      string
		createdAt int64
		expiresAt int64
		deployed  bool
	}{
		{"fresh", 1700000000, 1731536000, false},
		{"deployed", 1700000000, 1731536000, true},
		{"short window", 1699999999, 1700000001, false},
		{"max expiry", 1700000000, 4294967295, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := kc.IssueAt(time.Unix(tc.createdAt, 0), time.Unix(tc.expiresAt, 0), tc.deployed)
			require.NoError(t, err)

			rec, err := kc.Validate(key)
			require.NoError(t, err)
			assert.Equal(t, tc.createdAt, rec.CreatedAt.Unix())
			assert.Equal(t, tc.expiresAt, rec.ExpiresAt.Unix())
			assert.Equal(t, tc.deployed, rec.AgentDeployed)
		})
	}
}

func TestIssueAtRejectsBadTimestamps(t *testing.T) {
	kc, err := New([]byte("s3cret"))
	require.NoError(t, err)

	// Expiry not after creation.
	_, err = kc.IssueAt(time.Unix(1700000000, 0), time.Unix(1700000000, 0), false)
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = kc.IssueAt(time.Unix(1700000000, 0), time.Unix(1600000000, 0), false)
	assert.ErrorIs(t, err, ErrMalformedRecord)

	// Outside uint32 unix range.
	_, err = kc.IssueAt(time.Unix(-1, 0), time.Unix(1700000000, 0), false)
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = kc.IssueAt(time.Unix(1700000000, 0), time.Unix(4294967296, 0), false)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestValidateWrongSecret(t *testing.T) {
	kc1, err := New([]byte("secret-a"))
	require.NoError(t, err)
	kc2, err := New([]byte("secret-b"))
	require.NoError(t, err)

	key, err := kc1.Issue()
	require.NoError(t, err)

	_, err = kc2.Validate(key)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestValidateTamperedKey(t *testing.T) {
	kc, err := New([]byte("s3cret"))
	require.NoError(t, err)

	key, err := kc.Issue()
	require.NoError(t, err)

	signed, err := parseKey(key)
	require.NoError(t, err)

	// Flip every bit of the 20 signed bytes in turn; each forgery must be
	// rejected as a signature mismatch, never as expired or malformed.
	for i := 0; i < signedLen*8; i++ {
		forged := make([]byte, signedLen)
		copy(forged, signed)
		forged[i/8] ^= 1 << (i % 8)

		forgedKey, err := formatKey(forged)
		require.NoError(t, err)

		_, err = kc.Validate(forgedKey)
		assert.ErrorIs(t, err, ErrSignatureMismatch, "bit %d", i)
	}
}

func TestValidateExpired(t *testing.T) {
	now := int64(1700000000)
	kc, err := New([]byte("s3cret"), WithClock(fixedClock(now)))
	require.NoError(t, err)

	key, err := kc.IssueAt(time.Unix(now-3600, 0), time.Unix(now-1, 0), false)
	require.NoError(t, err)

	_, err = kc.Validate(key)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestValidateAtExactExpiry(t *testing.T) {
	now := int64(1700000000)
	kc, err := New([]byte("s3cret"), WithClock(fixedClock(now)))
	require.NoError(t, err)

	// now == expires_at is still valid; only now > expires_at is rejected.
	key, err := kc.IssueAt(time.Unix(now-3600, 0), time.Unix(now, 0), false)
	require.NoError(t, err)

	_, err = kc.Validate(key)
	assert.NoError(t, err)
}

func TestValidateInvalidFormat(t *testing.T) {
	kc, err := New([]byte("s3cret"))
	require.NoError(t, err)

	cases := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"garbage", "not-a-key"},
		{"too short", "ABCDE-ABCDE-ABCDE-ABCDE-ABCDE-ABCDE"},
		{"too long", strings.Repeat("ABCDE-", 7) + "ABCDE"},
		{"bad alphabet", "ABC18-ABCDE-ABCDE-ABCDE-ABCDE-ABCDE-ABCDE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := kc.Validate(tc.key)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestDeployPreservesTimestamps(t *testing.T) {
	now := int64(1700000000)
	kc, err := New([]byte("s3cret"), WithClock(fixedClock(now)))
	require.NoError(t, err)

	key, err := kc.Issue()
	require.NoError(t, err)
	before, err := kc.Validate(key)
	require.NoError(t, err)

	deployed, err := kc.Deploy(key)
	require.NoError(t, err)
	after, err := kc.Validate(deployed)
	require.NoError(t, err)

	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, before.ExpiresAt, after.ExpiresAt)
	assert.False(t, before.AgentDeployed)
	assert.True(t, after.AgentDeployed)
}

func TestDeployIdempotent(t *testing.T) {
	kc, err := New([]byte("s3cret"))
	require.NoError(t, err)

	key, err := kc.Issue()
	require.NoError(t, err)

	once, err := kc.Deploy(key)
	require.NoError(t, err)
	twice, err := kc.Deploy(once)
	require.NoError(t, err)

	recOnce, err := kc.Validate(once)
	require.NoError(t, err)
	recTwice, err := kc.Validate(twice)
	require.NoError(t, err)
	assert.Equal(t, recOnce, recTwice)
}

func TestStopReversesDeploy(t *testing.T) {
	kc, err := New([]byte("s3cret"))
	require.NoError(t, err)

	key, err := kc.Issue()
	require.NoError(t, err)

	deployed, err := kc.Deploy(key)
	require.NoError(t, err)
	stopped, err := kc.Stop(deployed)
	require.NoError(t, err)

	rec, err := kc.Validate(stopped)
	require.NoError(t, err)
	assert.False(t, rec.AgentDeployed)

	orig, err := kc.Validate(key)
	require.NoError(t, err)
	assert.Equal(t, orig.CreatedAt, rec.CreatedAt)
	assert.Equal(t, orig.ExpiresAt, rec.ExpiresAt)
}

func TestToggleRerandomizesPadding(t *testing.T) {
	kc, err := New([]byte("s3cret"), WithRandom(&seqReader{next: 1}))
	require.NoError(t, err)

	key, err := kc.Issue()
	require.NoError(t, err)

	// Re-stamping with the same flag must still produce a different key
	// string, because the padding bits are drawn fresh.
	restamped, err := kc.Stop(key)
	require.NoError(t, err)
	assert.NotEqual(t, key, restamped)
}

func TestToggleExpiredKeyFails(t *testing.T) {
	now := int64(1700000000)
	kc, err := New([]byte("s3cret"), WithClock(fixedClock(now)))
	require.NoError(t, err)

	key, err := kc.IssueAt(time.Unix(now-7200, 0), time.Unix(now-1, 0), false)
	require.NoError(t, err)

	newKey, err := kc.Deploy(key)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Empty(t, newKey)

	newKey, err = kc.Stop(key)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Empty(t, newKey)
}

func TestToggleInvalidKeyFails(t *testing.T) {
	kc, err := New([]byte("s3cret"))
	require.NoError(t, err)
	other, err := New([]byte("other-secret"))
	require.NoError(t, err)

	key, err := other.Issue()
	require.NoError(t, err)

	newKey, err := kc.Deploy(key)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
	assert.Empty(t, newKey)
}

func TestTimestampBytesDeterministic(t *testing.T) {
	// With fixed timestamps the first 8 record bytes are identical across
	// issuances; only the padding and therefore the tag may differ.
	kc, err := New([]byte("s3cret"))
	require.NoError(t, err)

	createdAt := time.Unix(1700000000, 0)
	expiresAt := time.Unix(1731536000, 0)

	key1, err := kc.IssueAt(createdAt, expiresAt, false)
	require.NoError(t, err)
	key2, err := kc.IssueAt(createdAt, expiresAt, false)
	require.NoError(t, err)

	signed1, err := parseKey(key1)
	require.NoError(t, err)
	signed2, err := parseKey(key2)
	require.NoError(t, err)

	assert.Equal(t, signed1[:8], signed2[:8])
	assert.Equal(t, []byte{0x65, 0x53, 0xF1, 0x00}, signed1[0:4])
	assert.Equal(t, []byte{0x67, 0x35, 0x24, 0x80}, signed1[4:8])
	assert.Equal(t, byte(0), signed1[8]&1)
	assert.Equal(t, byte(0), signed2[8]&1)
}

func TestConcurrentIssueAndValidate(t *testing.T) {
	kc, err := New([]byte("s3cret"))
	require.NoError(t, err)

	done := make(chan error, 32)
	for i := 0; i < 32; i++ {
		go func() {
			key, err := kc.Issue()
			if err != nil {
				done <- err
				return
			}
			_, err = kc.Validate(key)
			done <- err
		}()
	}
	for i := 0; i < 32; i++ {
		assert.NoError(t, <-done)
	}
}
