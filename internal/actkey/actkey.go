// Package actkey issues and validates self-contained agent activation keys.
//
// A key carries its own creation time, expiry time and a single
// agent-deployed flag, authenticated by a truncated HMAC-SHA256 tag, so no
// database lookup is needed to decide whether a presented key is genuine or
// still valid. The encoded form is short enough to read aloud:
// seven hyphen-separated groups of five base32 characters.
package actkey

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// DefaultValidity is the issuance window applied when none is configured.
const DefaultValidity = 365 * 24 * time.Hour

var (
	// ErrInvalidFormat reports a key string that cannot be decoded back into
	// a signed record: wrong length, non-base32 characters, or a decoded
	// payload of the wrong size.
	ErrInvalidFormat = errors.New("activation key has invalid format")

	// ErrSignatureMismatch reports a decodable key whose tag does not verify.
	// Tampering and a wrong secret are deliberately indistinguishable.
	ErrSignatureMismatch = errors.New("activation key signature mismatch")

	// ErrExpired reports a genuine key past its expiry time.
	ErrExpired = errors.New("activation key has expired")

	// ErrMalformedRecord reports an internal invariant violation, such as an
	// intermediate buffer of the wrong length. Not reachable through a
	// well-formed caller.
	ErrMalformedRecord = errors.New("malformed activation record")
)

// Record holds the fields decoded from a valid activation key.
type Record struct {
	CreatedAt     time.Time
	ExpiresAt     time.Time
	AgentDeployed bool
}

// Keychain signs, validates and re-stamps activation keys with a single
// server-held secret. All methods are pure and safe for concurrent use; the
// only external inputs are the injected clock and random source.
type Keychain struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
	random   io.Reader
}

type Option func(*Keychain)

// WithValidity overrides the issuance window used by Issue.
func WithValidity(d time.Duration) Option {
	return func(kc *Keychain) { kc.validity = d }
}

// WithClock overrides the wall-clock source used for issuance and expiry
// checks. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(kc *Keychain) { kc.now = now }
}

// WithRandom overrides the source of record padding bytes. Intended for
// tests; production keys must use a cryptographically secure source.
func WithRandom(r io.Reader) Option {
	return func(kc *Keychain) { kc.random = r }
}

func New(secret []byte, opts ...Option) (*Keychain, error) {
	if len(secret) == 0 {
		return nil, errors.New("activation secret must not be empty")
	}
	kc := &Keychain{
		secret:   secret,
		validity: DefaultValidity,
		now:      time.Now,
		random:   rand.Reader,
	}
	for _, opt := range opts {
		opt(kc)
	}
	if kc.validity <= 0 {
		return nil, errors.New("activation key validity must be positive")
	}
	return kc, nil
}

// Issue creates a fresh key: created now, expiring after the configured
// validity window, agent not deployed.
func (kc *Keychain) Issue() (string, error) {
	now := kc.now()
	return kc.IssueAt(now, now.Add(kc.validity), false)
}

// IssueAt creates a key with explicit timestamps and deployment flag.
// expiresAt must be after createdAt, and both must fit a uint32 unix second.
func (kc *Keychain) IssueAt(createdAt, expiresAt time.Time, deployed bool) (string, error) {
	created, err := toUnix32(createdAt)
	if err != nil {
		return "", err
	}
	expires, err := toUnix32(expiresAt)
	if err != nil {
		return "", err
	}
	if expires <= created {
		return "", fmt.Errorf("%w: expiry %d not after creation %d", ErrMalformedRecord, expires, created)
	}
	return kc.encode(created, expires, deployed)
}

// Validate decodes the key, verifies its signature and expiry, and returns
// the embedded record. Returns ErrInvalidFormat, ErrSignatureMismatch or
// ErrExpired; expiry is only reported for keys whose signature verifies.
func (kc *Keychain) Validate(key string) (Record, error) {
	signed, err := parseKey(key)
	if err != nil {
		return Record{}, err
	}
	record, tag := signed[:recordLen], signed[recordLen:]
	if !verifyRecord(record, tag, kc.secret) {
		return Record{}, ErrSignatureMismatch
	}
	createdAt, expiresAt, deployed, err := unpackRecord(record)
	if err != nil {
		return Record{}, err
	}
	if kc.now().Unix() > int64(expiresAt) {
		return Record{}, ErrExpired
	}
	return Record{
		CreatedAt:     time.Unix(int64(createdAt), 0).UTC(),
		ExpiresAt:     time.Unix(int64(expiresAt), 0).UTC(),
		AgentDeployed: deployed,
	}, nil
}

// Deploy re-issues key with the deployment flag set. The input must pass
// full validation first; expired or invalid keys yield no new key.
// Idempotent: deploying an already-deployed key re-stamps it again.
func (kc *Keychain) Deploy(key string) (string, error) {
	return kc.restamp(key, true)
}

// Stop re-issues key with the deployment flag cleared. Symmetric to Deploy.
func (kc *Keychain) Stop(key string) (string, error) {
	return kc.restamp(key, false)
}

// restamp validates key, then re-encodes it with the flag forced. Timestamps
// are preserved; the padding bits are drawn fresh, so the old and new key
// differ in more than the flag position. The old key stays cryptographically
// valid until it expires and is superseded only by convention.
func (kc *Keychain) restamp(key string, deployed bool) (string, error) {
	rec, err := kc.Validate(key)
	if err != nil {
		return "", err
	}
	return kc.encode(uint32(rec.CreatedAt.Unix()), uint32(rec.ExpiresAt.Unix()), deployed)
}

func (kc *Keychain) encode(createdAt, expiresAt uint32, deployed bool) (string, error) {
	record, err := packRecord(createdAt, expiresAt, deployed, kc.random)
	if err != nil {
		return "", err
	}
	signed := append(record, signRecord(record, kc.secret)...)
	return formatKey(signed)
}

func toUnix32(t time.Time) (uint32, error) {
	sec := t.Unix()
	if sec < 0 || sec > math.MaxUint32 {
		return 0, fmt.Errorf("%w: timestamp %d outside uint32 range", ErrMalformedRecord, sec)
	}
	return uint32(sec), nil
}
