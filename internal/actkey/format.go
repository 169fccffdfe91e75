package actkey

import (
	"encoding/base32"
	"strings"
)

// A pretty key is the base32 encoding of the 20-byte signed record (exactly
// 32 characters, no padding ever needed) plus a constant 3-character suffix,
// re-chunked into seven hyphen-separated groups of five:
//
//	XXXXX-XXXXX-XXXXX-XXXXX-XXXXX-XXXXX-XXXXX
const (
	keySuffix   = "AGT"
	groupSize   = 5
	groupSep    = "-"
	encodedLen  = 32 // signedLen * 8 / 5 bits per symbol
	plainKeyLen = encodedLen + len(keySuffix)
)

var keyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func formatKey(signed []byte) (string, error) {
	if len(signed) != signedLen {
		return "", ErrMalformedRecord
	}
	plain := keyEncoding.EncodeToString(signed) + keySuffix
	groups := make([]string, 0, plainKeyLen/groupSize)
	for i := 0; i < len(plain); i += groupSize {
		groups = append(groups, plain[i:i+groupSize])
	}
	return strings.Join(groups, groupSep), nil
}

// parseKey recovers the 20 signed bytes from a pretty key. Input is trimmed
// and upper-cased first, so hand-typed lowercase keys are accepted. The
// suffix is length-checked and stripped but its value is not compared
// against keySuffix.
func parseKey(key string) ([]byte, error) {
	plain := strings.ToUpper(strings.TrimSpace(key))
	plain = strings.ReplaceAll(plain, groupSep, "")
	if len(plain) != plainKeyLen {
		return nil, ErrInvalidFormat
	}
	signed, err := keyEncoding.DecodeString(plain[:encodedLen])
	if err != nil || len(signed) != signedLen {
		return nil, ErrInvalidFormat
	}
	return signed, nil
}
