package actkey

import (
	"crypto/hmac"
	"crypto/sha256"
)

// signRecord computes HMAC-SHA256 over the packed record and truncates the
// digest to tagLen bytes. 80 bits of tag is well short of full HMAC-SHA256
// strength; the shrink keeps the key typeable and is acceptable only because
// every key is also time-bounded.
func signRecord(record, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(record)
	return mac.Sum(nil)[:tagLen]
}

// verifyRecord recomputes the expected tag and compares in constant time.
func verifyRecord(record, tag, secret []byte) bool {
	return hmac.Equal(tag, signRecord(record, secret))
}
