// Package codec implements the ticket codec described in spec.md §4.A: a
// compact string encoding of a ticket plus an HMAC-SHA256 tag that proves
// the central booking authority issued it.
package codec

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Codec computes and verifies ticket MAC tags with a shared secret key. The
// zero value is not usable; construct with New.
type Codec struct {
	secret []byte
}

// New returns a Codec keyed with secret. The secret is never logged or
// retained anywhere outside this struct.
func New(secret []byte) *Codec {
	cp := make([]byte, len(secret))
	copy(cp, secret)
	return &Codec{secret: cp}
}

// Encode computes HMAC-SHA256 over the UTF-8 bytes of data and returns the
// first 12 hex characters of the digest, uppercased, per spec.md §4.A.
func (c *Codec) Encode(data string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(data))
	sum := mac.Sum(nil)
	tag := hex.EncodeToString(sum)[:12]
	return strings.ToUpper(tag)
}

// Verify recomputes the tag for data and compares it against tag using a
// constant-time comparison, resistant to timing attacks. tag is uppercased
// before comparison so callers may pass either case.
func (c *Codec) Verify(data, tag string) bool {
	expected := c.Encode(data)
	given := strings.ToUpper(tag)
	if len(expected) != len(given) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}
