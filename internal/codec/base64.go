// Package codec wraps the RFC4648 base64 codec used by every transport
// that frames payloads as text (xmpp chat bodies, http normal and
// side-channel bodies/headers).
//
// spec.md §1 names the base64 codec as an out-of-scope collaborator;
// no third-party base64 implementation appears anywhere in the
// retrieval pack, so encoding/base64 is used directly rather than
// reimplemented. See DESIGN.md for the stdlib justification.
package codec

import "encoding/base64"

// Encode returns the standard (padded) base64 encoding of data.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode.
func Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// IsValid reports whether s is well-formed standard base64.
func IsValid(s string) bool {
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}
