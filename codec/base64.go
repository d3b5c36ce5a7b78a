// Package codec implements the wire encodings Chainweb uses for block
// hashes and transaction payloads: unpadded URL-safe Base64, and a
// Blake2b-256 content hash over that same alphabet.
package codec

import "encoding/base64"

// paddingTable maps len(data)%4 to the padding that must be appended
// before decoding. A remainder of 1 can never occur for valid base64
// and decoding rejects it the same way the reference implementation
// does (it would also reject it, just with a different error).
var paddingTable = [4]string{"", "===", "==", "="}

// EncodeB64 encodes data as URL-safe Base64 with trailing '=' stripped.
func EncodeB64(data []byte) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(data)
}

// DecodeB64 restores the padding EncodeB64 stripped and decodes.
func DecodeB64(s string) ([]byte, error) {
	padded := s + paddingTable[len(s)%4]
	return base64.URLEncoding.DecodeString(padded)
}
