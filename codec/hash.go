package codec

import "golang.org/x/crypto/blake2b"

// Hash returns the Kadena-compatible content hash of data: a 32-byte
// Blake2b digest.
func Hash(data []byte) ([]byte, error) {
	h, err := blake2b.New(32, nil)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// HashB64 hashes data and returns the digest as unpadded URL-safe
// Base64, matching the form block/request hashes take on the wire.
func HashB64(data []byte) (string, error) {
	digest, err := Hash(data)
	if err != nil {
		return "", err
	}
	return EncodeB64(digest), nil
}
