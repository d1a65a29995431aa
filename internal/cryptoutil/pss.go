package cryptoutil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
)

// pssOptions is shared by Sign and Verify: MGF1(SHA-256) and a
// maximum-length salt, i.e. Go's spelling of the "max" salt length
// §4.1 requires (keylen - hashlen - 2 bytes).
var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthAuto,
	Hash:       crypto.SHA256,
}

// Sum256 returns the SHA-256 digest of data.
func Sum256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// SignPSS signs data's SHA-256 digest with priv, returning the raw
// signature bytes.
func SignPSS(priv *rsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest[:], pssOptions)
}

// VerifyPSS verifies sig against data's SHA-256 digest under pub. It
// never panics; a malformed signature or key simply verifies false.
func VerifyPSS(pub *rsa.PublicKey, data, sig []byte) bool {
	if pub == nil {
		return false
	}
	digest := sha256.Sum256(data)
	return rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, pssOptions) == nil
}

// EncodeBase64 encodes a signature using standard base64, as §4.1 fixes.
func EncodeBase64(sig []byte) string {
	return base64.StdEncoding.EncodeToString(sig)
}

// DecodeBase64 decodes a standard base64 signature. Decode failure is
// reported as an error, never a panic.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// HexSHA256 returns the lowercase hex SHA-256 digest of data, the form
// used for every hash field on the wire (block hash, prev_hash).
func HexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hexdigits[b>>4]
		out[i*2+1] = hexdigits[b&0x0f]
	}
	return string(out)
}
