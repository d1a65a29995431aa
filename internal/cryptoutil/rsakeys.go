// Package cryptoutil provides the RSA key management and RSASSA-PSS
// signing primitives the rest of this module builds on. Go's standard
// library already implements RSA-PSS with MGF1(SHA-256) and a
// maximum-length salt exactly as required, so there is no third-party
// substitute to reach for here (the example pack's crypto dependencies
// are all elliptic-curve specific and do not apply to RSA).
package cryptoutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
)

// KeyBits is the RSA modulus size used for all keys in this system.
const KeyBits = 2048

// PublicExponent is the RSA public exponent used for key generation.
// crypto/rsa.GenerateKey always uses 65537 internally; this constant
// documents that choice for readers of key-generation code.
const PublicExponent = 65537

var (
	ErrInvalidPEM        = errors.New("cryptoutil: invalid PEM block")
	ErrNotRSAPublicKey   = errors.New("cryptoutil: PEM does not contain an RSA public key")
	ErrNotRSAPrivateKey  = errors.New("cryptoutil: PEM does not contain an RSA private key")
	ErrUnexpectedPEMType = errors.New("cryptoutil: unexpected PEM block type")
)

// GenerateKey creates a new RSA-2048 keypair.
func GenerateKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, KeyBits)
}

// EncodePublicKeyPEM encodes pub as a PEM-wrapped SubjectPublicKeyInfo block.
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return pem.EncodeToMemory(block), nil
}

// DecodePublicKeyPEM parses a PEM-wrapped SubjectPublicKeyInfo block
// into an RSA public key. It never panics: malformed input always
// results in an error return.
func DecodePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	if block.Type != "PUBLIC KEY" {
		return nil, ErrUnexpectedPEMType
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSAPublicKey
	}
	return rsaPub, nil
}

// EncodePrivateKeyPEM encodes priv as a PEM-wrapped unencrypted PKCS#8 block.
func EncodePrivateKeyPEM(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return pem.EncodeToMemory(block), nil
}

// DecodePrivateKeyPEM parses a PEM-wrapped unencrypted PKCS#8 block
// into an RSA private key.
func DecodePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	if block.Type != "PRIVATE KEY" {
		return nil, ErrUnexpectedPEMType
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPriv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSAPrivateKey
	}
	return rsaPriv, nil
}
