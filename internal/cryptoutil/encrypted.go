package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	saltLen      = 16
	encryptedPEM = "ENCRYPTED PRIVATE KEY"
)

var (
	ErrWrongPassphrase = errors.New("cryptoutil: wrong passphrase or corrupt key file")
)

// EncodePrivateKeyPEMEncrypted wraps priv's PKCS#8 DER in AES-256-GCM,
// keyed by scrypt(passphrase, salt), and PEM-encodes the ciphertext
// with the salt and nonce carried as PEM headers.
func EncodePrivateKeyPEMEncrypted(priv *rsa.PrivateKey, passphrase []byte) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, nonce, der, nil)

	pemBlock := &pem.Block{
		Type: encryptedPEM,
		Headers: map[string]string{
			"Salt":  hex.EncodeToString(salt),
			"Nonce": hex.EncodeToString(nonce),
		},
		Bytes: ciphertext,
	}
	return pem.EncodeToMemory(pemBlock), nil
}

// DecodePrivateKeyPEMEncrypted reverses EncodePrivateKeyPEMEncrypted.
// It returns ErrWrongPassphrase for both a wrong passphrase and a
// corrupted ciphertext, since AES-GCM authentication failure cannot
// distinguish the two.
func DecodePrivateKeyPEMEncrypted(data []byte, passphrase []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != encryptedPEM {
		return nil, ErrInvalidPEM
	}
	salt, err := hex.DecodeString(block.Headers["Salt"])
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	nonce, err := hex.DecodeString(block.Headers["Nonce"])
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	key, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, err
	}
	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, err
	}
	der, err := gcm.Open(nil, nonce, block.Bytes, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	rsaPriv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSAPrivateKey
	}
	return rsaPriv, nil
}
