// Package diploma implements the diploma record: its fixed field set,
// its one true canonical serialization, and signature creation and
// verification over that canonical form.
package diploma

import (
	"crypto/rsa"
	"encoding/json"
	"errors"

	"github.com/dchain-network/dchain/internal/cryptoutil"
)

// Record is a diploma with its signature. Field order here is the
// canonical, chain-wide field order: encoding/json serializes struct
// fields in declaration order, so no sort step is needed. The bytes
// that get signed and verified are produced from unsigned below, which
// declares the same fields in the same order and must be kept in step
// with this struct.
type Record struct {
	Institution   string `json:"institution"`
	FullName      string `json:"full_name"`
	Program       string `json:"program"`
	Qualification string `json:"qualification"`
	Specialty     string `json:"specialty"`
	IssueDate     string `json:"issue_date"`
	RegNumber     string `json:"reg_number"`
	RectorName    string `json:"rector_name"`
	SecretaryName string `json:"secretary_name"`
	Signature     string `json:"signature,omitempty"`
}

// unsigned is Record without the signature field, used to produce the
// exact bytes that get signed and verified.
type unsigned struct {
	Institution   string `json:"institution"`
	FullName      string `json:"full_name"`
	Program       string `json:"program"`
	Qualification string `json:"qualification"`
	Specialty     string `json:"specialty"`
	IssueDate     string `json:"issue_date"`
	RegNumber     string `json:"reg_number"`
	RectorName    string `json:"rector_name"`
	SecretaryName string `json:"secretary_name"`
}

func (r Record) toUnsigned() unsigned {
	return unsigned{
		Institution:   r.Institution,
		FullName:      r.FullName,
		Program:       r.Program,
		Qualification: r.Qualification,
		Specialty:     r.Specialty,
		IssueDate:     r.IssueDate,
		RegNumber:     r.RegNumber,
		RectorName:    r.RectorName,
		SecretaryName: r.SecretaryName,
	}
}

var ErrEncode = errors.New("diploma: failed to canonicalize record")

// Canonical returns the exact UTF-8 JSON bytes signed and verified for
// r, with the signature field omitted and non-ASCII characters
// preserved (json.Marshal writes non-ASCII runes as-is; it \u-escapes
// only control characters, <, > and &, and U+2028/U+2029, and it
// replaces invalid UTF-8 with U+FFFD).
func Canonical(r Record) ([]byte, error) {
	buf, err := json.Marshal(r.toUnsigned())
	if err != nil {
		return nil, ErrEncode
	}
	return buf, nil
}

// Sign computes r's canonical form and signs it with priv, returning
// a copy of r with Signature populated.
func Sign(r Record, priv *rsa.PrivateKey) (Record, error) {
	canon, err := Canonical(r)
	if err != nil {
		return Record{}, err
	}
	sig, err := cryptoutil.SignPSS(priv, canon)
	if err != nil {
		return Record{}, err
	}
	out := r
	out.Signature = cryptoutil.EncodeBase64(sig)
	return out, nil
}

// Verify reports whether r's signature is a valid PSS signature over
// r's canonical form under pub. It never panics: any malformed input
// (bad base64, bad PEM upstream, mismatched signature) simply returns
// false.
func Verify(r Record, pub *rsa.PublicKey) bool {
	sig, err := cryptoutil.DecodeBase64(r.Signature)
	if err != nil {
		return false
	}
	canon, err := Canonical(r)
	if err != nil {
		return false
	}
	return cryptoutil.VerifyPSS(pub, canon, sig)
}
