// Package chain implements the sealed Block type and the append-only
// Blockchain that holds them.
package chain

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dchain-network/dchain/internal/cryptoutil"
	"github.com/dchain-network/dchain/internal/diploma"
)

// GenesisPrevHash is the 64-zero prev_hash used by block 0.
var GenesisPrevHash = strings.Repeat("0", 64)

// DefaultDifficulty is the number of leading hex zeros newly queued
// blocks must satisfy unless the chain overrides it.
const DefaultDifficulty = 4

var (
	ErrInvalidDiploma = errors.New("chain: diploma does not verify under the supplied public key")
)

// Block is a single record in the chain: a diploma, the signer's
// public key, a link to the previous block, and the proof-of-work
// fields that seal it. Block is exported as a plain struct because,
// once sealed, every mutation of a shared field (Nonce, Hash, ID,
// PrevHash) must go through the owning MiningTask or Blockchain — see
// internal/mining for the only legitimate mutator of an unsealed block.
type Block struct {
	ID           int            `json:"id"`
	PrevHash     string         `json:"prev_hash"`
	Timestamp    int64          `json:"timestamp"`
	DiplomaData  diploma.Record `json:"diploma_data"`
	PublicKeyPEM string         `json:"public_key"`
	Signature    string         `json:"signature"`
	Nonce        uint64         `json:"nonce"`
	Difficulty   int            `json:"difficulty"`
	Hash         string         `json:"hash"`
}

// NewBlock constructs an unsealed block (nonce 0, fresh timestamp,
// hash computed over those initial fields) and verifies that the
// supplied diploma is valid under pub. It never mutates pub/diploma.
func NewBlock(id int, d diploma.Record, pub *rsa.PublicKey, prevHash string, difficulty int) (*Block, error) {
	if !diploma.Verify(d, pub) {
		return nil, ErrInvalidDiploma
	}
	pubPEM, err := cryptoutil.EncodePublicKeyPEM(pub)
	if err != nil {
		return nil, fmt.Errorf("chain: encode public key: %w", err)
	}
	b := &Block{
		ID:           id,
		PrevHash:     prevHash,
		Timestamp:    time.Now().Unix(),
		DiplomaData:  d,
		PublicKeyPEM: string(pubPEM),
		Signature:    d.Signature,
		Nonce:        0,
		Difficulty:   difficulty,
	}
	b.Hash = b.CalculateHash()
	return b, nil
}

// CalculateHash is the pure function of b's current fields:
// lowercase hex SHA-256 of
//
//	prev_hash ‖ timestamp ‖ canonical_json(diploma_data) ‖ public_key_pem ‖ signature ‖ nonce ‖ difficulty
//
// with every number rendered as its decimal string form.
func (b *Block) CalculateHash() string {
	var sb strings.Builder
	sb.WriteString(b.PrevHash)
	sb.WriteString(strconv.FormatInt(b.Timestamp, 10))
	canon, err := json.Marshal(b.DiplomaData)
	if err != nil {
		// DiplomaData always round-trips through encoding/json; a
		// failure here means the field set itself is broken, which is
		// a programmer error, not a runtime condition callers recover
		// from.
		panic(fmt.Sprintf("chain: diploma_data does not marshal: %v", err))
	}
	sb.Write(canon)
	sb.WriteString(b.PublicKeyPEM)
	sb.WriteString(b.Signature)
	sb.WriteString(strconv.FormatUint(b.Nonce, 10))
	sb.WriteString(strconv.Itoa(b.Difficulty))
	return cryptoutil.HexSHA256([]byte(sb.String()))
}

// HashInfo returns the deterministic prefix string miners hash
// together with nonce and difficulty while searching for a solution:
//
//	prev_hash ‖ timestamp ‖ canonical_json(diploma_data) ‖ public_key_pem ‖ signature
func (b *Block) HashInfo() string {
	var sb strings.Builder
	sb.WriteString(b.PrevHash)
	sb.WriteString(strconv.FormatInt(b.Timestamp, 10))
	canon, _ := json.Marshal(b.DiplomaData)
	sb.Write(canon)
	sb.WriteString(b.PublicKeyPEM)
	sb.WriteString(b.Signature)
	return sb.String()
}

// HashWithNonce recomputes the sealed hash for a candidate nonce
// without mutating b, as used both by miners (conceptually) and by
// SUBMIT_SOLUTION's server-side verification.
func HashWithNonce(hashInfo string, nonce uint64, difficulty int) string {
	var sb strings.Builder
	sb.WriteString(hashInfo)
	sb.WriteString(strconv.FormatUint(nonce, 10))
	sb.WriteString(strconv.Itoa(difficulty))
	return cryptoutil.HexSHA256([]byte(sb.String()))
}

// MeetsDifficulty reports whether hash has at least d leading hex '0' characters.
func MeetsDifficulty(hash string, d int) bool {
	if d < 0 || d > len(hash) {
		return false
	}
	for i := 0; i < d; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}

// VerifyDiploma reloads b's stored public key PEM and re-runs
// signature verification over b's diploma data.
func (b *Block) VerifyDiploma() bool {
	pub, err := cryptoutil.DecodePublicKeyPEM([]byte(b.PublicKeyPEM))
	if err != nil {
		return false
	}
	return diploma.Verify(b.DiplomaData, pub)
}

// Sealed reports whether b's hash satisfies its own difficulty and
// its diploma verifies under its own stored key.
func (b *Block) Sealed() bool {
	return MeetsDifficulty(b.Hash, b.Difficulty) && b.Hash == b.CalculateHash() && b.VerifyDiploma()
}

// Mine increments Nonce until Hash satisfies Difficulty. It is used
// only for genesis creation at startup; the shared task queue
// (internal/mining) is the only other path that ever seals a block,
// and it never calls Mine directly — it accepts miner-submitted
// nonces instead.
func (b *Block) Mine() {
	for !MeetsDifficulty(b.Hash, b.Difficulty) {
		b.Nonce++
		b.Hash = b.CalculateHash()
	}
}
