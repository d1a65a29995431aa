package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dchain-network/dchain/internal/auth"
	"github.com/dchain-network/dchain/internal/chain"
	"github.com/dchain-network/dchain/internal/cryptoutil"
	"github.com/dchain-network/dchain/internal/diploma"
	"github.com/dchain-network/dchain/internal/mining"
	"github.com/dchain-network/dchain/internal/reward"
)

type harness struct {
	t       *testing.T
	state   *State
	router  *Router
	adminPw string
	minerPw string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	genesisPriv, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	genesisRec := sampleRecord("Genesis")
	signedGenesis, err := diploma.Sign(genesisRec, genesisPriv)
	require.NoError(t, err)

	bc, err := chain.Open(filepath.Join(dir, "chain"), 1, &signedGenesis, &genesisPriv.PublicKey)
	require.NoError(t, err)

	adminHash, err := auth.HashPassword("adminpw")
	require.NoError(t, err)
	minerHash, err := auth.HashPassword("minerpw")
	require.NoError(t, err)
	users := []auth.User{
		{Username: "admin", PasswordHash: adminHash, Role: auth.RoleAdmin, Status: "active"},
		{Username: "m1", PasswordHash: minerHash, Role: auth.RoleMiner, Status: "active"},
		{Username: "m2", PasswordHash: minerHash, Role: auth.RoleMiner, Status: "active"},
	}
	usersPath := filepath.Join(dir, "users.json")
	buf, err := json.Marshal(users)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(usersPath, buf, 0o644))

	reg := auth.NewRegistry(usersPath)
	cached, err := auth.NewCachedRegistry(reg, 10, 0)
	require.NoError(t, err)

	rl, err := reward.Open(filepath.Join(dir, "rewards.json"))
	require.NoError(t, err)

	q := mining.NewQueue(1_000_000)
	state := NewState(bc, q, rl, cached)

	return &harness{t: t, state: state, router: NewRouter(state), adminPw: "adminpw", minerPw: "minerpw"}
}

func sampleRecord(name string) diploma.Record {
	return diploma.Record{
		Institution: "National University", FullName: name, Program: "CS",
		Qualification: "Bachelor", Specialty: "SE", IssueDate: "2024-01-01",
		RegNumber: "R-1", RectorName: "Rector", SecretaryName: "Secretary",
	}
}

func TestViewerReadsGenesisAnonymously(t *testing.T) {
	h := newHarness(t)
	resp := h.router.HandleBatch("VIEW_BLOCK 0\r\n\r\n")
	require.True(t, strings.HasPrefix(resp, "OK VIEW_BLOCK\r\n"))
	require.Contains(t, resp, `"data"`)
}

func TestUnauthorizedAddBlockWithoutLogin(t *testing.T) {
	h := newHarness(t)
	resp := h.router.HandleBatch("ADD_BLOCK {}\r\n\r\n")
	require.Equal(t, "ERROR 401\r\nAuthentication required\r\n\r\n", resp)
}

func TestAdminAddAndMinerSolvesEndToEnd(t *testing.T) {
	h := newHarness(t)

	priv, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	signed, err := diploma.Sign(sampleRecord("Jane Q. Public"), priv)
	require.NoError(t, err)
	pubPEM, err := cryptoutil.EncodePublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	addPayload, err := json.Marshal(map[string]interface{}{
		"diploma_data": signed,
		"public_key":   string(pubPEM),
		"signature":    signed.Signature,
	})
	require.NoError(t, err)

	batch := "LOGIN admin " + h.adminPw + "\r\nADD_BLOCK " + string(addPayload) + "\r\n\r\n"
	resp := h.router.HandleBatch(batch)
	require.Contains(t, resp, "OK ADD_BLOCK")
	require.Contains(t, resp, `"block_id":1`)

	mineResp := h.router.HandleBatch("LOGIN m1 " + h.minerPw + "\r\nMINE\r\n\r\n")
	require.Contains(t, mineResp, "OK MINE")

	var mineEnvelope struct {
		Data struct {
			BlockID    int    `json:"block_id"`
			NonceStart uint64 `json:"nonce_start"`
			NonceEnd   uint64 `json:"nonce_end"`
			Info       string `json:"info"`
			Difficulty int    `json:"difficulty"`
		} `json:"data"`
	}
	jsonLine := strings.SplitN(mineResp, "\r\n", 2)[1]
	jsonLine = strings.TrimSuffix(jsonLine, "\r\n\r\n")
	require.NoError(t, json.Unmarshal([]byte(jsonLine), &mineEnvelope))

	nonce, hash := bruteForce(mineEnvelope.Data.Info, mineEnvelope.Data.Difficulty, mineEnvelope.Data.NonceStart)

	submitBatch := "LOGIN m1 " + h.minerPw + "\r\nSUBMIT_SOLUTION " + strconv.FormatUint(nonce, 10) + " " + hash + "\r\n\r\n"
	submitResp := h.router.HandleBatch(submitBatch)
	require.Contains(t, submitResp, "OK SUBMIT_SOLUTION")
	require.Contains(t, submitResp, `"block_id":1`)
	require.Contains(t, submitResp, `"reward":1`)

	viewResp := h.router.HandleBatch("VIEW_BLOCK 1\r\n\r\n")
	require.Contains(t, viewResp, "OK VIEW_BLOCK")
}

func TestLoginOnlyBatchReturnsSingleOKLine(t *testing.T) {
	h := newHarness(t)
	resp := h.router.HandleBatch("LOGIN admin " + h.adminPw + "\r\n\r\n")
	require.Equal(t, 1, strings.Count(resp, "OK "))
	require.True(t, strings.HasPrefix(resp, "OK LOGIN\r\n"))
}

func TestLoginLaterInBatchStillAuthenticates(t *testing.T) {
	h := newHarness(t)
	batch := "VIEW_BLOCK 0\r\nLOGIN admin " + h.adminPw + "\r\nLIST_QUEUE\r\n\r\n"
	resp := h.router.HandleBatch(batch)

	require.NotContains(t, resp, "ERROR 401")
	require.NotContains(t, resp, "OK LOGIN")
	require.Contains(t, resp, "OK VIEW_BLOCK")
	require.Contains(t, resp, "OK LIST_QUEUE")
}

func TestFailedLoginRejectsWholeBatch(t *testing.T) {
	h := newHarness(t)
	resp := h.router.HandleBatch("LOGIN admin wrongpw\r\nLIST_QUEUE\r\n\r\n")
	require.Equal(t, "ERROR 401\r\nAuthentication failed\r\n\r\n", resp)
}

func TestMinerCannotAddBlock(t *testing.T) {
	h := newHarness(t)
	resp := h.router.HandleBatch("LOGIN m1 " + h.minerPw + "\r\nADD_BLOCK {}\r\n\r\n")
	require.Contains(t, resp, "ERROR 403")
}

func TestUnknownCommandIsBadRequest(t *testing.T) {
	h := newHarness(t)
	resp := h.router.HandleBatch("FROBNICATE\r\n\r\n")
	require.Contains(t, resp, "ERROR 400")
}

func bruteForce(info string, difficulty int, start uint64) (uint64, string) {
	for n := start; ; n++ {
		h := chain.HashWithNonce(info, n, difficulty)
		if chain.MeetsDifficulty(h, difficulty) {
			return n, h
		}
	}
}

