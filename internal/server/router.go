package server

import (
	"encoding/json"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set"

	"github.com/dchain-network/dchain/internal/auth"
	"github.com/dchain-network/dchain/internal/diploma"
	"github.com/dchain-network/dchain/internal/log"
	"github.com/dchain-network/dchain/internal/mining"
)

var (
	anonymousCommands = mapset.NewSetWith("HELP", "VIEW_BLOCK")
	adminCommands     = mapset.NewSetWith("HELP", "VIEW_BLOCK", "ADD_BLOCK", "LIST_QUEUE")
	minerCommands     = mapset.NewSetWith("HELP", "VIEW_BLOCK", "MINE", "SUBMIT_SOLUTION")
	allCommands       = adminCommands.Union(minerCommands)
)

func allowedCommands(role auth.Role, authenticated bool) mapset.Set {
	if !authenticated {
		return anonymousCommands
	}
	switch role {
	case auth.RoleAdmin:
		return adminCommands
	case auth.RoleMiner:
		return minerCommands
	default:
		return anonymousCommands
	}
}

// Router dispatches framed command batches against a State.
type Router struct {
	state *State
	log   *log.Logger
}

// NewRouter builds a Router over state.
func NewRouter(state *State) *Router {
	return &Router{state: state, log: log.Root().New("component", "router")}
}

// session carries the authenticated identity (if any) across the
// lines of a single batch.
type session struct {
	authenticated bool
	username      string
	role          auth.Role
}

// HandleBatch parses one \r\n\r\n-framed request batch and returns the
// full framed response batch (including the trailing "\r\n\r\n").
//
// If any line starts with LOGIN, that line authenticates the whole
// batch regardless of its position; every other line then executes as
// that user, in its original order, and the LOGIN line itself
// produces no response line of its own (only the credential check,
// which yields a single 401 for the batch on failure). A batch that
// is nothing but a LOGIN line succeeds with one OK LOGIN line. With
// no LOGIN line present, every line dispatches anonymously.
func (rt *Router) HandleBatch(batch string) string {
	lines := splitLines(batch)
	if len(lines) == 0 {
		return joinResponses([]string{formatError(400, "empty request")})
	}

	loginIdx := -1
	for i, line := range lines {
		if cmd, _ := firstToken(line); cmd == "LOGIN" {
			loginIdx = i
			break
		}
	}

	if loginIdx < 0 {
		sess := session{}
		responses := make([]string, 0, len(lines))
		for _, line := range lines {
			responses = append(responses, rt.dispatch(line, sess))
		}
		return joinResponses(responses)
	}

	var sess session
	if errResp, ok := rt.authenticate(lines[loginIdx], &sess); !ok {
		return joinResponses([]string{errResp})
	}

	remaining := make([]string, 0, len(lines)-1)
	remaining = append(remaining, lines[:loginIdx]...)
	remaining = append(remaining, lines[loginIdx+1:]...)

	if len(remaining) == 0 {
		resp, _ := formatOK("LOGIN", map[string]string{"role": string(sess.role)})
		return joinResponses([]string{resp})
	}

	responses := make([]string, 0, len(remaining))
	for _, line := range remaining {
		responses = append(responses, rt.dispatch(line, sess))
	}
	return joinResponses(responses)
}

func splitLines(batch string) []string {
	batch = strings.TrimSuffix(batch, "\r\n\r\n")
	batch = strings.TrimSuffix(batch, "\r\n")
	if batch == "" {
		return nil
	}
	return strings.Split(batch, "\r\n")
}

func firstToken(line string) (cmd, rest string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

// authenticate validates the LOGIN line and, on success, populates
// sess. On success it never produces a response line of its own: a
// LOGIN line either authenticates the rest of the batch silently, or
// fails the whole batch with the single error response returned here.
func (rt *Router) authenticate(line string, sess *session) (errResp string, ok bool) {
	_, rest := firstToken(line)
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return formatError(400, "LOGIN requires a username and password"), false
	}
	user, err := rt.state.Authenticate(fields[0], fields[1])
	if err != nil {
		return formatError(401, "Authentication failed"), false
	}
	sess.authenticated = true
	sess.username = user.Username
	sess.role = user.Role
	return "", true
}

func (rt *Router) dispatch(line string, sess session) string {
	cmd, rest := firstToken(line)
	if cmd == "" {
		return formatError(400, "empty command")
	}
	allowed := allowedCommands(sess.role, sess.authenticated)
	if !allowed.Contains(cmd) {
		if !allCommands.Contains(cmd) {
			return formatError(400, "Unknown command")
		}
		if !sess.authenticated {
			return formatError(401, "Authentication required")
		}
		return formatError(403, "Role does not permit this command")
	}

	switch cmd {
	case "HELP":
		return rt.handleHelp()
	case "VIEW_BLOCK":
		return rt.handleViewBlock(rest)
	case "ADD_BLOCK":
		return rt.handleAddBlock(rest)
	case "LIST_QUEUE":
		return rt.handleListQueue()
	case "MINE":
		return rt.handleMine(sess)
	case "SUBMIT_SOLUTION":
		return rt.handleSubmitSolution(rest, sess)
	default:
		return formatError(400, "Unknown command")
	}
}

func (rt *Router) handleHelp() string {
	resp, _ := formatOK("HELP", []string{
		"HELP", "VIEW_BLOCK <id>", "LOGIN <user> <pass>",
		"ADD_BLOCK <json> (admin)", "LIST_QUEUE (admin)",
		"MINE (miner)", "SUBMIT_SOLUTION <nonce> <hash> (miner)",
	})
	return resp
}

func (rt *Router) handleViewBlock(rest string) string {
	id, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return formatError(400, "VIEW_BLOCK requires an integer id")
	}
	b, err := rt.state.ViewBlock(id)
	if err != nil {
		return formatError(404, "No such block")
	}
	resp, _ := formatOK("VIEW_BLOCK", b)
	return resp
}

// addBlockRequest mirrors the wire JSON for ADD_BLOCK payloads.
type addBlockRequest struct {
	DiplomaData diploma.Record `json:"diploma_data"`
	PublicKey   string         `json:"public_key"`
	Signature   string         `json:"signature"`
}

func (rt *Router) handleAddBlock(rest string) string {
	var req addBlockRequest
	if err := json.Unmarshal([]byte(rest), &req); err != nil {
		return formatError(400, "ADD_BLOCK requires a JSON payload")
	}
	req.DiplomaData.Signature = req.Signature

	result, err := rt.state.AddBlock(req.DiplomaData, req.PublicKey)
	if err != nil {
		return formatError(422, err.Error())
	}
	resp, _ := formatOK("ADD_BLOCK", map[string]int{"block_id": result.BlockID})
	return resp
}

func (rt *Router) handleListQueue() string {
	entries := rt.state.ListQueue()
	resp, _ := formatOK("LIST_QUEUE", entries)
	return resp
}

func (rt *Router) handleMine(sess session) string {
	result, err := rt.state.Mine(sess.username)
	if err != nil {
		if err == mining.ErrNoTasks {
			return formatError(409, "No tasks in queue")
		}
		return formatError(500, err.Error())
	}
	resp, _ := formatOK("MINE", map[string]interface{}{
		"block_id":    result.BlockID,
		"nonce_start": result.NonceStart,
		"nonce_end":   result.NonceEnd,
		"info":        result.HashInfo,
		"difficulty":  result.Difficulty,
	})
	return resp
}

func (rt *Router) handleSubmitSolution(rest string, sess session) string {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return formatError(400, "SUBMIT_SOLUTION requires a nonce and a hash")
	}
	nonce, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return formatError(400, "SUBMIT_SOLUTION nonce must be a non-negative integer")
	}
	hash := fields[1]

	result, err := rt.state.SubmitSolution(sess.username, nonce, hash)
	if err != nil {
		switch err {
		case mining.ErrNoActiveTask:
			return formatError(409, "No active task")
		case mining.ErrNonceOutOfRange, mining.ErrHashMismatch, mining.ErrDifficultyNotMet:
			return formatError(422, err.Error())
		default:
			return formatError(500, err.Error())
		}
	}
	resp, _ := formatOK("SUBMIT_SOLUTION", map[string]interface{}{
		"block_id":  result.BlockID,
		"prev_hash": result.PrevHash,
		"new_hash":  result.NewHash,
		"reward":    result.Reward,
	})
	return resp
}
