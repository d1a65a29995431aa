package server

import (
	"encoding/json"
	"fmt"
)

// dataEnvelope wraps every OK payload in the {"data": ...} shape.
type dataEnvelope struct {
	Data interface{} `json:"data"`
}

// formatOK renders a successful response line: `OK <tag>\r\n{"data":
// ...}`. The trailing frame terminator is left to the caller
// batching multiple response lines together.
func formatOK(tag string, payload interface{}) (string, error) {
	buf, err := json.Marshal(dataEnvelope{Data: payload})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("OK %s\r\n%s", tag, buf), nil
}

// formatError renders a failed response line: `ERROR <code>\r\n<message>`.
func formatError(code int, message string) string {
	return fmt.Sprintf("ERROR %d\r\n%s", code, message)
}

// joinResponses concatenates per-line responses in order, separated by
// "\r\n" and terminated by the batch frame "\r\n\r\n".
func joinResponses(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\r\n"
		}
		out += l
	}
	return out + "\r\n\r\n"
}
