package platform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// ErrorMessages extracts the human-readable messages of an error body. Nexus
// answers with an "errors" field holding a string, a list of strings, or a
// list of {id, message} objects; validation failures may also come as a
// bare top-level list of such objects. Anything else is returned verbatim.
func ErrorMessages(body []byte) []string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil
	}

	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		if msgs := flattenMessages(envelope.Errors); len(msgs) > 0 {
			return msgs
		}
	}
	if msgs := flattenMessages(body); len(msgs) > 0 {
		return msgs
	}
	return []string{truncate(text, 200)}
}

func flattenMessages(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			ID      string `json:"id"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.Message != "" {
			if obj.ID != "" && obj.ID != "*" {
				out = append(out, fmt.Sprintf("%s: %s", obj.ID, obj.Message))
			} else {
				out = append(out, obj.Message)
			}
		}
	}
	return out
}

// IsConflict reports whether err is an "already exists" answer.
func IsConflict(err error) bool {
	var conflict *models.RemoteConflictError
	return errors.As(err, &conflict)
}

// StatusCode returns the HTTP status carried by a remote error, 0 for
// transport failures or unrelated errors.
func StatusCode(err error) int {
	var reqErr *models.RemoteRequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	if IsConflict(err) {
		return 422
	}
	return 0
}
