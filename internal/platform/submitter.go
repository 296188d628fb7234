package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// Operation is what a submission does to the target.
type Operation string

const (
	OpCreate Operation = "create"
	OpDelete Operation = "delete"
	OpGet    Operation = "get"
)

func (o Operation) method() string {
	switch o {
	case OpCreate:
		return http.MethodPost
	case OpDelete:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}

// Result is the classified outcome of one submission. Exactly one of a
// success (Err() == nil) or a typed remote error is represented.
type Result struct {
	Op         Operation
	Path       string
	StatusCode int // 0 on transport failure
	// Body is the decoded JSON answer of a success, nil when empty or not JSON.
	Body any
	// Gone is set for a delete answered with 404.
	Gone bool
	err  error
}

// Err returns nil on success, *models.RemoteConflictError for a create
// answered with 422, and *models.RemoteRequestError otherwise.
func (r Result) Err() error { return r.err }

// Success reports whether the submission was accepted.
func (r Result) Success() bool { return r.err == nil }

// Conflict reports a create rejected because the entity already exists.
func (r Result) Conflict() bool { return IsConflict(r.err) }

// Submitter performs a single attempt per call; retry policy belongs to the
// caller.
type Submitter struct {
	client *Client
	log    logrus.FieldLogger
}

func NewSubmitter(client *Client, log logrus.FieldLogger) *Submitter {
	if log == nil {
		log = client.log
	}
	return &Submitter{client: client, log: log}
}

// Submit sends payload (ignored for delete and get) and classifies the answer.
func (s *Submitter) Submit(ctx context.Context, op Operation, path string, payload any) Result {
	var res Result
	switch op {
	case OpCreate:
		res = s.client.Post(ctx, path, payload)
	case OpDelete:
		res = s.client.Delete(ctx, path)
	default:
		res = s.client.Get(ctx, path, nil)
	}
	if err := res.Err(); err != nil {
		log := s.log.WithFields(logrus.Fields{"op": op, "path": path, "status": res.StatusCode})
		if IsTransport(err) {
			log.Warnf("no answer from target: %v", err)
		} else {
			log.Debug(err)
		}
	}
	return res
}

// Classify turns a raw answer into a Result: 2xx is a success with the
// decoded body, 422 on create a conflict, 404 on delete already gone, and
// anything else a *models.RemoteRequestError.
func Classify(op Operation, path string, status int, body []byte) Result {
	method := op.method()
	res := Result{Op: op, Path: path, StatusCode: status}
	switch {
	case isSuccess(status):
		res.Body = decodeBody(body)
	case op == OpCreate && status == http.StatusUnprocessableEntity:
		res.err = &models.RemoteConflictError{Method: method, Path: path, Body: truncate(string(body), 200)}
	case op == OpDelete && status == http.StatusNotFound:
		res.Gone = true
	default:
		res.err = &models.RemoteRequestError{Method: method, Path: path, StatusCode: status, Messages: ErrorMessages(body)}
	}
	return res
}

func decodeBody(body []byte) any {
	if strings.TrimSpace(string(body)) == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil
	}
	return v
}

// IsTransport reports a failure where no HTTP answer was received.
func IsTransport(err error) bool {
	var reqErr *models.RemoteRequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == 0
}
