// Package platform talks to the Nexus3 REST API.
package platform

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// Client is a basic-auth JSON client rooted at the REST prefix.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewClient creates a Client from a Connection. CACert may be inline PEM or
// a path to a PEM file.
func NewClient(conn *models.Connection, log logrus.FieldLogger) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if conn.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	} else if conn.CACert != "" {
		pem := []byte(conn.CACert)
		if data, err := os.ReadFile(conn.CACert); err == nil {
			pem = data
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("no certificates found in ca_cert")
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Client{
		baseURL:  conn.BaseURL(),
		username: conn.Username,
		password: conn.Password,
		log:      log,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   conn.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Re-apply basic auth on redirects
				if len(via) > 0 {
					req.SetBasicAuth(conn.Username, conn.Password)
				}
				return nil
			},
		},
	}, nil
}

// Response is a raw answer from the API.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do sends one request. A returned error means no HTTP answer was obtained;
// status classification is left to the caller.
func (c *Client) Do(ctx context.Context, method, path string, params url.Values, payload any) (*Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "marshaling body")
		}
		bodyReader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}
	c.log.WithFields(logrus.Fields{"method": method, "path": path, "status": resp.StatusCode}).
		Debugf("response body: %s", truncate(string(body), 500))
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// Get performs an authenticated GET and classifies the answer.
func (c *Client) Get(ctx context.Context, path string, params url.Values) Result {
	return c.send(ctx, OpGet, path, params, nil)
}

// Post performs an authenticated POST with a JSON body. A 422 answer is a
// conflict (*models.RemoteConflictError).
func (c *Client) Post(ctx context.Context, path string, payload any) Result {
	return c.send(ctx, OpCreate, path, nil, payload)
}

// Delete performs an authenticated DELETE. A 404 counts as already gone.
func (c *Client) Delete(ctx context.Context, path string) Result {
	return c.send(ctx, OpDelete, path, nil, nil)
}

func (c *Client) send(ctx context.Context, op Operation, path string, params url.Values, payload any) Result {
	method := op.method()
	resp, err := c.Do(ctx, method, path, params, payload)
	if err != nil {
		return Result{Op: op, Path: path, err: &models.RemoteRequestError{Method: method, Path: path, Err: err}}
	}
	return Classify(op, path, resp.StatusCode, resp.Body)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
