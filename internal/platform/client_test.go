package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

func newTestClient(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(&models.Connection{
		URL:       ts.URL,
		APIPrefix: "/service/rest",
		Username:  "admin",
		Password:  "secret",
		Timeout:   5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClient_Get_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/service/rest/v1/security/users" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("userId") != "jdoe" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"userId":"jdoe"}]`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	res := c.Get(context.Background(), "/v1/security/users", map[string][]string{"userId": {"jdoe"}})
	if err := res.Err(); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	users, ok := res.Body.([]any)
	if !ok || len(users) != 1 {
		t.Fatalf("body = %#v", res.Body)
	}
	if users[0].(map[string]any)["userId"] != "jdoe" {
		t.Errorf("body = %#v", res.Body)
	}
}

func TestClient_Get_AuthHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			t.Errorf("BasicAuth = (%q, %q, %v), want (admin, secret, true)", user, pass, ok)
		}
		w.Write([]byte("{}"))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	if err := c.Get(context.Background(), "/test", nil).Err(); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
}

func TestClient_Get_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":"Invalid credentials"}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	res := c.Get(context.Background(), "/v1/status/check", nil)
	var reqErr *models.RemoteRequestError
	if !errors.As(res.Err(), &reqErr) {
		t.Fatalf("expected RemoteRequestError, got %v", res.Err())
	}
	if reqErr.StatusCode != 401 || len(reqErr.Messages) != 1 || reqErr.Messages[0] != "Invalid credentials" {
		t.Errorf("unexpected error %+v", reqErr)
	}
	if res.StatusCode != 401 || StatusCode(res.Err()) != 401 {
		t.Errorf("status = %d, StatusCode = %d", res.StatusCode, StatusCode(res.Err()))
	}
}

func TestClient_Post(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", r.Header.Get("Content-Type"))
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["id"] != "dev" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"dev"}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	res := c.Post(context.Background(), "/v1/security/roles", map[string]string{"id": "dev"})
	if err := res.Err(); err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if res.Op != OpCreate || res.StatusCode != http.StatusOK {
		t.Errorf("op=%v status=%d", res.Op, res.StatusCode)
	}
	if role, _ := res.Body.(map[string]any); role["id"] != "dev" {
		t.Errorf("body = %#v", res.Body)
	}
}

func TestClient_Post_Conflict(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`[{"id":"*","message":"Role already exists"}]`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	res := c.Post(context.Background(), "/v1/security/roles", map[string]string{"id": "dev"})
	if res.StatusCode != 422 || !res.Conflict() || res.Success() {
		t.Fatalf("status=%d err=%v", res.StatusCode, res.Err())
	}
	if StatusCode(res.Err()) != 422 {
		t.Errorf("StatusCode = %d", StatusCode(res.Err()))
	}
}

func TestClient_Delete(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusOK, http.StatusNotFound} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != "DELETE" {
				t.Errorf("method = %s, want DELETE", r.Method)
			}
			w.WriteHeader(code)
		}))
		c := newTestClient(t, ts)
		res := c.Delete(context.Background(), "/v1/security/users/jdoe")
		if err := res.Err(); err != nil {
			t.Errorf("HTTP %d: Delete returned error: %v", code, err)
		}
		if res.Gone != (code == http.StatusNotFound) {
			t.Errorf("HTTP %d: Gone = %v", code, res.Gone)
		}
		ts.Close()
	}
}

func TestClient_Delete_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	res := c.Delete(context.Background(), "/v1/security/users/jdoe")
	if StatusCode(res.Err()) != 500 || IsTransport(res.Err()) {
		t.Fatalf("expected HTTP 500 error, got %v", res.Err())
	}
}

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	c, err := NewClient(&models.Connection{URL: ts.URL, Timeout: 20 * time.Millisecond}, nil)
	if err != nil {
		t.Fatal(err)
	}
	res := c.Get(context.Background(), "/slow", nil)
	if !IsTransport(res.Err()) || res.StatusCode != 0 {
		t.Fatalf("expected transport error, got %v", res.Err())
	}
	if StatusCode(res.Err()) != 0 {
		t.Errorf("StatusCode = %d, want 0", StatusCode(res.Err()))
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"empty", "", nil},
		{"string", `{"errors":"boom"}`, []string{"boom"}},
		{"list", `{"errors":["a","b"]}`, []string{"a", "b"}},
		{"objects", `{"errors":[{"id":"name","message":"required"}]}`, []string{"name: required"}},
		{"bare list", `[{"id":"*","message":"already exists"}]`, []string{"already exists"}},
		{"plain text", "Internal Server Error", []string{"Internal Server Error"}},
		{"unrelated json", `{"status":"bad"}`, []string{`{"status":"bad"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorMessages([]byte(tt.body))
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("ErrorMessages(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a long string", 10, "this is a ..."},
		{"", 5, ""},
	}
	for _, tc := range tests {
		got := truncate(tc.input, tc.maxLen)
		if got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.input, tc.maxLen, got, tc.want)
		}
	}
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(&models.Connection{
		URL:       "https://nexus.example.com/",
		APIPrefix: "/service/rest/",
		Username:  "admin",
		Password:  "pass",
		Insecure:  true,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.baseURL != "https://nexus.example.com/service/rest" {
		t.Errorf("baseURL = %q", c.baseURL)
	}

	_, err = NewClient(&models.Connection{URL: "https://x", CACert: "not a pem"}, nil)
	if err == nil {
		t.Error("expected error for invalid CA certificate")
	}
}
