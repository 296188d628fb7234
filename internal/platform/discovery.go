package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/rflorenc/nexus-migration-workbench/internal/mapping"
	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// MinimumVersion is the oldest target release the payloads are valid for.
const MinimumVersion = "3.0.0"

// StatusResponse holds the parsed /v1/status answer.
type StatusResponse struct {
	Version string `json:"version"`
	Edition string `json:"edition,omitempty"`
}

// ParseStatusResponse extracts the version from a status body, falling back
// to the "Server: Nexus/3.x.y (OSS)" header when the body carries none.
func ParseStatusResponse(body []byte, header http.Header) (*StatusResponse, error) {
	var resp StatusResponse
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil && header.Get("Server") == "" {
			return nil, errors.Wrap(err, "parsing status response")
		}
	}
	if resp.Version == "" {
		resp.Version, resp.Edition = parseServerHeader(header.Get("Server"))
	}
	if resp.Version == "" {
		return nil, errors.New("status response missing version field")
	}
	return &resp, nil
}

func parseServerHeader(v string) (version, edition string) {
	product, rest, ok := strings.Cut(strings.TrimSpace(v), "/")
	if !ok || !strings.EqualFold(product, "nexus") {
		return "", ""
	}
	version, edition, _ = strings.Cut(rest, " ")
	return version, strings.Trim(edition, "()")
}

// Status checks connectivity and reports the target version.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	// The raw answer is needed for the Server header fallback.
	resp, err := c.Do(ctx, http.MethodGet, mapping.PathStatus, nil, nil)
	if err != nil {
		return nil, &models.RemoteRequestError{Method: http.MethodGet, Path: mapping.PathStatus, Err: err}
	}
	if res := Classify(OpGet, mapping.PathStatus, resp.StatusCode, resp.Body); res.Err() != nil {
		return nil, res.Err()
	}
	return ParseStatusResponse(resp.Body, resp.Header)
}

// CheckVersion fails unless the target reports at least min.
func (c *Client) CheckVersion(ctx context.Context, min string) (string, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return "", err
	}
	if !VersionAtLeast(status.Version, min) {
		return status.Version, errors.Errorf("target version %s is older than required %s", status.Version, min)
	}
	return status.Version, nil
}

// CompareVersions performs a simple semver comparison.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
// Handles partial versions (e.g. "3.61" vs "3.61.0") and build suffixes
// (e.g. "3.61.0-02").
func CompareVersions(a, b string) int {
	aParts := parseVersionParts(a)
	bParts := parseVersionParts(b)

	maxLen := max(len(aParts), len(bParts))
	for i := 0; i < maxLen; i++ {
		var av, bv int
		if i < len(aParts) {
			av = aParts[i]
		}
		if i < len(bParts) {
			bv = bParts[i]
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// VersionAtLeast returns true if version >= min.
func VersionAtLeast(version, min string) bool {
	if version == "" || min == "" {
		return true
	}
	return CompareVersions(version, min) >= 0
}

func parseVersionParts(v string) []int {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(v), "v"), ".")
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		digits := p
		if i := strings.IndexFunc(p, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
			digits = p[:i]
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			break
		}
		result = append(result, n)
		if len(digits) != len(p) {
			break
		}
	}
	return result
}
