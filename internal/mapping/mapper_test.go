package mapping

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

func newTestMapper() *Mapper {
	return New(Options{BlobStore: "default", CacheTTL: 1440, DefaultPassword: "changeme123"})
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestMapPrivilegeActions(t *testing.T) {
	tests := []struct {
		name string
		priv models.LegacyPrivilege
		want []string
	}{
		{"target create delete", models.LegacyPrivilege{Name: "p", Type: "target", Methods: []string{"CREATE", "DELETE"}}, []string{"DELETE", "EDIT", "READ"}},
		{"target read create", models.LegacyPrivilege{Name: "repo-read", Type: "target", Methods: []string{"READ", "CREATE"}}, []string{"EDIT", "READ"}},
		{"target update create once", models.LegacyPrivilege{Name: "p", Type: "target", Methods: []string{"update", "create"}}, []string{"EDIT", "READ"}},
		{"target unknown ignored", models.LegacyPrivilege{Name: "p", Type: "target", Methods: []string{"PATCH"}}, []string{"READ"}},
		{"target no methods", models.LegacyPrivilege{Name: "p", Type: "target"}, []string{"READ"}},
		{"application property", models.LegacyPrivilege{Name: "p", Type: "application", Properties: map[string]string{"method": "DELETE"}}, []string{"DELETE"}},
		{"application property verbatim", models.LegacyPrivilege{Name: "p", Type: "application", Properties: map[string]string{"method": "browse,read"}}, []string{"browse,read"}},
		{"application default", models.LegacyPrivilege{Name: "p", Type: "application"}, []string{"READ"}},
		{"method upper", models.LegacyPrivilege{Name: "p", Type: "method", Methods: []string{"read", "browse"}}, []string{"BROWSE", "READ"}},
		{"method default", models.LegacyPrivilege{Name: "p", Type: "method"}, []string{"READ"}},
	}
	m := newTestMapper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := m.MapPrivilege(tt.priv)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !d.IsCreate() {
				t.Fatalf("expected create, got %v (%s)", d.Action, d.Reason)
			}
			got := d.Payload.(PrivilegePayload).Actions
			if !reflect.DeepEqual(sorted(got), tt.want) {
				t.Errorf("actions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapPrivilegePayload(t *testing.T) {
	d, err := newTestMapper().MapPrivilege(models.LegacyPrivilege{Name: "repo-read", Type: "target", Methods: []string{"READ"}})
	if err != nil {
		t.Fatal(err)
	}
	if d.Path != "/v1/security/privileges/application" {
		t.Errorf("path = %s", d.Path)
	}
	p := d.Payload.(PrivilegePayload)
	if p.Description != "repo-read" || p.Domain != "*" || p.Type != "application" {
		t.Errorf("unexpected payload %+v", p)
	}

	d, _ = newTestMapper().MapPrivilege(models.LegacyPrivilege{Name: "x", Type: "application", Description: "desc", ResourceURI: "/repositories/foo"})
	p = d.Payload.(PrivilegePayload)
	if p.Description != "desc" || p.Domain != "/repositories/foo" {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestMapPrivilegeUnsupportedTypeSkips(t *testing.T) {
	d, err := newTestMapper().MapPrivilege(models.LegacyPrivilege{Name: "p", Type: "repository-view"})
	if err != nil {
		t.Fatal(err)
	}
	if !d.IsSkip() || d.Reason == "" {
		t.Errorf("expected skip with reason, got %+v", d)
	}
}

func TestMapPrivilegeEmptyNameFails(t *testing.T) {
	_, err := newTestMapper().MapPrivilege(models.LegacyPrivilege{ID: "42", Type: "target"})
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestMapRepositoryProxyDefaultTTL(t *testing.T) {
	d, err := newTestMapper().MapRepository(models.LegacyRepository{
		Name: "central", RepoType: "proxy", Format: "maven2", Exposed: true,
		RemoteURL: "https://repo1.maven.org/maven2/",
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Path != "/v1/repositories/maven2/proxy" || d.Format != "maven2" {
		t.Errorf("path=%s format=%s", d.Path, d.Format)
	}
	p := d.Payload.(RepositoryPayload)
	if p.NegativeCache == nil || p.NegativeCache.TimeToLive != 1440 || !p.NegativeCache.Enabled {
		t.Errorf("negative cache = %+v", p.NegativeCache)
	}
	if p.Proxy.ContentMaxAge != 1440 || p.Proxy.MetadataMaxAge != 1440 {
		t.Errorf("proxy = %+v", p.Proxy)
	}
	if p.HTTPClient == nil || p.HTTPClient.Blocked || !p.HTTPClient.AutoBlock {
		t.Errorf("httpClient = %+v", p.HTTPClient)
	}
	if p.Maven == nil || p.Maven.VersionPolicy != "RELEASE" || p.Maven.LayoutPolicy != "STRICT" {
		t.Errorf("maven = %+v", p.Maven)
	}
	if p.Storage.WritePolicy != "" {
		t.Errorf("proxy must not carry a write policy, got %q", p.Storage.WritePolicy)
	}
}

func TestMapRepositoryProxyStoredTTL(t *testing.T) {
	ttl := 30
	d, err := newTestMapper().MapRepository(models.LegacyRepository{
		Name: "npmjs", RepoType: "PROXY", Format: "NPM", RemoteURL: "https://registry.npmjs.org", NotFoundCacheTTL: &ttl,
	})
	if err != nil {
		t.Fatal(err)
	}
	p := d.Payload.(RepositoryPayload)
	if p.NegativeCache.TimeToLive != 30 {
		t.Errorf("ttl = %d", p.NegativeCache.TimeToLive)
	}
	if p.NPM == nil || !p.NPM.RemoveQuarantined {
		t.Errorf("npm = %+v", p.NPM)
	}
}

func TestMapRepositoryProxyWithoutRemoteFails(t *testing.T) {
	_, err := newTestMapper().MapRepository(models.LegacyRepository{Name: "x", RepoType: "proxy", Format: "raw"})
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestMapRepositoryHostedWritePolicy(t *testing.T) {
	tests := map[string]string{
		"ALLOW_WRITE":      "ALLOW",
		"ALLOW_WRITE_ONCE": "ALLOW_ONCE",
		"READ_ONLY":        "DENY",
		"":                 "DENY",
	}
	for in, want := range tests {
		d, err := newTestMapper().MapRepository(models.LegacyRepository{Name: "h", RepoType: "hosted", Format: "raw", WritePolicy: in})
		if err != nil {
			t.Fatal(err)
		}
		if got := d.Payload.(RepositoryPayload).Storage.WritePolicy; got != want {
			t.Errorf("%q: write policy = %q, want %q", in, got, want)
		}
	}
}

func TestMapRepositoryGroup(t *testing.T) {
	m := newTestMapper()
	d, err := m.MapRepository(models.LegacyRepository{Name: "public", RepoType: "virtual", Format: "maven2"})
	if err != nil {
		t.Fatal(err)
	}
	if !d.IsSkip() {
		t.Fatalf("empty group must be skipped, got %+v", d)
	}

	d, err = m.MapRepository(models.LegacyRepository{Name: "public", RepoType: "virtual", Format: "maven2", GroupMembers: []string{"central", "releases"}})
	if err != nil {
		t.Fatal(err)
	}
	if d.Path != "/v1/repositories/maven2/group" {
		t.Errorf("path = %s", d.Path)
	}
	p := d.Payload.(RepositoryPayload)
	if !reflect.DeepEqual(p.Group.MemberNames, []string{"central", "releases"}) {
		t.Errorf("members = %v", p.Group.MemberNames)
	}
}

func TestMapRepositorySkips(t *testing.T) {
	m := newTestMapper()
	for _, r := range []models.LegacyRepository{
		{Name: "a", RepoType: "shadow", Format: "maven2"},
		{Name: "b", RepoType: "hosted", Format: "maven1"},
	} {
		d, err := m.MapRepository(r)
		if err != nil {
			t.Fatal(err)
		}
		if !d.IsSkip() {
			t.Errorf("%s: expected skip", r.Name)
		}
	}
}

func TestFormatExtras(t *testing.T) {
	m := newTestMapper()
	tests := []struct {
		format, repoType string
		settings         map[string]string
		check            func(RepositoryPayload) bool
	}{
		{"docker", "proxy", nil, func(p RepositoryPayload) bool {
			return p.Docker != nil && p.Docker.ForceBasicAuth && !p.Docker.V1Enabled && p.DockerProxy.IndexType == "REGISTRY"
		}},
		{"docker", "hosted", nil, func(p RepositoryPayload) bool { return p.Docker != nil && p.DockerProxy == nil }},
		{"nuget", "proxy", nil, func(p RepositoryPayload) bool { return p.NugetProxy.QueryCacheItemMaxAge == 3600 }},
		{"nuget", "hosted", nil, func(p RepositoryPayload) bool { return p.NugetProxy == nil }},
		{"pypi", "proxy", nil, func(p RepositoryPayload) bool { return p.PypiProxy.RemoveQuarantined }},
		{"yum", "hosted", nil, func(p RepositoryPayload) bool { return p.Yum != nil && p.Yum.RepodataDepth == 0 }},
		{"apt", "hosted", nil, func(p RepositoryPayload) bool { return p.Apt.Distribution == "bionic" && p.AptSigning != nil }},
		{"apt", "hosted", map[string]string{"distribution": "jammy"}, func(p RepositoryPayload) bool { return p.Apt.Distribution == "jammy" }},
		{"maven2", "hosted", map[string]string{"versionPolicy": "SNAPSHOT"}, func(p RepositoryPayload) bool {
			return p.Maven.VersionPolicy == "SNAPSHOT" && p.Maven.LayoutPolicy == "STRICT"
		}},
		{"raw", "hosted", nil, func(p RepositoryPayload) bool { return p.Maven == nil && p.NPM == nil && p.Docker == nil }},
	}
	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.repoType, func(t *testing.T) {
			legacyType := tt.repoType
			d, err := m.MapRepository(models.LegacyRepository{
				Name: "r", RepoType: legacyType, Format: tt.format, RemoteURL: "https://remote", Settings: tt.settings,
			})
			if err != nil {
				t.Fatal(err)
			}
			if !tt.check(d.Payload.(RepositoryPayload)) {
				t.Errorf("unexpected payload %+v", d.Payload)
			}
		})
	}
}

func TestRepositoryPayloadJSONOmitsUnusedBlocks(t *testing.T) {
	d, err := newTestMapper().MapRepository(models.LegacyRepository{Name: "h", RepoType: "hosted", Format: "raw", Exposed: true})
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(d.Payload)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"proxy", "negativeCache", "group", "maven"} {
		if _, ok := got[key]; ok {
			t.Errorf("unexpected %q block in %s", key, b)
		}
	}
	storage := got["storage"].(map[string]any)
	if storage["blobStoreName"] != "default" || storage["strictContentTypeValidation"] != true {
		t.Errorf("storage = %v", storage)
	}
}

func TestSupportedFormats(t *testing.T) {
	want := []string{"apt", "conan", "conda", "docker", "gitlfs", "go", "helm", "maven2", "npm", "nuget", "p2", "pypi", "r", "raw", "rubygems", "yum"}
	if got := SupportedFormats(); !reflect.DeepEqual(got, want) {
		t.Errorf("SupportedFormats() = %v", got)
	}
	if spec, ok := LookupFormat(" Maven2 "); !ok || spec.Name != "maven2" {
		t.Errorf("LookupFormat case-insensitive failed: %+v %v", spec, ok)
	}
	if _, ok := LookupFormat("maven1"); ok {
		t.Error("maven1 must be unsupported")
	}
}

func TestMapRole(t *testing.T) {
	m := newTestMapper()
	d, err := m.MapRole(models.LegacyRole{ID: "dev", Name: "Developers", PrivilegeIDs: []string{"p1"}})
	if err != nil {
		t.Fatal(err)
	}
	p := d.Payload.(RolePayload)
	if p.Description != "Developers" || p.Roles == nil || len(p.Roles) != 0 || p.Privileges[0] != "p1" {
		t.Errorf("payload = %+v", p)
	}
	if d.Path != PathRoles {
		t.Errorf("path = %s", d.Path)
	}

	m.RejectRoles([]string{"dev"})
	_, err = m.MapRole(models.LegacyRole{ID: "dev"})
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for cyclic role, got %v", err)
	}
}

func TestMapUser(t *testing.T) {
	d, err := newTestMapper().MapUser(models.LegacyUser{
		UserID: "jdoe", FirstName: "J", LastName: "Doe", Email: "j@example.com", Status: "ENABLED", RoleIDs: []string{"dev"},
	})
	if err != nil {
		t.Fatal(err)
	}
	p := d.Payload.(UserPayload)
	if p.Password != "changeme123" || p.Status != "active" || p.EmailAddress != "j@example.com" {
		t.Errorf("payload = %+v", p)
	}

	_, err = newTestMapper().MapUser(models.LegacyUser{ID: "1"})
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]string{
		"active": "active", "Enabled": "active", "DISABLED": "disabled",
		"locked": "locked", "expired": "disabled", "": "disabled", "change_password": "disabled",
	}
	for in, want := range tests {
		if got := NormalizeStatus(in); got != want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeRepoType(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"hosted", "hosted", true},
		{"Proxy", "proxy", true},
		{"virtual", "group", true},
		{"group", "", false},
		{"shadow", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeRepoType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeRepoType(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestMapDispatch(t *testing.T) {
	m := newTestMapper()
	rows := []models.Row{
		models.LegacyPrivilege{Name: "p", Type: "target"},
		models.LegacyRepository{Name: "r", RepoType: "hosted", Format: "raw"},
		models.LegacyRole{ID: "role"},
		models.LegacyUser{UserID: "u"},
	}
	for _, row := range rows {
		d, err := m.Map(row)
		if err != nil {
			t.Fatalf("%T: %v", row, err)
		}
		if d.Identifier != row.Identifier() {
			t.Errorf("%T: identifier = %q, want %q", row, d.Identifier, row.Identifier())
		}
	}

	_, err := m.Map(nil)
	var vErr *models.ValidationError
	if err == nil || errors.As(err, &vErr) {
		t.Errorf("nil row must be an unclassifiable error, got %v", err)
	}
}

func TestDeletePath(t *testing.T) {
	tests := []struct {
		id   models.Identifier
		want string
	}{
		{models.Identifier{Kind: models.KindUser, ID: "jdoe"}, "/v1/security/users/jdoe"},
		{models.Identifier{Kind: models.KindRole, ID: "nx admin"}, "/v1/security/roles/nx%20admin"},
		{models.Identifier{Kind: models.KindRepository, ID: "central", Format: "maven2"}, "/v1/repositories/central"},
		{models.Identifier{Kind: models.KindPrivilege, ID: "repo-read"}, "/v1/security/privileges/repo-read"},
	}
	for _, tt := range tests {
		got, err := DeletePath(tt.id)
		if err != nil || got != tt.want {
			t.Errorf("DeletePath(%+v) = %q, %v", tt.id, got, err)
		}
	}
	if _, err := DeletePath(models.Identifier{Kind: models.KindUser}); err == nil {
		t.Error("expected error for empty id")
	}
}
