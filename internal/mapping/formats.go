package mapping

import (
	"sort"
	"strconv"
	"strings"
)

// Nexus3 repository types.
const (
	RepoHosted = "hosted"
	RepoProxy  = "proxy"
	RepoGroup  = "group"
)

// extrasFunc adds the format-specific blocks to a payload. Row settings
// override the defaults where a key is recognised.
type extrasFunc func(p *RepositoryPayload, repoType string, settings map[string]string)

// FormatSpec is one entry of the format table.
type FormatSpec struct {
	Name      string
	Supported bool
	extras    extrasFunc
}

// formats is the single authority on which formats migrate and which
// extra blocks they carry. Unlisted formats are unsupported.
var formats = map[string]FormatSpec{
	"maven2": {Supported: true, extras: func(p *RepositoryPayload, _ string, s map[string]string) {
		p.Maven = &MavenAttributes{
			VersionPolicy: setting(s, "versionPolicy", "RELEASE"),
			LayoutPolicy:  setting(s, "layoutPolicy", "STRICT"),
		}
	}},
	"npm": {Supported: true, extras: func(p *RepositoryPayload, _ string, s map[string]string) {
		p.NPM = &NPMAttributes{RemoveQuarantined: settingBool(s, "removeQuarantined", true)}
	}},
	"docker": {Supported: true, extras: func(p *RepositoryPayload, repoType string, s map[string]string) {
		p.Docker = &DockerAttributes{
			V1Enabled:      settingBool(s, "v1Enabled", false),
			ForceBasicAuth: settingBool(s, "forceBasicAuth", true),
		}
		if repoType == RepoProxy {
			p.DockerProxy = &DockerProxyAttributes{IndexType: setting(s, "indexType", "REGISTRY")}
		}
	}},
	"nuget": {Supported: true, extras: func(p *RepositoryPayload, repoType string, s map[string]string) {
		if repoType == RepoProxy {
			p.NugetProxy = &NugetProxyAttributes{QueryCacheItemMaxAge: settingInt(s, "queryCacheItemMaxAge", 3600)}
		}
	}},
	"pypi": {Supported: true, extras: func(p *RepositoryPayload, repoType string, s map[string]string) {
		if repoType == RepoProxy {
			p.PypiProxy = &PypiProxyAttributes{RemoveQuarantined: settingBool(s, "removeQuarantined", true)}
		}
	}},
	"yum": {Supported: true, extras: func(p *RepositoryPayload, repoType string, s map[string]string) {
		if repoType == RepoHosted {
			p.Yum = &YumAttributes{RepodataDepth: settingInt(s, "repodataDepth", 0)}
		}
	}},
	"apt": {Supported: true, extras: func(p *RepositoryPayload, repoType string, s map[string]string) {
		if repoType == RepoHosted {
			p.Apt = &AptAttributes{Distribution: setting(s, "distribution", "bionic")}
			p.AptSigning = &AptSigningAttributes{
				Keypair:    setting(s, "keypair", ""),
				Passphrase: setting(s, "passphrase", ""),
			}
		}
	}},
	"raw":      {Supported: true},
	"rubygems": {Supported: true},
	"helm":     {Supported: true},
	"conan":    {Supported: true},
	"p2":       {Supported: true},
	"r":        {Supported: true},
	"conda":    {Supported: true},
	"gitlfs":   {Supported: true},
	"go":       {Supported: true},
}

func init() {
	for name, spec := range formats {
		spec.Name = name
		formats[name] = spec
	}
}

// LookupFormat finds a format case-insensitively.
func LookupFormat(format string) (FormatSpec, bool) {
	spec, ok := formats[strings.ToLower(strings.TrimSpace(format))]
	if !ok || !spec.Supported {
		return FormatSpec{}, false
	}
	return spec, true
}

// SupportedFormats lists the migratable formats, sorted.
func SupportedFormats() []string {
	out := make([]string, 0, len(formats))
	for name, spec := range formats {
		if spec.Supported {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (f FormatSpec) apply(p *RepositoryPayload, repoType string, settings map[string]string) {
	if f.extras != nil {
		f.extras(p, repoType, settings)
	}
}

func setting(s map[string]string, key, def string) string {
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return def
}

func settingBool(s map[string]string, key string, def bool) bool {
	v, ok := s[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func settingInt(s map[string]string, key string, def int) int {
	v, ok := s[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return def
	}
	return n
}
