package mapping

import (
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// Options are the configured defaults the rules fall back on.
type Options struct {
	BlobStore       string
	CacheTTL        int
	DefaultPassword string
	Log             logrus.FieldLogger
}

// Mapper applies the per-kind rules. It is not safe for concurrent use
// while RejectRoles is being called.
type Mapper struct {
	opts        Options
	log         logrus.FieldLogger
	cyclicRoles map[string]bool
}

func New(opts Options) *Mapper {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Mapper{opts: opts, log: log}
}

// RejectRoles marks role ids that must fail mapping, e.g. the members of a
// child-role cycle found by FindRoleCycles.
func (m *Mapper) RejectRoles(ids []string) {
	m.cyclicRoles = make(map[string]bool, len(ids))
	for _, id := range ids {
		m.cyclicRoles[id] = true
	}
}

// Map dispatches on the row's kind. A non-nil error is either a
// *models.ValidationError (row-level) or a row the mapper cannot classify.
func (m *Mapper) Map(row models.Row) (Decision, error) {
	switch r := row.(type) {
	case models.LegacyPrivilege:
		return m.MapPrivilege(r)
	case models.LegacyRepository:
		return m.MapRepository(r)
	case models.LegacyRole:
		return m.MapRole(r)
	case models.LegacyUser:
		return m.MapUser(r)
	case nil:
		return Decision{}, errors.New("nil row")
	}
	return Decision{}, errors.Errorf("unclassifiable row type %T", row)
}

// MapPrivilege derives the action set from the legacy privilege type.
func (m *Mapper) MapPrivilege(p models.LegacyPrivilege) (Decision, error) {
	if p.Name == "" {
		return Decision{}, &models.ValidationError{Kind: models.KindPrivilege, Identifier: p.ID, Reason: "privilege name cannot be empty"}
	}

	var actions []string
	switch strings.ToLower(p.Type) {
	case "target":
		actions = m.targetActions(p)
	case "application":
		actions = []string{"READ"}
		// The stored method is submitted as is.
		if method := strings.TrimSpace(p.Properties["method"]); method != "" {
			actions = []string{method}
		}
	case "method":
		actions = upperSet(p.Methods)
		if len(actions) == 0 {
			actions = []string{"READ"}
		}
	default:
		return Skip(p.Name, "unsupported privilege type: "+p.Type), nil
	}

	domain := p.ResourceURI
	if domain == "" {
		domain = "*"
	}
	return Create(p.Name, privilegeCreatePath, PrivilegePayload{
		Name:        p.Name,
		Description: orDefault(p.Description, p.Name),
		Actions:     actions,
		Domain:      domain,
		Type:        "application",
	}), nil
}

func (m *Mapper) targetActions(p models.LegacyPrivilege) []string {
	actions := []string{"READ"}
	add := func(a string) {
		for _, have := range actions {
			if have == a {
				return
			}
		}
		actions = append(actions, a)
	}
	for _, method := range p.Methods {
		switch strings.ToUpper(method) {
		case "READ":
		case "CREATE", "UPDATE":
			add("EDIT")
		case "DELETE":
			add("DELETE")
		default:
			m.log.WithFields(logrus.Fields{"kind": models.KindPrivilege, "id": p.Name}).
				Warnf("ignoring unknown method %q", method)
		}
	}
	return actions
}

// MapRepository builds a hosted, proxy or group repository payload.
func (m *Mapper) MapRepository(r models.LegacyRepository) (Decision, error) {
	if r.Name == "" {
		return Decision{}, &models.ValidationError{Kind: models.KindRepository, Identifier: r.ID, Reason: "repository name cannot be empty"}
	}
	repoType, ok := NormalizeRepoType(r.RepoType)
	if !ok {
		return Skip(r.Name, "unsupported repository type: "+r.RepoType), nil
	}
	format, ok := LookupFormat(r.Format)
	if !ok {
		return Skip(r.Name, "unsupported format: "+r.Format), nil
	}

	p := RepositoryPayload{
		Name:   r.Name,
		Online: r.Exposed,
		Storage: Storage{
			BlobStoreName:               m.opts.BlobStore,
			StrictContentTypeValidation: true,
		},
	}
	switch repoType {
	case RepoHosted:
		p.Storage.WritePolicy = MapWritePolicy(r.WritePolicy)
	case RepoProxy:
		if r.RemoteURL == "" {
			return Decision{}, &models.ValidationError{Kind: models.KindRepository, Identifier: r.Name, Reason: "proxy repository has no remote URL"}
		}
		ttl := m.opts.CacheTTL
		if r.NotFoundCacheTTL != nil && *r.NotFoundCacheTTL > 0 {
			ttl = *r.NotFoundCacheTTL
		}
		p.Proxy = &ProxySettings{RemoteURL: r.RemoteURL, ContentMaxAge: m.opts.CacheTTL, MetadataMaxAge: m.opts.CacheTTL}
		p.NegativeCache = &NegativeCache{Enabled: true, TimeToLive: ttl}
		p.HTTPClient = &HTTPClient{Blocked: false, AutoBlock: true}
	case RepoGroup:
		if len(r.GroupMembers) == 0 {
			return Skip(r.Name, "group has no members"), nil
		}
		p.Group = &GroupSettings{MemberNames: r.GroupMembers}
	}
	format.apply(&p, repoType, r.Settings)

	d := Create(r.Name, repositoryCreatePath(format.Name, repoType), p)
	d.Format = format.Name
	return d, nil
}

// MapRole passes the role through, rejecting members of a child-role cycle.
func (m *Mapper) MapRole(r models.LegacyRole) (Decision, error) {
	if r.ID == "" {
		return Decision{}, &models.ValidationError{Kind: models.KindRole, Identifier: r.Name, Reason: "role id cannot be empty"}
	}
	if m.cyclicRoles[r.ID] {
		return Decision{}, &models.ValidationError{Kind: models.KindRole, Identifier: r.ID, Reason: "role is part of a child-role cycle"}
	}
	name := orDefault(r.Name, r.ID)
	return Create(r.ID, PathRoles, RolePayload{
		ID:          r.ID,
		Name:        name,
		Description: orDefault(r.Description, name),
		Privileges:  nonNil(r.PrivilegeIDs),
		Roles:       nonNil(r.ChildRoleIDs),
	}), nil
}

// MapUser normalizes the status and always sends the configured password.
func (m *Mapper) MapUser(u models.LegacyUser) (Decision, error) {
	if u.UserID == "" {
		return Decision{}, &models.ValidationError{Kind: models.KindUser, Identifier: u.ID, Reason: "user id cannot be empty"}
	}
	return Create(u.UserID, PathUsers, UserPayload{
		UserID:       u.UserID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		EmailAddress: u.Email,
		Password:     m.opts.DefaultPassword,
		Status:       NormalizeStatus(u.Status),
		Roles:        nonNil(u.RoleIDs),
	}), nil
}

// NormalizeStatus maps a legacy user status onto active, disabled or locked.
func NormalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "enabled":
		return "active"
	case "locked":
		return "locked"
	default:
		return "disabled"
	}
}

// NormalizeRepoType maps hosted, proxy and virtual onto Nexus3 types.
func NormalizeRepoType(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hosted":
		return RepoHosted, true
	case "proxy":
		return RepoProxy, true
	case "virtual":
		return RepoGroup, true
	}
	return "", false
}

// MapWritePolicy translates a hosted repository's write policy.
func MapWritePolicy(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ALLOW_WRITE":
		return "ALLOW"
	case "ALLOW_WRITE_ONCE":
		return "ALLOW_ONCE"
	default:
		return "DENY"
	}
}

func upperSet(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
