package models

// Row is one denormalized source record, already split into its associations.
type Row interface {
	Kind() Kind
	// Identifier is the value the target system knows the entity by.
	Identifier() string
}

// LegacyPrivilege is a Nexus2 privilege joined with its methods and repository targets.
type LegacyPrivilege struct {
	ID                string
	UUID              string
	Name              string
	Description       string
	Type              string // target, application or method
	ResourceURI       string
	Properties        map[string]string
	Methods           []string
	RepositoryTargets []string
}

func (p LegacyPrivilege) Kind() Kind         { return KindPrivilege }
func (p LegacyPrivilege) Identifier() string { return p.Name }

// LegacyRepository is a Nexus2 repository joined with its group members and settings.
type LegacyRepository struct {
	ID               string
	UUID             string
	Name             string
	RepoType         string // hosted, proxy or virtual
	Format           string
	Exposed          bool
	WritePolicy      string
	RemoteURL        string
	NotFoundCacheTTL *int // nil when the source column is NULL
	GroupMembers     []string
	Settings         map[string]string
}

func (r LegacyRepository) Kind() Kind         { return KindRepository }
func (r LegacyRepository) Identifier() string { return r.Name }

// LegacyRole is a Nexus2 role with its contained roles and privileges.
type LegacyRole struct {
	ID           string
	UUID         string
	Name         string
	Description  string
	ChildRoleIDs []string
	PrivilegeIDs []string
}

func (r LegacyRole) Kind() Kind         { return KindRole }
func (r LegacyRole) Identifier() string { return r.ID }

// LegacyUser is a Nexus2 user with its role assignments and settings.
type LegacyUser struct {
	ID        string
	UUID      string
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Status    string
	RoleIDs   []string
	Settings  map[string]string
}

func (u LegacyUser) Kind() Kind         { return KindUser }
func (u LegacyUser) Identifier() string { return u.UserID }
