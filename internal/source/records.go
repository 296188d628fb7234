package source

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

type privilegeRecord struct {
	ID                string         `db:"id"`
	UUID              string         `db:"uuid"`
	Name              string         `db:"name"`
	Description       sql.NullString `db:"description"`
	Type              string         `db:"type"`
	ResourceURI       sql.NullString `db:"resource_uri"`
	Properties        sql.NullString `db:"properties"`
	Methods           sql.NullString `db:"methods"`
	RepositoryTargets sql.NullString `db:"repository_targets"`
}

func (r privilegeRecord) toModel() models.LegacyPrivilege {
	return models.LegacyPrivilege{
		ID:                r.ID,
		UUID:              r.UUID,
		Name:              strings.TrimSpace(r.Name),
		Description:       strings.TrimSpace(r.Description.String),
		Type:              strings.TrimSpace(r.Type),
		ResourceURI:       strings.TrimSpace(r.ResourceURI.String),
		Properties:        SplitPairs(r.Properties.String),
		Methods:           SplitList(r.Methods.String),
		RepositoryTargets: SplitList(r.RepositoryTargets.String),
	}
}

type repositoryRecord struct {
	ID               string         `db:"id"`
	UUID             string         `db:"uuid"`
	Name             string         `db:"name"`
	RepoType         string         `db:"repo_type"`
	Format           string         `db:"format"`
	Exposed          sql.NullString `db:"exposed"`
	WritePolicy      sql.NullString `db:"write_policy"`
	RemoteURL        sql.NullString `db:"remote_url"`
	NotFoundCacheTTL sql.NullString `db:"not_found_cache_ttl"`
	GroupMembers     sql.NullString `db:"group_members"`
	Settings         sql.NullString `db:"settings"`
}

func (r repositoryRecord) toModel() models.LegacyRepository {
	return models.LegacyRepository{
		ID:               r.ID,
		UUID:             r.UUID,
		Name:             strings.TrimSpace(r.Name),
		RepoType:         strings.TrimSpace(r.RepoType),
		Format:           strings.TrimSpace(r.Format),
		Exposed:          parseBool(r.Exposed.String),
		WritePolicy:      strings.TrimSpace(r.WritePolicy.String),
		RemoteURL:        strings.TrimSpace(r.RemoteURL.String),
		NotFoundCacheTTL: parseTTL(r.NotFoundCacheTTL),
		GroupMembers:     SplitList(r.GroupMembers.String),
		Settings:         SplitPairs(r.Settings.String),
	}
}

// parseTTL yields nil for NULL, unparsable or non-positive values so the
// mapper falls back to the configured default.
func parseTTL(v sql.NullString) *int {
	if !v.Valid {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.String))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

type roleRecord struct {
	ID           string         `db:"id"`
	UUID         string         `db:"uuid"`
	Name         string         `db:"name"`
	Description  sql.NullString `db:"description"`
	ChildRoles   sql.NullString `db:"child_roles"`
	PrivilegeIDs sql.NullString `db:"privilege_ids"`
}

func (r roleRecord) toModel() models.LegacyRole {
	return models.LegacyRole{
		ID:           strings.TrimSpace(r.ID),
		UUID:         r.UUID,
		Name:         strings.TrimSpace(r.Name),
		Description:  strings.TrimSpace(r.Description.String),
		ChildRoleIDs: SplitList(r.ChildRoles.String),
		PrivilegeIDs: SplitList(r.PrivilegeIDs.String),
	}
}

type userRecord struct {
	ID        string         `db:"id"`
	UUID      string         `db:"uuid"`
	UserID    string         `db:"userid"`
	FirstName sql.NullString `db:"firstname"`
	LastName  sql.NullString `db:"lastname"`
	Email     sql.NullString `db:"email"`
	Status    sql.NullString `db:"status"`
	RoleIDs   sql.NullString `db:"role_ids"`
	Settings  sql.NullString `db:"settings"`
}

func (r userRecord) toModel() models.LegacyUser {
	return models.LegacyUser{
		ID:        r.ID,
		UUID:      r.UUID,
		UserID:    strings.TrimSpace(r.UserID),
		FirstName: strings.TrimSpace(r.FirstName.String),
		LastName:  strings.TrimSpace(r.LastName.String),
		Email:     strings.TrimSpace(r.Email.String),
		Status:    strings.TrimSpace(r.Status.String),
		RoleIDs:   SplitList(r.RoleIDs.String),
		Settings:  SplitPairs(r.Settings.String),
	}
}
