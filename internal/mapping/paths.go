package mapping

import (
	"net/url"

	"github.com/go-faster/errors"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// Endpoints are relative to the REST prefix (normally /service/rest).
const (
	PathStatus     = "/v1/status"
	PathPrivileges = "/v1/security/privileges"
	PathRoles      = "/v1/security/roles"
	PathUsers      = "/v1/security/users"
	PathRepos      = "/v1/repositories"
)

// privilegeCreatePath is the typed create endpoint; every migrated privilege
// is an application privilege.
const privilegeCreatePath = PathPrivileges + "/application"

func repositoryCreatePath(format, repoType string) string {
	return PathRepos + "/" + url.PathEscape(format) + "/" + url.PathEscape(repoType)
}

// DeletePath returns the endpoint that removes a previously created entity.
func DeletePath(id models.Identifier) (string, error) {
	if id.ID == "" {
		return "", errors.Errorf("empty %s identifier", id.Kind)
	}
	esc := url.PathEscape(id.ID)
	switch id.Kind {
	case models.KindUser:
		return PathUsers + "/" + esc, nil
	case models.KindRole:
		return PathRoles + "/" + esc, nil
	case models.KindRepository:
		return PathRepos + "/" + esc, nil
	case models.KindPrivilege:
		return PathPrivileges + "/" + esc, nil
	}
	return "", errors.Errorf("unknown kind %q", id.Kind)
}
