package models

import "github.com/go-faster/errors"

// Kind identifies one entity type carried across by the migration.
type Kind string

const (
	KindPrivilege  Kind = "privileges"
	KindRepository Kind = "repositories"
	KindRole       Kind = "roles"
	KindUser       Kind = "users"
)

// MigrationOrder is the fixed stage order: roles reference privileges and
// users reference roles.
var MigrationOrder = []Kind{KindPrivilege, KindRepository, KindRole, KindUser}

// RollbackOrder deletes dependents before their dependencies.
var RollbackOrder = []Kind{KindUser, KindRole, KindRepository, KindPrivilege}

// Label returns the human-readable stage name ("Privileges").
func (k Kind) Label() string {
	switch k {
	case KindPrivilege:
		return "Privileges"
	case KindRepository:
		return "Repositories"
	case KindRole:
		return "Roles"
	case KindUser:
		return "Users"
	}
	return string(k)
}

// ParseKind accepts the plural stage names used on the command line and in the journal.
func ParseKind(s string) (Kind, error) {
	for _, k := range MigrationOrder {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.Errorf("unknown entity kind %q", s)
}
