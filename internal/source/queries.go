package source

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

const (
	tablePrivileges          = "migration_nexus2_privileges"
	tablePrivilegeMethods    = "migration_nexus2_privilege_methods"
	tablePrivilegeRepository = "migration_nexus2_privilege_repository"
	tableRepositories        = "migration_nexus2_repositories"
	tableGroupMembers        = "migration_nexus2_repository_group_members"
	tableRepositoryConfig    = "migration_nexus2_repository_config"
	tableRoles               = "migration_nexus2_roles"
	tableRoleMappings        = "migration_nexus2_role_mappings"
	tableRolePrivileges      = "migration_nexus2_role_privileges"
	tableUsers               = "migration_nexus2_users"
	tableUserRoles           = "migration_nexus2_user_roles"
	tableUserSettings        = "migration_nexus2_user_settings"
)

// requiredColumns are the base-table columns the export must provide.
var requiredColumns = map[string][]string{
	tablePrivileges: {
		"uuid", "id", "resourceuri", "name", "description", "type",
		"usermanaged", "dateadded", "dateupdated", "properties_checksum", "properties",
	},
	tableRepositories: {
		"uuid", "id", "name", "type", "format", "exposed", "repotype",
		"contentresourceuri", "writepolicy", "notfoundcachett",
	},
	tableRoles: {
		"uuid", "id", "name", "description", "sessiontimeout",
		"roles", "privileges", "dateadded", "dateupdated", "usermanaged",
	},
	tableUsers: {
		"uuid", "id", "userid", "firstname", "lastname", "email", "status", "roles",
	},
}

// backupTables hold the identifiers of a previous migration for rollback.
var backupTables = map[models.Kind]string{
	models.KindUser:       tableUsers + "_backup",
	models.KindRole:       tableRoles + "_backup",
	models.KindRepository: tableRepositories + "_backup",
	models.KindPrivilege:  tablePrivileges + "_backup",
}

func qualify(schema, table string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

// fetchQueries builds the per-kind SELECTs. Each one-to-many association is
// collapsed with string_agg and split again by the scanner.
func fetchQueries(schema string) map[models.Kind]string {
	t := func(name string) string { return qualify(schema, name) }
	return map[models.Kind]string{
		models.KindPrivilege: fmt.Sprintf(`
SELECT p.id::text AS id,
       COALESCE(p.uuid::text, '') AS uuid,
       COALESCE(p.name, '') AS name,
       p.description AS description,
       COALESCE(p.type, '') AS type,
       p.resourceuri AS resource_uri,
       p.properties AS properties,
       string_agg(DISTINCT pm.method, ',') AS methods,
       string_agg(DISTINCT pr.repository_id::text, ',') AS repository_targets
FROM %s p
LEFT JOIN %s pm ON p.id = pm.privilege_id
LEFT JOIN %s pr ON p.id = pr.privilege_id
GROUP BY p.id, p.uuid, p.name, p.description, p.type, p.resourceuri, p.properties
ORDER BY p.id`, t(tablePrivileges), t(tablePrivilegeMethods), t(tablePrivilegeRepository)),

		models.KindRepository: fmt.Sprintf(`
SELECT r.id::text AS id,
       COALESCE(r.uuid::text, '') AS uuid,
       COALESCE(r.name, '') AS name,
       COALESCE(r.repotype, '') AS repo_type,
       COALESCE(r.format, '') AS format,
       r.exposed::text AS exposed,
       r.writepolicy AS write_policy,
       r.contentresourceuri AS remote_url,
       r.notfoundcachett::text AS not_found_cache_ttl,
       string_agg(DISTINCT g.member_id::text, ',' ORDER BY g.member_id::text) AS group_members,
       string_agg(DISTINCT rc.key || '=' || rc.value, ',') AS settings
FROM %s r
LEFT JOIN %s g ON r.id = g.group_id
LEFT JOIN %s rc ON r.id = rc.repository_id
GROUP BY r.id, r.uuid, r.name, r.repotype, r.format, r.exposed,
         r.writepolicy, r.contentresourceuri, r.notfoundcachett
ORDER BY r.id`, t(tableRepositories), t(tableGroupMembers), t(tableRepositoryConfig)),

		models.KindRole: fmt.Sprintf(`
SELECT r.id::text AS id,
       COALESCE(r.uuid::text, '') AS uuid,
       COALESCE(r.name, '') AS name,
       r.description AS description,
       string_agg(DISTINCT rm.child_role_id::text, ',') AS child_roles,
       string_agg(DISTINCT rp.privilege_id::text, ',') AS privilege_ids
FROM %s r
LEFT JOIN %s rm ON r.id = rm.parent_role_id
LEFT JOIN %s rp ON r.id = rp.role_id
GROUP BY r.id, r.uuid, r.name, r.description
ORDER BY r.id`, t(tableRoles), t(tableRoleMappings), t(tableRolePrivileges)),

		models.KindUser: fmt.Sprintf(`
SELECT u.id::text AS id,
       COALESCE(u.uuid::text, '') AS uuid,
       COALESCE(u.userid, '') AS userid,
       u.firstname AS firstname,
       u.lastname AS lastname,
       u.email AS email,
       u.status AS status,
       string_agg(DISTINCT ur.role_id::text, ',') AS role_ids,
       string_agg(DISTINCT us.setting_key || '=' || us.setting_value, ',') AS settings
FROM %s u
LEFT JOIN %s ur ON u.id = ur.user_id
LEFT JOIN %s us ON u.id = us.user_id
GROUP BY u.id, u.uuid, u.userid, u.firstname, u.lastname, u.email, u.status
ORDER BY u.id`, t(tableUsers), t(tableUserRoles), t(tableUserSettings)),
	}
}

func countQuery(schema string, kind models.Kind) string {
	table := map[models.Kind]string{
		models.KindPrivilege:  tablePrivileges,
		models.KindRepository: tableRepositories,
		models.KindRole:       tableRoles,
		models.KindUser:       tableUsers,
	}[kind]
	return "SELECT COUNT(*) FROM " + qualify(schema, table)
}

func backupQuery(schema string, kind models.Kind) string {
	table := qualify(schema, backupTables[kind])
	switch kind {
	case models.KindUser:
		return "SELECT userid::text AS id, '' AS format FROM " + table
	case models.KindRole:
		return "SELECT id::text AS id, '' AS format FROM " + table
	case models.KindRepository:
		return "SELECT name AS id, COALESCE(format, '') AS format FROM " + table
	default:
		return "SELECT name AS id, '' AS format FROM " + table
	}
}
