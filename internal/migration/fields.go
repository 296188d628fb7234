package migration

import (
	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// identifierFields names the response field that echoes each kind's identifier.
var identifierFields = map[models.Kind]string{
	models.KindPrivilege:  "name",
	models.KindRepository: "name",
	models.KindRole:       "id",
	models.KindUser:       "userId",
}

// responseIdentifier returns the identifier a create response reports, or
// "" when the body does not carry one (Nexus often answers 201 with no body).
func responseIdentifier(kind models.Kind, body any) string {
	obj, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	return stringField(obj, identifierFields[kind])
}

// stringField safely extracts a string field, returning "" if nil.
func stringField(obj map[string]any, field string) string {
	if v, ok := obj[field].(string); ok {
		return v
	}
	return ""
}
