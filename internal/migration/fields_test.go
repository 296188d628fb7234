package migration

import (
	"testing"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

func TestStringField(t *testing.T) {
	obj := map[string]any{
		"name":  "hello",
		"count": 42,
		"empty": nil,
	}
	if got := stringField(obj, "name"); got != "hello" {
		t.Errorf("stringField(name) = %q, want %q", got, "hello")
	}
	if got := stringField(obj, "count"); got != "" {
		t.Errorf("stringField(count) = %q, want empty", got)
	}
	if got := stringField(obj, "empty"); got != "" {
		t.Errorf("stringField(empty) = %q, want empty", got)
	}
	if got := stringField(obj, "missing"); got != "" {
		t.Errorf("stringField(missing) = %q, want empty", got)
	}
}

func TestResponseIdentifier(t *testing.T) {
	tests := []struct {
		kind models.Kind
		body any
		want string
	}{
		{models.KindUser, map[string]any{"userId": "jdoe"}, "jdoe"},
		{models.KindRole, map[string]any{"id": "dev", "name": "Developers"}, "dev"},
		{models.KindRepository, map[string]any{"name": "central"}, "central"},
		{models.KindPrivilege, nil, ""},
		{models.KindUser, []any{"x"}, ""},
	}
	for _, tt := range tests {
		if got := responseIdentifier(tt.kind, tt.body); got != tt.want {
			t.Errorf("responseIdentifier(%s, %v) = %q, want %q", tt.kind, tt.body, got, tt.want)
		}
	}
}
