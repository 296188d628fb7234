package models

import "testing"

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name   string
		conn   Connection
		expect string
	}{
		{"default prefix", Connection{URL: "http://nexus.lab.local:8081", APIPrefix: "/service/rest"}, "http://nexus.lab.local:8081/service/rest"},
		{"trailing slashes", Connection{URL: "https://nexus.example.com/", APIPrefix: "/service/rest/"}, "https://nexus.example.com/service/rest"},
		{"no prefix", Connection{URL: "http://localhost:8081"}, "http://localhost:8081"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.conn.BaseURL()
			if got != tc.expect {
				t.Errorf("BaseURL() = %q, want %q", got, tc.expect)
			}
		})
	}
}

func TestMaskedPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		expect   string
	}{
		{"non-empty", "admin123", "••••••••"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Connection{Password: tc.password}
			got := c.MaskedPassword()
			if got != tc.expect {
				t.Errorf("MaskedPassword() = %q, want %q", got, tc.expect)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range MigrationOrder {
		got, err := ParseKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = (%q, %v), want (%q, nil)", k, got, err, k)
		}
	}
	_, err := ParseKind("groups")
	if err == nil || err.Error() != `unknown entity kind "groups"` {
		t.Errorf("ParseKind(groups) error = %v", err)
	}
}

func TestRollbackOrderIsReverseOfMigrationOrder(t *testing.T) {
	if len(RollbackOrder) != len(MigrationOrder) {
		t.Fatalf("len(RollbackOrder) = %d, want %d", len(RollbackOrder), len(MigrationOrder))
	}
	for i, k := range RollbackOrder {
		if want := MigrationOrder[len(MigrationOrder)-1-i]; k != want {
			t.Errorf("RollbackOrder[%d] = %q, want %q", i, k, want)
		}
	}
}

func TestRollbackPlanLen(t *testing.T) {
	plan := RollbackPlan{
		KindUser: {{Kind: KindUser, ID: "a"}, {Kind: KindUser, ID: "b"}},
		KindRole: {{Kind: KindRole, ID: "r"}},
	}
	if plan.Len() != 3 {
		t.Errorf("Len() = %d, want 3", plan.Len())
	}
}
