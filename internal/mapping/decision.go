// Package mapping turns legacy Nexus2 rows into Nexus3 REST payloads.
package mapping

// Action says what the runner should do with a mapped row.
type Action int

const (
	ActionCreate Action = iota + 1
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionSkip:
		return "skip"
	}
	return "unknown"
}

// Decision is the mapper's verdict for one row: either create Payload at
// Path, or skip with Reason.
type Decision struct {
	Action     Action
	Identifier string
	Path       string
	Payload    any
	// Format is set for repositories so rollback can address them later.
	Format string
	Reason string
}

// Create builds a decision to submit payload to path.
func Create(identifier, path string, payload any) Decision {
	return Decision{Action: ActionCreate, Identifier: identifier, Path: path, Payload: payload}
}

// Skip builds a decision to leave the row alone.
func Skip(identifier, reason string) Decision {
	return Decision{Action: ActionSkip, Identifier: identifier, Reason: reason}
}

func (d Decision) IsCreate() bool { return d.Action == ActionCreate }
func (d Decision) IsSkip() bool   { return d.Action == ActionSkip }
