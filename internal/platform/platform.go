package platform

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// Target defines the operations the migration needs from a Nexus3 instance.
type Target interface {
	// Submit sends one create, delete or get and classifies the answer.
	Submit(ctx context.Context, op Operation, path string, payload any) Result

	// CheckVersion verifies connectivity and the minimum release.
	CheckVersion(ctx context.Context, min string) (string, error)
}

// Nexus bundles the client and submitter for one connection.
type Nexus struct {
	*Client
	*Submitter
}

// NewTarget creates the Target implementation for a connection.
func NewTarget(conn *models.Connection, log logrus.FieldLogger) (*Nexus, error) {
	client, err := NewClient(conn, log)
	if err != nil {
		return nil, err
	}
	return &Nexus{Client: client, Submitter: NewSubmitter(client, log)}, nil
}
