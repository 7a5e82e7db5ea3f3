package ports

import (
	"context"

	"github.com/osool-hq/bawaba/core"
)

// EventPublisher publishes session lifecycle events to notify other
// parts of the installation (UI shells, background sync).
type EventPublisher interface {
	PublishSession(ctx context.Context, event core.SessionEvent) error
}
