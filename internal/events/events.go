// Package events carries typed change notifications out of the service
// layer, so clients can refetch exactly the entities that moved.
package events

import (
	"context"
	"log/slog"
)

type Entity string

const (
	EntityJob         Entity = "job"
	EntityApplication Entity = "application"
)

type Action string

const (
	ActionCreated       Action = "created"
	ActionUpdated       Action = "updated"
	ActionDeleted       Action = "deleted"
	ActionStatusChanged Action = "status_changed"
)

type Change struct {
	Entity Entity `json:"entity"`
	ID     string `json:"id"`
	Action Action `json:"action"`
}

type Publisher interface {
	Publish(ctx context.Context, changes ...Change) error
}

// LogPublisher writes changes to the structured log. It is the default
// publisher when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, changes ...Change) error {
	for _, change := range changes {
		p.logger.Info("entity changed", "entity", change.Entity, "id", change.ID, "action", change.Action)
	}
	return nil
}
