// Package events publishes district change notifications to a message broker.
package events

import (
	"context"
	"time"
)

const (
	DistrictCreated = "district.created"
	DistrictUpdated = "district.updated"
	DistrictDeleted = "district.deleted"
)

// DistrictEvent is emitted after a district mutation has been committed.
type DistrictEvent struct {
	Type       string    `json:"type"`
	DistrictID int64     `json:"districtId"`
	StateID    int64     `json:"stateId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	PublishDistrictEvent(ctx context.Context, ev DistrictEvent) error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishDistrictEvent(context.Context, DistrictEvent) error { return nil }
