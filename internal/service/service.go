package service

import (
	"context"
	"time"

	"covidstats/internal/events"
	"covidstats/internal/storage"

	"go.uber.org/zap"
)

// Service orchestrates application logic between HTTP layer and storage.
type Service struct {
	store     Store
	publisher events.Publisher
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// Store defines minimal storage contract used by the service.
type Store interface {
	Ping(ctx context.Context) error
	ListStates(ctx context.Context) ([]storage.State, error)
	GetState(ctx context.Context, stateID int64) (*storage.State, error)
	StateStats(ctx context.Context, stateID int64) (*storage.StateStats, error)
	CreateDistrict(ctx context.Context, payload storage.DistrictPayload) (int64, error)
	GetDistrict(ctx context.Context, districtID int64) (*storage.District, error)
	UpdateDistrict(ctx context.Context, districtID int64, payload storage.DistrictPayload) error
	DeleteDistrict(ctx context.Context, districtID int64) (int64, error)
	DistrictStateName(ctx context.Context, districtID int64) (string, error)
}

// New builds a Service. A nil publisher disables change events.
func New(store Store, publisher events.Publisher, logger *zap.SugaredLogger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: store, publisher: publisher, logger: logger, now: time.Now}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) ListStates(ctx context.Context) ([]storage.State, error) {
	return s.store.ListStates(ctx)
}

func (s *Service) GetState(ctx context.Context, stateID int64) (*storage.State, error) {
	return s.store.GetState(ctx, stateID)
}

func (s *Service) StateStats(ctx context.Context, stateID int64) (*storage.StateStats, error) {
	return s.store.StateStats(ctx, stateID)
}

func (s *Service) CreateDistrict(ctx context.Context, payload storage.DistrictPayload) (int64, error) {
	id, err := s.store.CreateDistrict(ctx, payload)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, events.DistrictCreated, id, payload.StateID)
	return id, nil
}

func (s *Service) GetDistrict(ctx context.Context, districtID int64) (*storage.District, error) {
	return s.store.GetDistrict(ctx, districtID)
}

func (s *Service) UpdateDistrict(ctx context.Context, districtID int64, payload storage.DistrictPayload) error {
	if err := s.store.UpdateDistrict(ctx, districtID, payload); err != nil {
		return err
	}
	s.publish(ctx, events.DistrictUpdated, districtID, payload.StateID)
	return nil
}

func (s *Service) DeleteDistrict(ctx context.Context, districtID int64) error {
	stateID, err := s.store.DeleteDistrict(ctx, districtID)
	if err != nil {
		return err
	}
	s.publish(ctx, events.DistrictDeleted, districtID, stateID)
	return nil
}

func (s *Service) DistrictStateName(ctx context.Context, districtID int64) (string, error) {
	return s.store.DistrictStateName(ctx, districtID)
}

// publish never fails the caller: the row change is already durable.
func (s *Service) publish(ctx context.Context, kind string, districtID, stateID int64) {
	ev := events.DistrictEvent{Type: kind, DistrictID: districtID, StateID: stateID, OccurredAt: s.now().UTC()}
	if err := s.publisher.PublishDistrictEvent(ctx, ev); err != nil {
		s.logger.Warnw("publish district event", "type", kind, "district_id", districtID, "err", err)
	}
}
