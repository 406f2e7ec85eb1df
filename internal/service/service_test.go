package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"covidstats/internal/events"
	"covidstats/internal/storage"

	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	err     error
	id      int64
	stateID int64
}

func (f *fakeStore) Ping(context.Context) error { return f.err }

func (f *fakeStore) ListStates(context.Context) ([]storage.State, error) {
	return nil, f.err
}

func (f *fakeStore) GetState(context.Context, int64) (*storage.State, error) {
	return nil, f.err
}

func (f *fakeStore) StateStats(context.Context, int64) (*storage.StateStats, error) {
	return nil, f.err
}

func (f *fakeStore) CreateDistrict(context.Context, storage.DistrictPayload) (int64, error) {
	return f.id, f.err
}

func (f *fakeStore) GetDistrict(context.Context, int64) (*storage.District, error) {
	return nil, f.err
}

func (f *fakeStore) UpdateDistrict(context.Context, int64, storage.DistrictPayload) error {
	return f.err
}

func (f *fakeStore) DeleteDistrict(context.Context, int64) (int64, error) {
	return f.stateID, f.err
}

func (f *fakeStore) DistrictStateName(context.Context, int64) (string, error) {
	return "", f.err
}

type recordingPublisher struct {
	events []events.DistrictEvent
	err    error
}

func (p *recordingPublisher) PublishDistrictEvent(_ context.Context, ev events.DistrictEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func TestServicePropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	pub := &recordingPublisher{}
	s := New(&fakeStore{err: wantErr}, pub, nil)

	ctx := context.Background()
	if err := s.Ping(ctx); !errors.Is(err, wantErr) {
		t.Fatalf("Ping err = %v, want %v", err, wantErr)
	}
	if _, err := s.ListStates(ctx); !errors.Is(err, wantErr) {
		t.Fatalf("ListStates err = %v, want %v", err, wantErr)
	}
	if _, err := s.GetState(ctx, 1); !errors.Is(err, wantErr) {
		t.Fatalf("GetState err = %v, want %v", err, wantErr)
	}
	if _, err := s.StateStats(ctx, 1); !errors.Is(err, wantErr) {
		t.Fatalf("StateStats err = %v, want %v", err, wantErr)
	}
	if _, err := s.CreateDistrict(ctx, storage.DistrictPayload{}); !errors.Is(err, wantErr) {
		t.Fatalf("CreateDistrict err = %v, want %v", err, wantErr)
	}
	if _, err := s.GetDistrict(ctx, 1); !errors.Is(err, wantErr) {
		t.Fatalf("GetDistrict err = %v, want %v", err, wantErr)
	}
	if err := s.UpdateDistrict(ctx, 1, storage.DistrictPayload{}); !errors.Is(err, wantErr) {
		t.Fatalf("UpdateDistrict err = %v, want %v", err, wantErr)
	}
	if err := s.DeleteDistrict(ctx, 1); !errors.Is(err, wantErr) {
		t.Fatalf("DeleteDistrict err = %v, want %v", err, wantErr)
	}
	if _, err := s.DistrictStateName(ctx, 1); !errors.Is(err, wantErr) {
		t.Fatalf("DistrictStateName err = %v, want %v", err, wantErr)
	}
	if len(pub.events) != 0 {
		t.Fatalf("failed mutations must not publish, got %+v", pub.events)
	}
}

func TestServicePublishesMutations(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(&fakeStore{id: 17, stateID: 5}, pub, zaptest.NewLogger(t).Sugar())
	fixed := time.Date(2020, 10, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ctx := context.Background()
	id, err := s.CreateDistrict(ctx, storage.DistrictPayload{Name: "Alpha", StateID: 4})
	if err != nil || id != 17 {
		t.Fatalf("CreateDistrict = %d, %v", id, err)
	}
	if err := s.UpdateDistrict(ctx, 17, storage.DistrictPayload{StateID: 5}); err != nil {
		t.Fatalf("UpdateDistrict: %v", err)
	}
	if err := s.DeleteDistrict(ctx, 17); err != nil {
		t.Fatalf("DeleteDistrict: %v", err)
	}

	want := []events.DistrictEvent{
		{Type: events.DistrictCreated, DistrictID: 17, StateID: 4, OccurredAt: fixed},
		{Type: events.DistrictUpdated, DistrictID: 17, StateID: 5, OccurredAt: fixed},
		{Type: events.DistrictDeleted, DistrictID: 17, StateID: 5, OccurredAt: fixed},
	}
	if len(pub.events) != len(want) {
		t.Fatalf("events = %+v", pub.events)
	}
	for i := range want {
		if pub.events[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, pub.events[i], want[i])
		}
	}
}

func TestServiceIgnoresPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	s := New(&fakeStore{id: 1}, pub, zaptest.NewLogger(t).Sugar())

	if _, err := s.CreateDistrict(context.Background(), storage.DistrictPayload{}); err != nil {
		t.Fatalf("CreateDistrict should succeed when publish fails: %v", err)
	}
}

func TestNewDefaultsToNopPublisher(t *testing.T) {
	s := New(&fakeStore{id: 1}, nil, nil)
	if err := s.DeleteDistrict(context.Background(), 1); err != nil {
		t.Fatalf("DeleteDistrict: %v", err)
	}
}
