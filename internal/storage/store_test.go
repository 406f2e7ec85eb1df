package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	store := NewStore(db, zap.NewNop().Sugar())
	return store, mock, func() { db.Close() }
}

var districtColumns = []string{"district_id", "district_name", "state_id", "cases", "cured", "active", "deaths"}

func TestListStatesOrdered(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT state_id, state_name, population FROM state ORDER BY state_id`).
		WillReturnRows(sqlmock.NewRows([]string{"state_id", "state_name", "population"}).
			AddRow(1, "Andaman and Nicobar Islands", 380581).
			AddRow(2, "Andhra Pradesh", 49386799))

	states, err := store.ListStates(context.Background())
	if err != nil {
		t.Fatalf("ListStates returned error: %v", err)
	}
	if len(states) != 2 || states[0].ID != 1 || states[1].Name != "Andhra Pradesh" {
		t.Fatalf("unexpected states: %+v", states)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListStatesEmptyIsNotNil(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`FROM state ORDER BY state_id`).
		WillReturnRows(sqlmock.NewRows([]string{"state_id", "state_name", "population"}))

	states, err := store.ListStates(context.Background())
	if err != nil {
		t.Fatalf("ListStates returned error: %v", err)
	}
	if states == nil || len(states) != 0 {
		t.Fatalf("expected empty slice, got %#v", states)
	}
}

func TestListStatesQueryError(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	boom := errors.New("disk I/O error")
	mock.ExpectQuery(`FROM state ORDER BY state_id`).WillReturnError(boom)

	if _, err := store.ListStates(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestGetState(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`FROM state WHERE state_id = \$1`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"state_id", "state_name", "population"}).
			AddRow(8, "Delhi", 16787941))

	st, err := store.GetState(context.Background(), 8)
	if err != nil {
		t.Fatalf("GetState returned error: %v", err)
	}
	if st.ID != 8 || st.Name != "Delhi" || st.Population != 16787941 {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestGetStateNotFound(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`FROM state WHERE state_id = \$1`).WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"state_id", "state_name", "population"}))

	if _, err := store.GetState(context.Background(), 99); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}
}

func TestCreateDistrictBindsAllFields(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`INSERT INTO district \(district_name, state_id, cases, cured, active, deaths\)`).
		WithArgs("Alpha", int64(1), int64(100), int64(80), int64(15), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"district_id"}).AddRow(42))

	id, err := store.CreateDistrict(context.Background(), DistrictPayload{
		Name: "Alpha", StateID: 1, Cases: 100, Cured: 80, Active: 15, Deaths: 5,
	})
	if err != nil {
		t.Fatalf("CreateDistrict returned error: %v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d, want 42", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateDistrictError(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	boom := errors.New("constraint failed")
	mock.ExpectQuery(`INSERT INTO district`).WillReturnError(boom)

	if _, err := store.CreateDistrict(context.Background(), DistrictPayload{Name: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestGetDistrict(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`FROM district WHERE district_id = \$1`).WithArgs(int64(322)).
		WillReturnRows(sqlmock.NewRows(districtColumns).AddRow(322, "Haveri", 36, 2378, 2121, 0, 0))

	d, err := store.GetDistrict(context.Background(), 322)
	if err != nil {
		t.Fatalf("GetDistrict returned error: %v", err)
	}
	want := District{ID: 322, Name: "Haveri", StateID: 36, Cases: 2378, Cured: 2121}
	if *d != want {
		t.Fatalf("district = %+v, want %+v", *d, want)
	}
}

func TestGetDistrictNotFound(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`FROM district WHERE district_id = \$1`).WithArgs(int64(9999)).
		WillReturnError(sql.ErrNoRows)

	if _, err := store.GetDistrict(context.Background(), 9999); !errors.Is(err, ErrDistrictNotFound) {
		t.Fatalf("expected ErrDistrictNotFound, got %v", err)
	}
}

func TestUpdateDistrict(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE district SET district_name = \$1, state_id = \$2`).
		WithArgs("Nadia", int64(3), int64(9628), int64(6524), int64(3000), int64(104), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateDistrict(context.Background(), 8, DistrictPayload{
		Name: "Nadia", StateID: 3, Cases: 9628, Cured: 6524, Active: 3000, Deaths: 104,
	})
	if err != nil {
		t.Fatalf("UpdateDistrict returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateDistrictMissing(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE district`).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.UpdateDistrict(context.Background(), 5, DistrictPayload{}); !errors.Is(err, ErrDistrictNotFound) {
		t.Fatalf("expected ErrDistrictNotFound, got %v", err)
	}
}

func TestDeleteDistrict(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`DELETE FROM district WHERE district_id = \$1 RETURNING state_id`).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"state_id"}).AddRow(4))

	stateID, err := store.DeleteDistrict(context.Background(), 7)
	if err != nil {
		t.Fatalf("DeleteDistrict returned error: %v", err)
	}
	if stateID != 4 {
		t.Fatalf("state id = %d, want 4", stateID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteDistrictMissing(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`DELETE FROM district`).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"state_id"}))

	if _, err := store.DeleteDistrict(context.Background(), 7); !errors.Is(err, ErrDistrictNotFound) {
		t.Fatalf("expected ErrDistrictNotFound, got %v", err)
	}
}

func TestDeleteDistrictQueryError(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	boom := errors.New("database is locked")
	mock.ExpectQuery(`DELETE FROM district`).WithArgs(int64(7)).WillReturnError(boom)

	if _, err := store.DeleteDistrict(context.Background(), 7); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

var statsColumns = []string{"districts", "cases", "cured", "active", "deaths"}

func TestStateStats(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`FROM district WHERE state_id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(statsColumns).AddRow(2, 100, 80, 15, 5))

	st, err := store.StateStats(context.Background(), 1)
	if err != nil {
		t.Fatalf("StateStats returned error: %v", err)
	}
	want := StateStats{TotalCases: 100, TotalCured: 80, TotalActive: 15, TotalDeaths: 5}
	if *st != want {
		t.Fatalf("stats = %+v, want %+v", *st, want)
	}
	// districts found: the state table is never consulted
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStateStatsKnownStateWithoutDistricts(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`FROM district WHERE state_id = \$1`).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(statsColumns).AddRow(0, 0, 0, 0, 0))
	mock.ExpectQuery(`SELECT 1 FROM state WHERE state_id = \$1`).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))

	st, err := store.StateStats(context.Background(), 3)
	if err != nil {
		t.Fatalf("StateStats returned error: %v", err)
	}
	if *st != (StateStats{}) {
		t.Fatalf("expected zero totals, got %+v", *st)
	}
}

func TestStateStatsUnknownState(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`FROM district WHERE state_id = \$1`).WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows(statsColumns).AddRow(0, 0, 0, 0, 0))
	mock.ExpectQuery(`SELECT 1 FROM state`).WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"one"}))

	if _, err := store.StateStats(context.Background(), 77); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}
}

func TestStateStatsQueryError(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	boom := errors.New("disk I/O error")
	mock.ExpectQuery(`FROM district`).WithArgs(int64(1)).WillReturnError(boom)

	if _, err := store.StateStats(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestDistrictStateName(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT state_name FROM state WHERE state_id = \( SELECT state_id FROM district WHERE district_id = \$1 \)`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"state_name"}).AddRow("Maharashtra"))

	name, err := store.DistrictStateName(context.Background(), 2)
	if err != nil {
		t.Fatalf("DistrictStateName returned error: %v", err)
	}
	if name != "Maharashtra" {
		t.Fatalf("name = %q", name)
	}
}

func TestDistrictStateNameMissing(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT state_name FROM state`).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"state_name"}))

	if _, err := store.DistrictStateName(context.Background(), 2); !errors.Is(err, ErrDistrictNotFound) {
		t.Fatalf("expected ErrDistrictNotFound, got %v", err)
	}
}
