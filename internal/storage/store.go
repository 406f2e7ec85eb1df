package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrStateNotFound    = errors.New("state not found")
	ErrDistrictNotFound = errors.New("district not found")
)

// State is a row of the state table.
type State struct {
	ID         int64  `json:"stateId"`
	Name       string `json:"stateName"`
	Population int64  `json:"population"`
}

// District is a row of the district table.
type District struct {
	ID      int64  `json:"districtId"`
	Name    string `json:"districtName"`
	StateID int64  `json:"stateId"`
	Cases   int64  `json:"cases"`
	Cured   int64  `json:"cured"`
	Active  int64  `json:"active"`
	Deaths  int64  `json:"deaths"`
}

// DistrictPayload carries the caller-supplied fields of a district on
// create and update.
type DistrictPayload struct {
	Name    string `json:"districtName"`
	StateID int64  `json:"stateId"`
	Cases   int64  `json:"cases"`
	Cured   int64  `json:"cured"`
	Active  int64  `json:"active"`
	Deaths  int64  `json:"deaths"`
}

type StateStats struct {
	TotalCases  int64 `json:"totalCases"`
	TotalCured  int64 `json:"totalCured"`
	TotalActive int64 `json:"totalActive"`
	TotalDeaths int64 `json:"totalDeaths"`
}

type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

func NewStore(db *sql.DB, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{db: db, logger: logger}
}

// Ping reports whether the underlying database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ListStates(ctx context.Context) ([]State, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT state_id, state_name, population
FROM state
ORDER BY state_id
`)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer func() { _ = rows.Close() }()
	states := make([]State, 0)
	for rows.Next() {
		var st State
		if err := rows.Scan(&st.ID, &st.Name, &st.Population); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	return states, nil
}

func (s *Store) GetState(ctx context.Context, stateID int64) (*State, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT state_id, state_name, population
FROM state
WHERE state_id = $1
`, stateID)
	var st State
	if err := row.Scan(&st.ID, &st.Name, &st.Population); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("get state %d: %w", stateID, err)
	}
	return &st, nil
}

// CreateDistrict inserts a district and returns the id assigned by the
// database.
func (s *Store) CreateDistrict(ctx context.Context, payload DistrictPayload) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO district (district_name, state_id, cases, cured, active, deaths)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING district_id
`, payload.Name, payload.StateID, payload.Cases, payload.Cured, payload.Active, payload.Deaths).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert district: %w", err)
	}
	s.logger.Debugw("district created", "district_id", id, "state_id", payload.StateID)
	return id, nil
}

func (s *Store) GetDistrict(ctx context.Context, districtID int64) (*District, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT district_id, district_name, state_id, cases, cured, active, deaths
FROM district
WHERE district_id = $1
`, districtID)
	var d District
	if err := row.Scan(&d.ID, &d.Name, &d.StateID, &d.Cases, &d.Cured, &d.Active, &d.Deaths); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDistrictNotFound
		}
		return nil, fmt.Errorf("get district %d: %w", districtID, err)
	}
	return &d, nil
}

// UpdateDistrict overwrites every business field of the district.
func (s *Store) UpdateDistrict(ctx context.Context, districtID int64, payload DistrictPayload) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE district
SET district_name = $1, state_id = $2, cases = $3, cured = $4, active = $5, deaths = $6
WHERE district_id = $7
`, payload.Name, payload.StateID, payload.Cases, payload.Cured, payload.Active, payload.Deaths, districtID)
	if err != nil {
		return fmt.Errorf("update district %d: %w", districtID, err)
	}
	return requireAffected(res, ErrDistrictNotFound)
}

// DeleteDistrict removes the district and returns the state it belonged to.
func (s *Store) DeleteDistrict(ctx context.Context, districtID int64) (int64, error) {
	var stateID int64
	err := s.db.QueryRowContext(ctx, `
DELETE FROM district
WHERE district_id = $1
RETURNING state_id
`, districtID).Scan(&stateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrDistrictNotFound
		}
		return 0, fmt.Errorf("delete district %d: %w", districtID, err)
	}
	return stateID, nil
}

// StateStats sums the case counters of every district carrying the state id,
// whether or not a state row exists for it. ErrStateNotFound is returned only
// when there are no such districts and no state row either.
func (s *Store) StateStats(ctx context.Context, stateID int64) (*StateStats, error) {
	var (
		st        StateStats
		districts int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT
  COUNT(*),
  CAST(COALESCE(SUM(cases), 0) AS BIGINT),
  CAST(COALESCE(SUM(cured), 0) AS BIGINT),
  CAST(COALESCE(SUM(active), 0) AS BIGINT),
  CAST(COALESCE(SUM(deaths), 0) AS BIGINT)
FROM district
WHERE state_id = $1
`, stateID).Scan(&districts, &st.TotalCases, &st.TotalCured, &st.TotalActive, &st.TotalDeaths)
	if err != nil {
		return nil, fmt.Errorf("state stats %d: %w", stateID, err)
	}
	if districts > 0 {
		return &st, nil
	}

	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM state WHERE state_id = $1`, stateID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("state stats %d: %w", stateID, err)
	}
	return &st, nil
}

// DistrictStateName resolves the name of the state a district belongs to.
func (s *Store) DistrictStateName(ctx context.Context, districtID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
SELECT state_name
FROM state
WHERE state_id = (
  SELECT state_id FROM district WHERE district_id = $1
)
`, districtID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrDistrictNotFound
		}
		return "", fmt.Errorf("district %d state name: %w", districtID, err)
	}
	return name, nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
