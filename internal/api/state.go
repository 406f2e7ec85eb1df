package api

import "net/http"

// stateRow is the single-state response, which keeps the column names of
// the state table.
type stateRow struct {
	StateID    int64  `json:"state_id"`
	StateName  string `json:"state_name"`
	Population int64  `json:"population"`
}

func (s *server) handleListStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.svc.ListStates(r.Context())
	if err != nil {
		writeAPIError(w, mapErrorWithLog(s.logger, err))
		return
	}
	writeJSON(w, http.StatusOK, states, s.logger)
}

func (s *server) handleGetState(w http.ResponseWriter, r *http.Request) {
	stateID, apiErr := pathID(r, "stateId")
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	st, err := s.svc.GetState(r.Context(), stateID)
	if err != nil {
		writeAPIError(w, mapErrorWithLog(s.logger, err))
		return
	}
	writeJSON(w, http.StatusOK, stateRow{
		StateID:    st.ID,
		StateName:  st.Name,
		Population: st.Population,
	}, s.logger)
}

func (s *server) handleStateStats(w http.ResponseWriter, r *http.Request) {
	stateID, apiErr := pathID(r, "stateId")
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	stats, err := s.svc.StateStats(r.Context(), stateID)
	if err != nil {
		writeAPIError(w, mapErrorWithLog(s.logger, err))
		return
	}
	writeJSON(w, http.StatusOK, stats, s.logger)
}
