package api

import (
	"fmt"
	"net/http"

	"covidstats/internal/storage"
)

func (s *server) decodeDistrict(r *http.Request) (storage.DistrictPayload, *apiError) {
	var payload storage.DistrictPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.logger.Warnw("invalid json", "err", err)
		return payload, badRequest("%v", err)
	}
	return payload, nil
}

func (s *server) handleCreateDistrict(w http.ResponseWriter, r *http.Request) {
	payload, apiErr := s.decodeDistrict(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	id, err := s.svc.CreateDistrict(r.Context(), payload)
	if err != nil {
		writeAPIError(w, mapErrorWithLog(s.logger, err))
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/districts/%d/", id))
	writeText(w, http.StatusOK, "District Successfully Added")
}

func (s *server) handleGetDistrict(w http.ResponseWriter, r *http.Request) {
	districtID, apiErr := pathID(r, "districtId")
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	district, err := s.svc.GetDistrict(r.Context(), districtID)
	if err != nil {
		writeAPIError(w, mapErrorWithLog(s.logger, err))
		return
	}
	writeJSON(w, http.StatusOK, district, s.logger)
}

func (s *server) handleUpdateDistrict(w http.ResponseWriter, r *http.Request) {
	districtID, apiErr := pathID(r, "districtId")
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	payload, apiErr := s.decodeDistrict(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if err := s.svc.UpdateDistrict(r.Context(), districtID, payload); err != nil {
		writeAPIError(w, mapErrorWithLog(s.logger, err))
		return
	}
	writeText(w, http.StatusOK, "District Details Updated")
}

func (s *server) handleDeleteDistrict(w http.ResponseWriter, r *http.Request) {
	districtID, apiErr := pathID(r, "districtId")
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if err := s.svc.DeleteDistrict(r.Context(), districtID); err != nil {
		writeAPIError(w, mapErrorWithLog(s.logger, err))
		return
	}
	writeText(w, http.StatusOK, "District Removed")
}

func (s *server) handleDistrictDetails(w http.ResponseWriter, r *http.Request) {
	districtID, apiErr := pathID(r, "districtId")
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	name, err := s.svc.DistrictStateName(r.Context(), districtID)
	if err != nil {
		writeAPIError(w, mapErrorWithLog(s.logger, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"stateName": name}, s.logger)
}
