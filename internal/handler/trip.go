package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/itinerary-planner/internal/domain"
)

// SaveResponse is the body of a successful POST /api/trips.
type SaveResponse struct {
	Success bool `json:"success"`
}

// profileID binds the optional profileId query parameter, falling back to
// the server default. It writes a 400 and returns false on a malformed query.
func (s *Server) profileID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id *string
	if err := runtime.BindQueryParameter("form", true, false, "profileId", r.URL.Query(), &id); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return "", false
	}
	if id == nil || *id == "" {
		return s.defaultProfile, true
	}
	return *id, true
}

// GetTrips handles GET /api/trips?profileId=.
// It returns the stored trip array, or [] when the profile never saved.
func (s *Server) GetTrips(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.profileID(w, r)
	if !ok {
		return
	}
	trips, err := s.trips.Load(r.Context(), profile)
	if errors.Is(err, domain.ErrNotFound) {
		trips, err = []domain.Trip{}, nil
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	writeJSON(w, http.StatusOK, trips)
}

// PostTrips handles POST /api/trips?profileId=.
// The body must be a JSON array of trips; it replaces the stored collection.
func (s *Server) PostTrips(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.profileID(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "could not read request body")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, codeBadRequest, "request body is not valid JSON")
		return
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '[' {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "body must be a JSON array of trips")
		return
	}

	var trips []domain.Trip
	if err := json.Unmarshal(body, &trips); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, err.Error())
		return
	}
	if err := s.trips.Save(r.Context(), profile, trips); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Success: true})
}

// DeleteTrips handles DELETE /api/trips?profileId=.
// It removes the stored collection; 404 when there was none.
func (s *Server) DeleteTrips(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.profileID(w, r)
	if !ok {
		return
	}
	if err := s.trips.Delete(r.Context(), profile); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
