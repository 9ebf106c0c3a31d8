package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/itinerary-planner/internal/domain"
)

// Export formats accepted by ?format=.
const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "trip_name", "trip_start_date",
	"day_number", "day_date",
	"spot_id", "spot_name", "category", "start_time", "end_time",
	"lat", "lng", "address", "note",
}

// ExportRow is the JSON shape of one export row. Empty spot fields are
// omitted.
type ExportRow struct {
	TripID        string           `json:"tripId"`
	TripName      string           `json:"tripName"`
	TripStartDate string           `json:"tripStartDate,omitempty"`
	DayNumber     int              `json:"dayNumber"`
	DayDate       string           `json:"dayDate,omitempty"`
	SpotID        string           `json:"spotId,omitempty"`
	SpotName      string           `json:"spotName,omitempty"`
	Category      string           `json:"category,omitempty"`
	StartTime     string           `json:"startTime,omitempty"`
	EndTime       string           `json:"endTime,omitempty"`
	Location      *domain.Location `json:"location,omitempty"`
	Address       string           `json:"address,omitempty"`
	Note          string           `json:"note,omitempty"`
}

// GetExport handles GET /api/export?profileId=&format=.
// It returns one row per spot of every trip, as JSON (default) or CSV.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.profileID(w, r)
	if !ok {
		return
	}
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	f := formatJSON
	if format != nil && *format != "" {
		f = *format
	}
	if f != formatJSON && f != formatCSV {
		writeError(w, http.StatusBadRequest, codeBadRequest, `format must be "json" or "csv"`)
		return
	}

	rows, err := s.export.Export(r.Context(), profile)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if f == formatCSV {
		writeCSV(w, rows)
		return
	}
	out := make([]ExportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, ExportRow(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// writeCSV encodes rows as CSV with a header row.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	// bytes.Buffer writes never fail.
	_ = cw.Write(csvHeaders)
	for _, r := range rows {
		_ = cw.Write(csvRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="itinerary.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// csvRecord flattens one row. Unplaced spots have empty coordinates.
func csvRecord(r domain.ExportRow) []string {
	var lat, lng string
	if r.Location != nil {
		lat = strconv.FormatFloat(r.Location.Lat, 'f', -1, 64)
		lng = strconv.FormatFloat(r.Location.Lng, 'f', -1, 64)
	}
	return []string{
		r.TripID,
		r.TripName,
		r.TripStartDate,
		strconv.Itoa(r.DayNumber),
		r.DayDate,
		r.SpotID,
		r.SpotName,
		r.Category,
		r.StartTime,
		r.EndTime,
		lat,
		lng,
		r.Address,
		r.Note,
	}
}
