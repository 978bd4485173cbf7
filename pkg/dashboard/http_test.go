package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sccm-datasci/ards-platform/pkg/common/models"
	"github.com/sccm-datasci/ards-platform/pkg/source"
)

var icuIn = time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC)

type memoryStore struct {
	records []models.AnalysisRecord
}

func (m *memoryStore) LoadRecords(ctx context.Context, sourceName string) ([]models.AnalysisRecord, error) {
	if sourceName == "" {
		return m.records, nil
	}
	out := make([]models.AnalysisRecord, 0, len(m.records))
	for _, rec := range m.records {
		if rec.Source == sourceName {
			out = append(out, rec)
		}
	}
	return out, nil
}

func quartilePtr(q int) *int { return &q }

func sfPtr(v float64) *float64 { return &v }

func testHandler(t *testing.T) *HTTPHandler {
	t.Helper()

	store := &memoryStore{records: []models.AnalysisRecord{
		{StayID: "s1", Source: "icu_db", AgeAtAdmission: 62, Sex: "F", ARDSOnset: icuIn.Add(6 * time.Hour), SFAtOnset: sfPtr(98), Quartile: quartilePtr(1), ProneTiming: models.ProneEarly, Mortality: true},
		{StayID: "s2", Source: "icu_db", AgeAtAdmission: 48, Sex: "M", ARDSOnset: icuIn.Add(8 * time.Hour), SFAtOnset: sfPtr(220), Quartile: quartilePtr(4), ProneTiming: models.ProneNone},
	}}

	stay := models.StayRecord{
		Patient: models.Patient{ID: "p1", AgeAtAdmission: 62, Sex: "F"},
		Stay:    models.ICUStay{ID: "s1", PatientID: "p1", ICUInTime: icuIn, ICUOutTime: icuIn.Add(120 * time.Hour)},
		Observations: []models.Observation{
			{StayID: "s1", Time: icuIn.Add(2 * time.Hour), Kind: models.ObsPEEP, Value: 10},
			{StayID: "s1", Time: icuIn.Add(4 * time.Hour), Kind: models.ObsSpO2, Value: 94},
			{StayID: "s1", Time: icuIn.Add(4 * time.Hour), Kind: models.ObsFiO2, Value: 0.8},
		},
		ProneEvents: []models.ProneEvent{
			{StayID: "s1", StartTime: icuIn.Add(12 * time.Hour)},
		},
	}
	src := source.NewMemory("icu_db", []models.StayRecord{stay})

	service := NewService(store, src, nil, time.Minute)
	return NewHTTPHandler(service, "icu_db")
}

func serve(t *testing.T, handler *HTTPHandler, url string) *httptest.ResponseRecorder {
	t.Helper()
	router := mux.NewRouter()
	handler.Register(router)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRecordsEndpoint(t *testing.T) {
	rec := serve(t, testHandler(t), "/api/v1/records")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Count   int                     `json:"count"`
		Records []models.AnalysisRecord `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if payload.Count != 2 || len(payload.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", payload.Count)
	}
}

func TestRecordsFiltering(t *testing.T) {
	handler := testHandler(t)

	rec := serve(t, handler, "/api/v1/records?quartile=1")
	var payload struct {
		Count   int                     `json:"count"`
		Records []models.AnalysisRecord `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if payload.Count != 1 || payload.Records[0].StayID != "s1" {
		t.Fatalf("expected only s1, got %+v", payload.Records)
	}

	// Filters yielding nothing return an empty list, not an error.
	rec = serve(t, handler, "/api/v1/records?quartile=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if payload.Count != 0 || payload.Records == nil {
		t.Fatalf("expected empty list, got %+v", payload)
	}
}

func TestRecordsBadFilter(t *testing.T) {
	rec := serve(t, testHandler(t), "/api/v1/records?quartile=9")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	rec := serve(t, testHandler(t), "/api/v1/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var summary Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if summary.Total != 2 {
		t.Fatalf("total = %d, want 2", summary.Total)
	}
	if len(summary.Groups) != 3 || len(summary.ByQuartile) != 4 {
		t.Fatalf("unexpected group layout: %d / %d", len(summary.Groups), len(summary.ByQuartile))
	}
	// One of two stays dies, so the mortality curve has a single step down
	// to 0.5. Neither stay has extubation hours, so that curve is omitted.
	if len(summary.MortalityKM) != 1 || summary.MortalityKM[0].Survival != 0.5 {
		t.Fatalf("unexpected mortality curve: %+v", summary.MortalityKM)
	}
	if summary.ExtubationKM != nil {
		t.Fatalf("expected no extubation curve, got %+v", summary.ExtubationKM)
	}
}

func TestTrajectoryEndpoint(t *testing.T) {
	rec := serve(t, testHandler(t), "/api/v1/stays/s1/trajectory")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var traj models.Trajectory
	if err := json.Unmarshal(rec.Body.Bytes(), &traj); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if traj.StayID != "s1" {
		t.Fatalf("stay id = %s", traj.StayID)
	}
	if len(traj.Points) != 2 {
		t.Fatalf("expected 2 points (PEEP and S/F), got %d", len(traj.Points))
	}
	if traj.ARDSOnset == nil {
		t.Fatal("expected onset marker from the analysis table")
	}
	if len(traj.ProneStartHours) != 1 || traj.ProneStartHours[0] != 12 {
		t.Fatalf("unexpected prone markers: %v", traj.ProneStartHours)
	}
	// The S/F sample at hour 4: 94 / 0.8.
	sfPoint := traj.Points[1]
	if sfPoint.SF == nil || *sfPoint.SF != 117.5 {
		t.Fatalf("unexpected S/F point: %+v", sfPoint)
	}
	if sfPoint.HoursFromAdmission != 4 {
		t.Fatalf("expected 4 hours from admission, got %v", sfPoint.HoursFromAdmission)
	}
}

func TestTrajectoryOnsetScopedToSource(t *testing.T) {
	// The same stay ID exists in two sources with different onsets; the
	// handler must take the onset from its own source.
	wantOnset := icuIn.Add(6 * time.Hour)
	store := &memoryStore{records: []models.AnalysisRecord{
		{StayID: "s1", Source: "other_db", ARDSOnset: icuIn.Add(40 * time.Hour)},
		{StayID: "s1", Source: "icu_db", ARDSOnset: wantOnset},
	}}
	stay := models.StayRecord{
		Patient: models.Patient{ID: "p1", AgeAtAdmission: 62, Sex: "F"},
		Stay:    models.ICUStay{ID: "s1", PatientID: "p1", ICUInTime: icuIn, ICUOutTime: icuIn.Add(120 * time.Hour)},
		Observations: []models.Observation{
			{StayID: "s1", Time: icuIn.Add(2 * time.Hour), Kind: models.ObsPEEP, Value: 10},
		},
	}
	src := source.NewMemory("icu_db", []models.StayRecord{stay})
	handler := NewHTTPHandler(NewService(store, src, nil, time.Minute), "icu_db")

	rec := serve(t, handler, "/api/v1/stays/s1/trajectory")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var traj models.Trajectory
	if err := json.Unmarshal(rec.Body.Bytes(), &traj); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if traj.ARDSOnset == nil || !traj.ARDSOnset.Equal(wantOnset) {
		t.Fatalf("onset = %v, want %v", traj.ARDSOnset, wantOnset)
	}
}

func TestTrajectoryUnknownStay(t *testing.T) {
	rec := serve(t, testHandler(t), "/api/v1/stays/nope/trajectory")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
