package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
)

type HTTPHandler struct {
	service    *Service
	sourceName string
}

func NewHTTPHandler(service *Service, sourceName string) *HTTPHandler {
	return &HTTPHandler{service: service, sourceName: sourceName}
}

func (h *HTTPHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/records", h.handleRecords).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/summary", h.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stays/{id}/trajectory", h.handleTrajectory).Methods(http.MethodGet)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	records, err := h.service.Records(r.Context(), h.sourceName, filter)
	if err != nil {
		logger.Log.WithError(err).Error("failed to load analysis records")
		http.Error(w, "failed to load records", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func (h *HTTPHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summarize(r.Context(), h.sourceName)
	if err != nil {
		logger.Log.WithError(err).Error("failed to build summary")
		http.Error(w, "failed to build summary", http.StatusInternalServerError)
		return
	}
	writeJSON(w, summary)
}

func (h *HTTPHandler) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	stayID := mux.Vars(r)["id"]
	if stayID == "" {
		http.Error(w, "stay id is required", http.StatusBadRequest)
		return
	}
	traj, err := h.service.Trajectory(r.Context(), h.sourceName, stayID)
	if err != nil {
		if errors.Is(err, ErrStayNotFound) {
			http.Error(w, "stay not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to build trajectory")
		http.Error(w, "failed to build trajectory", http.StatusInternalServerError)
		return
	}
	writeJSON(w, traj)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

func parseFilter(r *http.Request) (RecordFilter, error) {
	var filter RecordFilter
	q := r.URL.Query()

	if v := q.Get("min_age"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, errors.New("min_age must be numeric")
		}
		filter.MinAge = f
	}
	if v := q.Get("max_age"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, errors.New("max_age must be numeric")
		}
		filter.MaxAge = f
	}
	filter.Sex = q.Get("sex")
	if v := q.Get("quartile"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 4 {
			return filter, errors.New("quartile must be 1-4")
		}
		filter.Quartile = n
	}
	filter.ProneTiming = q.Get("prone_timing")
	if v := q.Get("mortality"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errors.New("mortality must be a boolean")
		}
		filter.Mortality = &b
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Error("failed to write json response")
	}
}
