package progress

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/phraseflow/backend/internal/models"
)

type Handler struct {
	service *Service
	store   *Store
}

func NewHandler(service *Service, store *Store) *Handler {
	return &Handler{service: service, store: store}
}

func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

// ── Learner Endpoints ───────────────────────────────────

func (h *Handler) LogEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.LogEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.LogEvent(userID, req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]bool{"logged": true})
}

func (h *Handler) GetMyProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	progress, err := h.store.GetUserProgress(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get progress"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"progress": progress})
}

// ── Admin: Recalculation ────────────────────────────────

func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.RecalculateAll()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   summary.RowsUpserted,
		"details": summary.Details,
		"summary": summary,
	})
}

// ── Admin: Events ───────────────────────────────────────

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := intQueryParam(query, "page", 1)
	limit := intQueryParam(query, "page_size", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	events, total, err := h.store.ListEvents(page, limit, query.Get("event_type"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list events"})
		return
	}

	writeJSON(w, http.StatusOK, models.EventListResponse{Events: events, Total: total, Page: page})
}

func (h *Handler) EventStats(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if s := r.URL.Query().Get("user_id"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid user_id"})
			return
		}
		userID = v
	}

	stats, err := h.store.EventStats(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get event stats"})
		return
	}

	writeJSON(w, http.StatusOK, models.EventStatsResponse{Stats: stats})
}

func (h *Handler) SeedEvents(w http.ResponseWriter, r *http.Request) {
	var req models.SeedEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	count, err := h.service.SeedEvents(req)
	if err != nil {
		status := http.StatusBadRequest
		if err.Error() == "user not found" {
			status = http.StatusNotFound
		}
		writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "count": count})
}

// ── Admin: XP Settings ──────────────────────────────────

func (h *Handler) ListXPSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListXPSettings()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list XP settings"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": settings})
}

func (h *Handler) UpsertXPSetting(w http.ResponseWriter, r *http.Request) {
	var req models.XPSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.EventType == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "event_type is required"})
		return
	}
	if req.XPValue < 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "xp_value must not be negative"})
		return
	}

	if err := h.store.UpsertXPSetting(req); err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to save XP setting"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (h *Handler) DeleteXPSetting(w http.ResponseWriter, r *http.Request) {
	eventType := mux.Vars(r)["event_type"]
	if err := h.store.DeleteXPSetting(eventType); err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ── Admin: Levels ───────────────────────────────────────

func (h *Handler) ListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.store.ListLevels()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list levels"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"levels": levels})
}

func (h *Handler) UpsertLevel(w http.ResponseWriter, r *http.Request) {
	var req models.LevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Level < 1 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "level must be at least 1"})
		return
	}
	if req.XPThreshold < 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "xp_threshold must not be negative"})
		return
	}

	if err := h.store.UpsertLevel(req); err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to save level"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (h *Handler) DeleteLevel(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(mux.Vars(r)["level"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid level"})
		return
	}
	if err := h.store.DeleteLevel(level); err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ── Helpers ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
