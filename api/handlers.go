/*
handlers.go - HTTP API handlers for the telemetry engine

PURPOSE:
  Exposes the ingestion pipeline via REST. Handles HTTP request/response,
  JSON serialization, and delegates to the pipeline and store.

ENDPOINTS:
  Ingestion:
    POST   /api/telemetry          Ingest a fragment envelope

  Devices (plain CRUD, no merge logic):
    GET    /api/devices            List devices
    PUT    /api/devices/{id}       Create/replace device
    GET    /api/devices/{id}       Get device
    DELETE /api/devices/{id}       Delete device

  Maintenance:
    GET    /api/archive/runs       List completed archive sweeps

  Collaborators (call-through):
    POST   /api/upload_photo       Face matching
    POST   /api/chat               Chat relay

ERROR HANDLING:
  Errors come back as {"error": message} with:
  - 400: malformed input (no state mutated)
  - 500: storage failure (merged record lost, device must resend both
         fragments) or archive failure (record written, table untouched)
  Failed requests never crash the process or corrupt the cache for other
  devices; chi's Recoverer backs that up for panics.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ingest/pipeline.go: The logic behind POST /api/telemetry
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/homelink/telemetry-engine/collab"
	"github.com/homelink/telemetry-engine/ingest"
	"github.com/homelink/telemetry-engine/store/sqlite"
	"github.com/homelink/telemetry-engine/telemetry"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Pipeline *ingest.Pipeline
	Store    *sqlite.Store
	Faces    collab.FaceMatcher
	Chat     collab.ChatRelay
	Log      *logrus.Logger
}

// NewHandler creates a new handler.
func NewHandler(pipeline *ingest.Pipeline, store *sqlite.Store, faces collab.FaceMatcher, chat collab.ChatRelay, log *logrus.Logger) *Handler {
	return &Handler{
		Pipeline: pipeline,
		Store:    store,
		Faces:    faces,
		Chat:     chat,
		Log:      log,
	}
}

// =============================================================================
// INGESTION
// =============================================================================

// IngestTelemetry handles POST /api/telemetry.
func (h *Handler) IngestTelemetry(w http.ResponseWriter, r *http.Request) {
	var req TelemetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.Pipeline.Ingest(r.Context(), telemetry.TelemetryEnvelope{
		Device:     req.Device,
		Properties: req.Properties,
	})
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, IngestResponseDTO{
		Status:     string(result.Status),
		Inserted:   result.Inserted,
		CachedKeys: result.CachedCategories,
	})
}

// statusForError maps pipeline error kinds to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, telemetry.ErrMalformedInput):
		return http.StatusBadRequest
	default:
		// Storage and archive failures are both server-side.
		return http.StatusInternalServerError
	}
}

// =============================================================================
// DEVICE CRUD
// =============================================================================

// ListDevices handles GET /api/devices.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.Store.ListDevices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dtos := make([]DeviceDTO, 0, len(devices))
	for _, d := range devices {
		dtos = append(dtos, deviceDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDevice handles GET /api/devices/{id}.
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.Store.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if device == nil {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, deviceDTO(*device))
}

// SaveDevice handles PUT /api/devices/{id}.
func (h *Handler) SaveDevice(w http.ResponseWriter, r *http.Request) {
	var req SaveDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id := chi.URLParam(r, "id")
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	device := sqlite.Device{
		ID:           id,
		Name:         req.Name,
		Location:     req.Location,
		RegisteredAt: time.Now().UTC(),
	}
	if err := h.Store.SaveDevice(r.Context(), device); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, deviceDTO(device))
}

// DeleteDevice handles DELETE /api/devices/{id}.
func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteDevice(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func deviceDTO(d sqlite.Device) DeviceDTO {
	dto := DeviceDTO{ID: d.ID, Name: d.Name, Location: d.Location}
	if !d.RegisteredAt.IsZero() {
		dto.RegisteredAt = d.RegisteredAt.UTC().Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// ARCHIVE RUNS
// =============================================================================

// ListArchiveRuns handles GET /api/archive/runs.
func (h *Handler) ListArchiveRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListArchiveRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dtos := make([]ArchiveRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, ArchiveRunDTO{
			ID:        run.ID,
			Filename:  run.Filename,
			RowCount:  run.RowCount,
			CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// COLLABORATOR CALL-THROUGHS
// =============================================================================

// UploadPhoto handles POST /api/upload_photo. Pure passthrough to the
// face-matching collaborator.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if h.Faces == nil {
		writeError(w, http.StatusServiceUnavailable, "face matching not configured")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable file")
		return
	}

	result, err := h.Faces.Match(r.Context(), header.Filename, image)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RelayChat handles POST /api/chat. Pure passthrough to the chat-relay
// collaborator.
func (h *Handler) RelayChat(w http.ResponseWriter, r *http.Request) {
	if h.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat relay not configured")
		return
	}
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.Chat.Relay(r.Context(), req.Message, req.Context)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ChatResponseDTO{Reply: reply.Reply, Usage: reply.Usage})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorDTO{Error: message})
}
