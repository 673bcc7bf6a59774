/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling internal
  domain types from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the pipeline, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import "github.com/homelink/telemetry-engine/collab"

// TelemetryRequest is the inbound ingestion envelope.
type TelemetryRequest struct {
	Device     string                 `json:"device"`
	Properties map[string]interface{} `json:"properties"`
}

// IngestResponseDTO reports what one ingestion call did. Exactly one of
// Inserted/CachedKeys is set, matching the status.
type IngestResponseDTO struct {
	Status     string   `json:"status"`
	Inserted   []string `json:"inserted,omitempty"`
	CachedKeys []string `json:"cached_keys,omitempty"`
}

// ErrorDTO is the uniform error body.
type ErrorDTO struct {
	Error string `json:"error"`
}

// DeviceDTO represents a device metadata row.
type DeviceDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Location     string `json:"location,omitempty"`
	RegisteredAt string `json:"registered_at,omitempty"`
}

// SaveDeviceRequest creates or replaces a device row.
type SaveDeviceRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// ArchiveRunDTO represents one completed archive-and-truncate sweep.
type ArchiveRunDTO struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	RowCount  int    `json:"row_count"`
	CreatedAt string `json:"created_at"`
}

// ChatRequest is the inbound chat-relay payload.
type ChatRequest struct {
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

// ChatResponseDTO relays the model reply verbatim.
type ChatResponseDTO struct {
	Reply string            `json:"reply"`
	Usage collab.TokenUsage `json:"usage"`
}
