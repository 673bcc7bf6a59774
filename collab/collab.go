/*
Package collab defines the external collaborator contracts.

PURPOSE:
  The face-matching and chat-relay capabilities live outside this service.
  This package pins down their interfaces and provides thin HTTP
  call-through clients: payload construction and error passthrough, nothing
  else. No retry, no caching, no interpretation of results.

SEE ALSO:
  - api/handlers.go: Endpoints delegating to these interfaces
*/
package collab

import "context"

// FaceLocation is one detected face's bounding box, in the remote service's
// top/right/bottom/left pixel convention.
type FaceLocation struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// FaceResult pairs one detected face with its best-matching known identity,
// or "Unknown".
type FaceResult struct {
	Name     string       `json:"name"`
	Location FaceLocation `json:"location"`
}

// FaceMatchResult is the full response for one uploaded image.
type FaceMatchResult struct {
	FacesDetected int          `json:"faces_detected"`
	Results       []FaceResult `json:"results"`
}

// FaceMatcher matches faces in an uploaded image against known references.
type FaceMatcher interface {
	Match(ctx context.Context, filename string, image []byte) (*FaceMatchResult, error)
}

// TokenUsage is the model's reported token accounting.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatReply is the relayed model response, verbatim.
type ChatReply struct {
	Reply string     `json:"reply"`
	Usage TokenUsage `json:"usage"`
}

// ChatRelay forwards a user message plus an optional context string to a
// remote language-model API and returns its reply verbatim.
type ChatRelay interface {
	Relay(ctx context.Context, message, contextText string) (*ChatReply, error)
}
