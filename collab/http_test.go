/*
http_test.go - Unit tests for the collaborator call-through clients

Tests for:
- Chat relay payload construction and verbatim reply decoding
- Remote error message passthrough
- Face matcher multipart upload and result decoding
*/
package collab_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelink/telemetry-engine/collab"
)

func TestChatRelay_ForwardsAndDecodes(t *testing.T) {
	var gotBody map[string]string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		json.NewEncoder(w).Encode(collab.ChatReply{
			Reply: "as you wish",
			Usage: collab.TokenUsage{PromptTokens: 7, CompletionTokens: 4, TotalTokens: 11},
		})
	}))
	defer srv.Close()

	relay := &collab.HTTPChatRelay{BaseURL: srv.URL, APIKey: "sekrit"}
	reply, err := relay.Relay(context.Background(), "do the thing", "politely")
	require.NoError(t, err)

	assert.Equal(t, "as you wish", reply.Reply)
	assert.Equal(t, 11, reply.Usage.TotalTokens)
	assert.Equal(t, "do the thing", gotBody["message"])
	assert.Equal(t, "politely", gotBody["context"])
	assert.Equal(t, "Bearer sekrit", gotAuth)
}

func TestChatRelay_PassesRemoteErrorThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
	}))
	defer srv.Close()

	relay := &collab.HTTPChatRelay{BaseURL: srv.URL}
	_, err := relay.Relay(context.Background(), "hi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestFaceMatcher_UploadsAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload_photo", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "front-door.jpg", header.Filename)
		assert.Equal(t, []byte{0xff, 0xd8}, data)

		json.NewEncoder(w).Encode(collab.FaceMatchResult{
			FacesDetected: 1,
			Results: []collab.FaceResult{{
				Name:     "alice",
				Location: collab.FaceLocation{Top: 1, Right: 2, Bottom: 3, Left: 4},
			}},
		})
	}))
	defer srv.Close()

	matcher := &collab.HTTPFaceMatcher{BaseURL: srv.URL}
	result, err := matcher.Match(context.Background(), "front-door.jpg", []byte{0xff, 0xd8})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FacesDetected)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "alice", result.Results[0].Name)
	assert.Equal(t, 2, result.Results[0].Location.Right)
}
