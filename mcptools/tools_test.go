package mcptools_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/indiemcp/micropub-bridge/auth"
	"github.com/indiemcp/micropub-bridge/mcptools"
)

// newMicropubSite fakes a Micropub endpoint that records the last request
// body and answers with the configured status and headers.
func newMicropubSite(t *testing.T) (*httptest.Server, *siteState) {
	t.Helper()
	state := &siteState{status: http.StatusCreated, location: "https://alice.example/posts/1"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state.lastAuth = r.Header.Get("Authorization")
		if r.Method == http.MethodPost {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			state.lastBody = body
			if state.location != "" {
				w.Header().Set("Location", state.location)
			}
			w.WriteHeader(state.status)
			return
		}
		// query requests
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"media-endpoint": "https://alice.example/media",
			"properties": map[string]any{
				"content": []string{"hello"},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, state
}

type siteState struct {
	status   int
	location string
	lastBody []byte
	lastAuth string
}

func newToolset() *mcptools.Toolset {
	return mcptools.NewToolset(&http.Client{Timeout: 5 * time.Second})
}

func authedContext(endpoint, mediaEndpoint string) context.Context {
	return auth.NewContext(context.Background(), &auth.Context{
		GrantID: "grant-1",
		UserID:  "https://alice.example/",
		Scopes:  []string{"create", "update", "delete"},
		Props: auth.Props{
			Me:               "https://alice.example/",
			MicropubEndpoint: endpoint,
			MediaEndpoint:    mediaEndpoint,
			AccessToken:      "downstream-token",
			TokenType:        "Bearer",
		},
	})
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestCreatePost(t *testing.T) {
	ts := newToolset()
	site, state := newMicropubSite(t)

	t.Run("creates a post with normalized properties", func(t *testing.T) {
		result, err := ts.CreatePost(authedContext(site.URL, ""), toolRequest(map[string]any{
			"content":  "Hello world",
			"name":     "Greetings",
			"category": "updates, notes",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		require.Contains(t, textContent(t, result), "https://alice.example/posts/1")

		require.Equal(t, "Bearer downstream-token", state.lastAuth)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(state.lastBody, &payload))
		require.Equal(t, []any{"h-entry"}, payload["type"])
		properties := payload["properties"].(map[string]any)
		require.Equal(t, []any{"Hello world"}, properties["content"])
		require.Equal(t, []any{"Greetings"}, properties["name"])
		require.Equal(t, []any{"updates", "notes"}, properties["category"])
	})

	t.Run("requires content", func(t *testing.T) {
		result, err := ts.CreatePost(authedContext(site.URL, ""), toolRequest(map[string]any{}))
		require.NoError(t, err)
		require.True(t, result.IsError)
	})

	t.Run("requires auth context", func(t *testing.T) {
		result, err := ts.CreatePost(context.Background(), toolRequest(map[string]any{"content": "x"}))
		require.NoError(t, err)
		require.True(t, result.IsError)
		require.Contains(t, textContent(t, result), "not authenticated")
	})

	t.Run("surfaces endpoint errors as tool failures", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "insufficient scope"})
		}))
		defer failing.Close()

		result, err := ts.CreatePost(authedContext(failing.URL, ""), toolRequest(map[string]any{"content": "x"}))
		require.NoError(t, err)
		require.True(t, result.IsError)
		require.Contains(t, textContent(t, result), "insufficient scope")
	})
}

func TestStalledSiteDoesNotHangToolCall(t *testing.T) {
	release := make(chan struct{})
	stalled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(stalled.Close)
	t.Cleanup(func() { close(release) })

	ts := mcptools.NewToolset(&http.Client{Timeout: 100 * time.Millisecond})

	start := time.Now()
	result, err := ts.CreatePost(authedContext(stalled.URL, ""), toolRequest(map[string]any{"content": "x"}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestUpdatePost(t *testing.T) {
	ts := newToolset()
	site, state := newMicropubSite(t)
	state.status = http.StatusNoContent
	state.location = ""

	t.Run("replace properties", func(t *testing.T) {
		result, err := ts.UpdatePost(authedContext(site.URL, ""), toolRequest(map[string]any{
			"url":     "https://alice.example/posts/1",
			"replace": map[string]any{"content": "updated text"},
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(state.lastBody, &payload))
		require.Equal(t, "update", payload["action"])
		require.Equal(t, "https://alice.example/posts/1", payload["url"])
		replace := payload["replace"].(map[string]any)
		require.Equal(t, []any{"updated text"}, replace["content"])
	})

	t.Run("delete whole properties", func(t *testing.T) {
		result, err := ts.UpdatePost(authedContext(site.URL, ""), toolRequest(map[string]any{
			"url":               "https://alice.example/posts/1",
			"delete_properties": "category, photo",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(state.lastBody, &payload))
		require.Equal(t, []any{"category", "photo"}, payload["delete"])
	})

	t.Run("requires some change", func(t *testing.T) {
		result, err := ts.UpdatePost(authedContext(site.URL, ""), toolRequest(map[string]any{
			"url": "https://alice.example/posts/1",
		}))
		require.NoError(t, err)
		require.True(t, result.IsError)
	})
}

func TestDeleteAndUndeletePost(t *testing.T) {
	ts := newToolset()
	site, state := newMicropubSite(t)
	state.status = http.StatusNoContent
	state.location = ""

	result, err := ts.DeletePost(authedContext(site.URL, ""), toolRequest(map[string]any{
		"url": "https://alice.example/posts/1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(state.lastBody, &payload))
	require.Equal(t, "delete", payload["action"])

	result, err = ts.UndeletePost(authedContext(site.URL, ""), toolRequest(map[string]any{
		"url": "https://alice.example/posts/1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	require.NoError(t, json.Unmarshal(state.lastBody, &payload))
	require.Equal(t, "undelete", payload["action"])
}

func TestGetConfig(t *testing.T) {
	ts := newToolset()
	site, _ := newMicropubSite(t)

	result, err := ts.GetConfig(authedContext(site.URL, ""), toolRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Contains(t, textContent(t, result), "media-endpoint")
}

func TestUploadMedia(t *testing.T) {
	ts := newToolset()

	t.Run("uploads to the media endpoint", func(t *testing.T) {
		media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", "https://alice.example/media/pic.jpg")
			w.WriteHeader(http.StatusCreated)
		}))
		defer media.Close()

		result, err := ts.UploadMedia(authedContext("https://unused.example/micropub", media.URL), toolRequest(map[string]any{
			"filename":     "pic.jpg",
			"content_type": "image/jpeg",
			"data":         base64.StdEncoding.EncodeToString([]byte("fake-jpeg-bytes")),
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		require.Contains(t, textContent(t, result), "https://alice.example/media/pic.jpg")
	})

	t.Run("rejects bad base64", func(t *testing.T) {
		result, err := ts.UploadMedia(authedContext("https://unused.example/micropub", "https://media.example"), toolRequest(map[string]any{
			"filename":     "pic.jpg",
			"content_type": "image/jpeg",
			"data":         "!!!not-base64!!!",
		}))
		require.NoError(t, err)
		require.True(t, result.IsError)
	})

	t.Run("requires a media endpoint", func(t *testing.T) {
		result, err := ts.UploadMedia(authedContext("https://unused.example/micropub", ""), toolRequest(map[string]any{
			"filename":     "pic.jpg",
			"content_type": "image/jpeg",
			"data":         base64.StdEncoding.EncodeToString([]byte("x")),
		}))
		require.NoError(t, err)
		require.True(t, result.IsError)
	})
}

func TestCreatePostSplitsCategoryList(t *testing.T) {
	ts := newToolset()
	site, state := newMicropubSite(t)

	result, err := ts.CreatePost(authedContext(site.URL, ""), toolRequest(map[string]any{
		"content":  "x",
		"category": "a, b,,  ",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(state.lastBody, &payload))
	properties := payload["properties"].(map[string]any)
	require.Equal(t, []any{"a", "b"}, properties["category"])
}
