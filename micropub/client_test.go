package micropub_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/indiemcp/micropub-bridge/micropub"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	return payload
}

func TestCreateEntry(t *testing.T) {
	t.Run("scalar content is array-normalized and 201 yields location", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))

			payload := decodeBody(t, r)
			require.Equal(t, []any{"h-entry"}, payload["type"])
			properties := payload["properties"].(map[string]any)
			require.Equal(t, []any{"Hello"}, properties["content"])

			w.Header().Set("Location", "https://user.example/posts/1")
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client := micropub.NewClient(srv.URL, "token-1", micropub.WithHTTPClient(srv.Client()))
		result, err := client.CreateEntry(context.Background(), map[string]any{"content": "Hello"})
		require.NoError(t, err)
		require.Equal(t, "https://user.example/posts/1", result.Location)
	})

	t.Run("array values pass through", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			properties := decodeBody(t, r)["properties"].(map[string]any)
			require.Equal(t, []any{"go", "indieweb"}, properties["category"])
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		client := micropub.NewClient(srv.URL, "token-1", micropub.WithHTTPClient(srv.Client()))
		_, err := client.CreateEntry(context.Background(), map[string]any{"category": []string{"go", "indieweb"}})
		require.NoError(t, err)
	})

	t.Run("error body message precedence", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":"insufficient_scope","error_description":"Missing create scope"}`)
		}))
		defer srv.Close()

		client := micropub.NewClient(srv.URL, "token-1", micropub.WithHTTPClient(srv.Client()))
		_, err := client.CreateEntry(context.Background(), map[string]any{"content": "Hello"})
		var opErr *micropub.OperationError
		require.ErrorAs(t, err, &opErr)
		require.Equal(t, "Missing create scope", opErr.Message)
		require.Equal(t, http.StatusForbidden, opErr.StatusCode)
	})

	t.Run("plain error body falls back to status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "boom")
		}))
		defer srv.Close()

		client := micropub.NewClient(srv.URL, "token-1", micropub.WithHTTPClient(srv.Client()))
		_, err := client.CreateEntry(context.Background(), map[string]any{"content": "Hello"})
		require.EqualError(t, err, "HTTP 500")
	})
}

func TestUpdateEntry(t *testing.T) {
	t.Run("replace and add are normalized, delete names pass through", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload := decodeBody(t, r)
			require.Equal(t, "update", payload["action"])
			require.Equal(t, "https://user.example/posts/1", payload["url"])

			replace := payload["replace"].(map[string]any)
			require.Equal(t, []any{"New title"}, replace["name"])
			add := payload["add"].(map[string]any)
			require.Equal(t, []any{"golang"}, add["category"])
			require.Equal(t, []any{"summary"}, payload["delete"])

			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		client := micropub.NewClient(srv.URL, "token-1", micropub.WithHTTPClient(srv.Client()))
		_, err := client.UpdateEntry(context.Background(), "https://user.example/posts/1", micropub.Update{
			Replace: map[string]any{"name": "New title"},
			Add:     map[string]any{"category": "golang"},
			Delete:  []string{"summary"},
		})
		require.NoError(t, err)
	})

	t.Run("per-value delete map is normalized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload := decodeBody(t, r)
			del := payload["delete"].(map[string]any)
			require.Equal(t, []any{"golang"}, del["category"])
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		client := micropub.NewClient(srv.URL, "token-1", micropub.WithHTTPClient(srv.Client()))
		_, err := client.UpdateEntry(context.Background(), "https://user.example/posts/1", micropub.Update{
			Delete: map[string]any{"category": "golang"},
		})
		require.NoError(t, err)
	})
}

func TestDeleteAndUndelete(t *testing.T) {
	var lastAction string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(t, r)
		lastAction = payload["action"].(string)
		require.Equal(t, "https://user.example/posts/1", payload["url"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := micropub.NewClient(srv.URL, "token-1", micropub.WithHTTPClient(srv.Client()))

	_, err := client.DeleteEntry(context.Background(), "https://user.example/posts/1")
	require.NoError(t, err)
	require.Equal(t, "delete", lastAction)

	_, err = client.UndeleteEntry(context.Background(), "https://user.example/posts/1")
	require.NoError(t, err)
	require.Equal(t, "undelete", lastAction)
}

func TestQuery(t *testing.T) {
	t.Run("config query", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "config", r.URL.Query().Get("q"))
			require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"media-endpoint":"https://user.example/media"}`)
		}))
		defer srv.Close()

		client := micropub.NewClient(srv.URL, "token-1", micropub.WithHTTPClient(srv.Client()))
		config, err := client.GetConfig(context.Background())
		require.NoError(t, err)
		require.Equal(t, "https://user.example/media", config["media-endpoint"])
	})

	t.Run("source query with properties filter", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "source", r.URL.Query().Get("q"))
			require.Equal(t, "https://user.example/posts/1", r.URL.Query().Get("url"))
			require.Equal(t, "content,name", r.URL.Query().Get("properties[]"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"properties":{"content":["Hello"]}}`)
		}))
		defer srv.Close()

		client := micropub.NewClient(srv.URL, "token-1", micropub.WithHTTPClient(srv.Client()))
		source, err := client.GetSource(context.Background(), "https://user.example/posts/1", []string{"content", "name"})
		require.NoError(t, err)
		require.Contains(t, source, "properties")
	})

	t.Run("non-2xx query fails with endpoint message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"unauthorized"}`)
		}))
		defer srv.Close()

		client := micropub.NewClient(srv.URL, "bad-token", micropub.WithHTTPClient(srv.Client()))
		_, err := client.GetConfig(context.Background())
		require.EqualError(t, err, "unauthorized")
	})
}

func TestUploadMedia(t *testing.T) {
	t.Run("multipart upload returns location", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()

			require.Equal(t, "photo.jpg", header.Filename)
			data, err := io.ReadAll(file)
			require.NoError(t, err)
			require.Equal(t, []byte{0xFF, 0xD8, 0xFF}, data)

			w.Header().Set("Location", "https://user.example/media/photo.jpg")
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client := micropub.NewClient("https://unused.example/micropub", "token-1",
			micropub.WithHTTPClient(srv.Client()),
			micropub.WithMediaEndpoint(srv.URL),
		)
		result, err := client.UploadMedia(context.Background(), "photo.jpg", "image/jpeg", []byte{0xFF, 0xD8, 0xFF})
		require.NoError(t, err)
		require.Equal(t, "https://user.example/media/photo.jpg", result.Location)
	})

	t.Run("missing media endpoint fails", func(t *testing.T) {
		client := micropub.NewClient("https://user.example/micropub", "token-1")
		_, err := client.UploadMedia(context.Background(), "photo.jpg", "image/jpeg", []byte{1})
		require.Error(t, err)
		require.Contains(t, err.Error(), "media endpoint")
	})
}
