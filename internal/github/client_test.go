package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/matt1as/noteeverything/internal/errors"
	"github.com/matt1as/noteeverything/internal/models"
)

var repo = models.RepoConfig{Owner: "alice", Repo: "notes-repo", Branch: "main"}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClientAt("test-token", server.URL, server.Client())
}

func TestRead_DecodesBase64WithLineBreaks(t *testing.T) {
	// GitHub wraps base64 content with newlines every 60 characters.
	encoded := base64.StdEncoding.EncodeToString([]byte("hello world"))
	wrapped := encoded[:8] + "\n" + encoded[8:] + "\n"

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/repos/alice/notes-repo/contents/notes/a.md", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("ref"))

		json.NewEncoder(w).Encode(map[string]string{
			"content":  wrapped,
			"encoding": "base64",
			"sha":      "abc123",
		})
	})

	content, sha, err := client.Read(context.Background(), repo, "notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
	assert.Equal(t, "abc123", sha)
}

func TestRead_UnexpectedEncodingFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"content":  "hello",
			"encoding": "utf-8",
			"sha":      "abc",
		})
	})

	_, _, err := client.Read(context.Background(), repo, "notes/a.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected encoding")
}

func TestDo_StatusClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, `{"message":"Not Found"}`, apperrors.ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, `{"message":"Bad credentials"}`, apperrors.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, `{"message":"Forbidden"}`, apperrors.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, `{"message":"rate limit exceeded"}`, apperrors.ErrTransient},
		{"server error", http.StatusBadGateway, `{"message":"upstream"}`, apperrors.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.List(context.Background(), repo, "notes")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDo_OtherStatusCarriesAPIMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"sha does not match"}`))
	})

	_, err := client.List(context.Background(), repo, "notes")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.NotErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.NotErrorIs(t, err, apperrors.ErrTransient)
	assert.Contains(t, err.Error(), "sha does not match")
}

func TestDo_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // refuse all connections

	client := NewClientAt("token", server.URL, nil)

	_, err := client.List(context.Background(), repo, "notes")
	require.ErrorIs(t, err, apperrors.ErrTransient)
}

func TestWrite_CreateOmitsSHA(t *testing.T) {
	var payload map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Write([]byte(`{}`))
	})

	err := client.Write(context.Background(), repo, "notes/a.md", []byte("body"), "Update note: A", "")
	require.NoError(t, err)

	assert.Equal(t, "Update note: A", payload["message"])
	assert.Equal(t, "main", payload["branch"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("body")), payload["content"])

	_, hasSHA := payload["sha"]
	assert.False(t, hasSHA)
}

func TestWrite_UpdateSendsSHA(t *testing.T) {
	var payload map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Write([]byte(`{}`))
	})

	err := client.Write(context.Background(), repo, "notes/a.md", []byte("body"), "Update note: A", "oldsha")
	require.NoError(t, err)
	assert.Equal(t, "oldsha", payload["sha"])
}

func TestDelete_SendsTokenAndMessage(t *testing.T) {
	var payload map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Write([]byte(`{}`))
	})

	err := client.Delete(context.Background(), repo, "notes/a.md", "Delete note a.md", "sha-a")
	require.NoError(t, err)
	assert.Equal(t, "Delete note a.md", payload["message"])
	assert.Equal(t, "sha-a", payload["sha"])
	assert.Equal(t, "main", payload["branch"])
}

func TestListAll_RecursesIntoSubdirectories(t *testing.T) {
	listings := map[string][]Entry{
		"notes": {
			{Type: "file", Path: "notes/a.md", Name: "a.md", SHA: "sha-a"},
			{Type: "dir", Path: "notes/sub", Name: "sub"},
		},
		"notes/sub": {
			{Type: "file", Path: "notes/sub/b.md", Name: "b.md", SHA: "sha-b"},
		},
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path[len("/repos/alice/notes-repo/contents/"):]
		entries, ok := listings[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))
			return
		}

		json.NewEncoder(w).Encode(entries)
	})

	files, err := client.ListAll(context.Background(), repo, "notes")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "notes/a.md", files[0].Path)
	assert.Equal(t, "notes/sub/b.md", files[1].Path)
	assert.Equal(t, "sha-b", files[1].SHA)
}

func TestListAll_MissingRootYieldsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	})

	files, err := client.ListAll(context.Background(), repo, "notes")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestList_ToleratesSingleFileResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Entry{Type: "file", Path: "notes/a.md", Name: "a.md", SHA: "s"})
	})

	entries, err := client.List(context.Background(), repo, "notes/a.md")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "notes/a.md", entries[0].Path)
}

func TestContentsURL_EscapesPathSegments(t *testing.T) {
	client := NewClientAt("t", "http://example", nil)

	u := client.contentsURL(repo, "notes/with space.md")
	assert.Contains(t, u, "notes/with%20space.md")
}
