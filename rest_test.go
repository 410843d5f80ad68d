package scatter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestREST(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newRESTClient("test-token", srv.URL, srv.Client(), testLogger())
}

func TestREST_AuthorizationHeader(t *testing.T) {
	var gotAuth string
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})

	_, err := r.GetSpaces(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer test-token", gotAuth)
}

func TestREST_SendMessageBody(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody map[string]any
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		gotContentType = req.Header.Get("Content-Type")
		data, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
		w.Write([]byte(`{"id": "m1", "content": "hi"}`))
	})

	data, err := r.SendMessage(context.Background(), "s1", "c1", "hi", &SendMessageOptions{
		ReplyTo: "m0",
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"id": "m1", "content": "hi"}`, string(data))

	require.Equal(t, "/spaces/s1/channels/c1/messages", gotPath)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, "hi", gotBody["content"])
	require.Equal(t, "m0", gotBody["reply_to"])
	require.NotContains(t, gotBody, "attachment_ids")
}

func TestREST_GetMessagesQuery(t *testing.T) {
	var gotQuery string
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		gotQuery = req.URL.RawQuery
		w.Write([]byte(`[]`))
	})

	_, err := r.GetMessages(context.Background(), "s1", "c1", &MessageHistoryOptions{
		Before: "m5",
		Limit:  25,
	})
	require.NoError(t, err)
	require.Equal(t, "before=m5&limit=25", gotQuery)
}

func TestREST_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"not found", 404, func(t *testing.T, err error) {
			var nf *NotFoundError
			require.ErrorAs(t, err, &nf)
			require.Equal(t, 404, nf.StatusCode)
		}},
		{"forbidden", 403, func(t *testing.T, err error) {
			var fb *ForbiddenError
			require.ErrorAs(t, err, &fb)
		}},
		{"server error", 500, func(t *testing.T, err error) {
			var he *HTTPError
			require.ErrorAs(t, err, &he)
			require.Equal(t, 500, he.StatusCode)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": "nope"}`))
			})
			_, err := r.GetSpace(context.Background(), "s1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestREST_NoContent(t *testing.T) {
	var gotMethod, gotPath string
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		gotMethod = req.Method
		gotPath = req.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	err := r.DeleteMessage(context.Background(), "s1", "c1", "m1")
	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, gotMethod)
	require.Equal(t, "/spaces/s1/channels/c1/messages/m1", gotPath)
}

func TestREST_ReactionPathEscaping(t *testing.T) {
	var gotPath string
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	})

	err := r.AddReaction(context.Background(), "s1", "c1", "m1", "👍")
	require.NoError(t, err)
	require.Equal(t,
		"/spaces/s1/channels/c1/messages/m1/reactions/%F0%9F%91%8D", gotPath)
}

func TestREST_ContextCancellation(t *testing.T) {
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		<-req.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.GetSpaces(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}
