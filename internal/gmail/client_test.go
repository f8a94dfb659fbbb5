package gmail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/senderwatch/internal/mailbox"
)

const apiPrefix = "/gmail/v1/users/me/"

// recordedRequest is a request received by the fake Gmail server.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeGmail struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]http.HandlerFunc // "METHOD path" without the API prefix
}

func newFakeGmail(t *testing.T) (*fakeGmail, *Client) {
	t.Helper()

	fg := &fakeGmail{routes: make(map[string]http.HandlerFunc)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		path := strings.TrimPrefix(r.URL.Path, apiPrefix)

		fg.mu.Lock()
		fg.requests = append(fg.requests, recordedRequest{Method: r.Method, Path: path, Query: r.URL.RawQuery, Body: string(body)})
		h := fg.routes[r.Method+" "+path]
		fg.mu.Unlock()

		if h == nil {
			writeError(w, http.StatusNotFound, "Requested entity was not found.")
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), "me@example.com",
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)

	return fg, client
}

func (fg *fakeGmail) handle(method, path string, h http.HandlerFunc) {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	fg.routes[method+" "+path] = h
}

func (fg *fakeGmail) last() recordedRequest {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return fg.requests[len(fg.requests)-1]
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"code": code, "message": msg},
	})
}

func TestClient_CreateFilter(t *testing.T) {
	fg, client := newFakeGmail(t)
	fg.handle(http.MethodPost, "settings/filters", func(w http.ResponseWriter, r *http.Request) {
		var f gmail.Filter
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f))
		f.Id = "filter-1"
		writeJSON(w, f)
	})

	f, err := client.CreateFilter(context.Background(), mailbox.FilterSpec{
		SenderAddress: "news@example.com",
		LabelID:       "Label_1",
		Archive:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, mailbox.Filter{ID: "filter-1", SenderAddress: "news@example.com", LabelID: "Label_1", Archive: true}, f)

	var sent gmail.Filter
	require.NoError(t, json.Unmarshal([]byte(fg.last().Body), &sent))
	assert.Equal(t, "news@example.com", sent.Criteria.From)
	assert.Equal(t, []string{"INBOX"}, sent.Action.RemoveLabelIds)
	assert.Equal(t, []string{"Label_1"}, sent.Action.AddLabelIds)
}

func TestClient_CreateFilter_ProviderError(t *testing.T) {
	fg, client := newFakeGmail(t)
	fg.handle(http.MethodPost, "settings/filters", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusBadRequest, "Filter already exists")
	})

	_, err := client.CreateFilter(context.Background(), mailbox.FilterSpec{SenderAddress: "news@example.com", Archive: true})
	require.Error(t, err)

	var apiErr *googleapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)
	assert.Contains(t, err.Error(), "Filter already exists")
}

func TestClient_DeleteFilter(t *testing.T) {
	fg, client := newFakeGmail(t)
	fg.handle(http.MethodDelete, "settings/filters/filter-1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteFilter(context.Background(), "filter-1"))

	err := client.DeleteFilter(context.Background(), "missing")
	var apiErr *googleapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
}

func TestClient_ListFiltersAndLabels(t *testing.T) {
	fg, client := newFakeGmail(t)
	fg.handle(http.MethodGet, "settings/filters", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, gmail.ListFiltersResponse{Filter: []*gmail.Filter{
			{Id: "a", Criteria: &gmail.FilterCriteria{From: "news@example.com"}, Action: &gmail.FilterAction{RemoveLabelIds: []string{"INBOX"}}},
			{Id: "b", Criteria: &gmail.FilterCriteria{Query: "has:attachment"}},
		}})
	})
	fg.handle(http.MethodGet, "labels", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, gmail.ListLabelsResponse{Labels: []*gmail.Label{
			{Id: "INBOX", Name: "INBOX", Type: "system"},
			{Id: "Label_1", Name: "Newsletters", Type: "user"},
		}})
	})

	filters, err := client.ListFilters(context.Background())
	require.NoError(t, err)
	require.Len(t, filters, 2)
	assert.True(t, filters[0].IsAutoArchiveFor("news@example.com"))
	assert.Empty(t, filters[1].SenderAddress)

	labels, err := client.ListLabels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []mailbox.Label{
		{ID: "INBOX", Name: "INBOX", Type: "system"},
		{ID: "Label_1", Name: "Newsletters", Type: "user"},
	}, labels)
}

func TestClient_ListThreads(t *testing.T) {
	fg, client := newFakeGmail(t)
	fg.handle(http.MethodGet, "threads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "from:news@example.com in:inbox", r.URL.Query().Get("q"))
		assert.Equal(t, "false", r.URL.Query().Get("includeSpamTrash"))
		writeJSON(w, gmail.ListThreadsResponse{Threads: []*gmail.Thread{{Id: "t1"}, {Id: "t2"}}})
	})
	fg.handle(http.MethodGet, "threads/t1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, gmail.Thread{Id: "t1", Snippet: "Weekly digest", Messages: []*gmail.Message{
			{
				Id:           "m1",
				LabelIds:     []string{"INBOX", "UNREAD"},
				InternalDate: 1700000000000,
				Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
					{Name: "From", Value: "Newsletter <News@Example.com>"},
					{Name: "Subject", Value: "Digest"},
					{Name: "List-Unsubscribe", Value: "<mailto:u@example.com>, <https://example.com/u>"},
				}},
			},
		}})
	})
	fg.handle(http.MethodGet, "threads/t2", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, gmail.Thread{Id: "t2", Messages: []*gmail.Message{
			{Id: "m2", LabelIds: []string{"TRASH"}, Snippet: "old", Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "news@example.com"},
			}}},
		}})
	})

	threads, err := client.ListThreads(context.Background(), mailbox.ThreadQuery{Sender: "news@example.com", InboxOnly: true})
	require.NoError(t, err)
	require.Len(t, threads, 2)

	assert.Equal(t, "t1", threads[0].ID)
	assert.Equal(t, "news@example.com", threads[0].SenderAddress)
	assert.False(t, threads[0].IsRead)
	assert.False(t, threads[0].IsTrashed)
	assert.Equal(t, "Digest", threads[0].Subject)
	assert.Equal(t, "https://example.com/u", threads[0].UnsubscribeLink)
	assert.Equal(t, int64(1700000000000), threads[0].LastMessageAt.UnixMilli())

	assert.True(t, threads[1].IsRead)
	assert.True(t, threads[1].IsTrashed)
	assert.Equal(t, "old", threads[1].Snippet)
}

func TestClient_SetRead(t *testing.T) {
	fg, client := newFakeGmail(t)
	fg.handle(http.MethodPost, "threads/t1/modify", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, gmail.Thread{Id: "t1"})
	})

	require.NoError(t, client.SetRead(context.Background(), "t1", true))
	var req gmail.ModifyThreadRequest
	require.NoError(t, json.Unmarshal([]byte(fg.last().Body), &req))
	assert.Equal(t, []string{"UNREAD"}, req.RemoveLabelIds)
	assert.Empty(t, req.AddLabelIds)

	require.NoError(t, client.SetRead(context.Background(), "t1", false))
	req = gmail.ModifyThreadRequest{}
	require.NoError(t, json.Unmarshal([]byte(fg.last().Body), &req))
	assert.Equal(t, []string{"UNREAD"}, req.AddLabelIds)
	assert.Empty(t, req.RemoveLabelIds)
}

func TestClient_Trash(t *testing.T) {
	fg, client := newFakeGmail(t)
	fg.handle(http.MethodPost, "threads/t1/trash", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, gmail.Thread{Id: "t1"})
	})

	require.NoError(t, client.Trash(context.Background(), "t1"))
	assert.Equal(t, "threads/t1/trash", fg.last().Path)

	err := client.Trash(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestBuildThreadQuery(t *testing.T) {
	assert.Equal(t, "from:news@example.com", buildThreadQuery(mailbox.ThreadQuery{Sender: "News@Example.com"}))
	assert.Equal(t, "from:news@example.com in:inbox", buildThreadQuery(mailbox.ThreadQuery{Sender: "news@example.com", InboxOnly: true}))
	assert.Equal(t, "", buildThreadQuery(mailbox.ThreadQuery{}))
}

func TestClient_Account(t *testing.T) {
	_, client := newFakeGmail(t)
	assert.Equal(t, "me@example.com", client.Account())
}
