package genie

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mosaicworks/geniebridge/internal/await"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(ClientOptions{Host: srv.URL, Token: "dapi-test"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, srv
}

func TestStartConversation(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		writeJSON(w, map[string]string{
			"conversation_id": "conv-1",
			"message_id":      "msg-1",
		})
	}))

	pending, err := client.StartConversation(context.Background(), "room-1", "how many widgets?")
	if err != nil {
		t.Fatalf("StartConversation() error = %v", err)
	}
	if gotPath != "/api/2.0/genie/spaces/room-1/start-conversation" {
		t.Fatalf("path mismatch: got %q", gotPath)
	}
	if gotAuth != "Bearer dapi-test" {
		t.Fatalf("auth mismatch: got %q", gotAuth)
	}
	if gotBody["content"] != "how many widgets?" {
		t.Fatalf("body content mismatch: got %q", gotBody["content"])
	}
	want := PendingMessage{RoomID: "room-1", ConversationID: "conv-1", MessageID: "msg-1"}
	if pending != want {
		t.Fatalf("pending mismatch: got %+v want %+v", pending, want)
	}
}

func TestCreateMessageUsesMessageResourceID(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"id":              "msg-2",
			"conversation_id": "conv-1",
			"status":          "SUBMITTED",
		})
	}))

	pending, err := client.CreateMessage(context.Background(), "room-1", "conv-1", "and by region?")
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	if pending.MessageID != "msg-2" {
		t.Fatalf("message_id mismatch: got %q want %q", pending.MessageID, "msg-2")
	}
}

func TestGetMessagePollStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		apiStatus string
		want      await.Status
	}{
		{"SUBMITTED", await.StatusRunning},
		{"EXECUTING_QUERY", await.StatusRunning},
		{"COMPLETED", await.StatusCompleted},
		{"FAILED", await.StatusFailed},
		{"CANCELLED", await.StatusFailed},
	}
	for _, tc := range cases {
		status := tc.apiStatus
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"id": "msg-1", "status": status})
		}))
		msg, err := client.GetMessage(context.Background(), "room-1", "conv-1", "msg-1")
		if err != nil {
			t.Fatalf("GetMessage(%s) error = %v", status, err)
		}
		if got := msg.PollStatus(); got != tc.want {
			t.Fatalf("PollStatus(%s) mismatch: got %q want %q", status, got, tc.want)
		}
	}
}

func TestGetQueryResult(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.0/genie/spaces/room-1/conversations/conv-1/messages/msg-1/attachments/att-1/query-result" {
			t.Errorf("path mismatch: got %q", r.URL.Path)
		}
		writeJSON(w, map[string]any{
			"statement_response": map[string]any{
				"manifest": map[string]any{
					"schema": map[string]any{
						"columns": []map[string]string{{"name": "region"}, {"name": "total"}},
					},
				},
				"result": map[string]any{
					"data_array": [][]string{{"emea", "120"}, {"apac", "77"}},
				},
			},
		})
	}))

	result, err := client.GetQueryResult(context.Background(), "room-1", "conv-1", "msg-1", "att-1")
	if err != nil {
		t.Fatalf("GetQueryResult() error = %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "region" || result.Columns[1] != "total" {
		t.Fatalf("columns mismatch: got %v", result.Columns)
	}
	if len(result.Rows) != 2 || result.Rows[1][0] != "apac" {
		t.Fatalf("rows mismatch: got %v", result.Rows)
	}
}

func TestListRoomsPaginates(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_token") == "" {
			writeJSON(w, map[string]any{
				"spaces":          []map[string]string{{"space_id": "s1", "title": "Sales"}},
				"next_page_token": "p2",
			})
			return
		}
		writeJSON(w, map[string]any{
			"spaces": []map[string]string{{"space_id": "s2", "title": "Finance"}},
		})
	}))

	rooms, err := client.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms() error = %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("room count mismatch: got %d want 2", len(rooms))
	}
	if rooms[0].ID != "s1" || rooms[1].Name != "Finance" {
		t.Fatalf("rooms mismatch: got %+v", rooms)
	}
}

func TestSendFeedbackBody(t *testing.T) {
	t.Parallel()

	var gotBody map[string]map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.SendFeedback(context.Background(), "room-1", "conv-1", "msg-1", RatingNegative); err != nil {
		t.Fatalf("SendFeedback() error = %v", err)
	}
	if gotBody["feedback"]["rating"] != "NEGATIVE" {
		t.Fatalf("rating mismatch: got %q want NEGATIVE", gotBody["feedback"]["rating"])
	}
}

func TestSendFeedbackRejectsUnknownRating(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	if err := client.SendFeedback(context.Background(), "room-1", "conv-1", "msg-1", Rating("MEH")); err == nil {
		t.Fatalf("SendFeedback() expected error for unknown rating")
	}
}

func TestAPIErrorSurfacesStatus(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_code":"PERMISSION_DENIED"}`, http.StatusForbidden)
	}))
	_, err := client.GetMessage(context.Background(), "room-1", "conv-1", "msg-1")
	if err == nil {
		t.Fatalf("GetMessage() expected error for http 403")
	}
}
