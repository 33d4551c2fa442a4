package store

import (
	"context"
	"testing"
)

// The contract below is shared by both backends; only the memory backend is
// exercised here because it needs no database.

func TestGetConversationAbsent(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	rec, err := s.GetConversation(context.Background(), "1700000000.000100")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if rec != nil {
		t.Fatalf("record mismatch: got %+v want nil", rec)
	}
}

func TestSetConversationPreservesConversationID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemory()
	thread := "1700000000.000100"

	if err := s.SetConversation(ctx, thread, "room-1", "Sales"); err != nil {
		t.Fatalf("SetConversation() error = %v", err)
	}
	if err := s.SetConversation(ctx, thread, "room-1", "Sales"); err != nil {
		t.Fatalf("SetConversation() repeat error = %v", err)
	}
	if err := s.UpdateConversationID(ctx, thread, "conv-9"); err != nil {
		t.Fatalf("UpdateConversationID() error = %v", err)
	}
	// Overwriting room fields must not drop the conversation id.
	if err := s.SetConversation(ctx, thread, "room-2", "Finance"); err != nil {
		t.Fatalf("SetConversation() overwrite error = %v", err)
	}

	rec, err := s.GetConversation(ctx, thread)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if rec == nil {
		t.Fatalf("record missing after set")
	}
	if rec.RoomID != "room-2" || rec.RoomName != "Finance" {
		t.Fatalf("room fields mismatch: got %q/%q want room-2/Finance", rec.RoomID, rec.RoomName)
	}
	if rec.ConversationID != "conv-9" {
		t.Fatalf("conversation_id mismatch: got %q want %q", rec.ConversationID, "conv-9")
	}
}

func TestUpdateConversationIDUnknownThreadIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemory()
	if err := s.UpdateConversationID(ctx, "1700000000.000200", "conv-1"); err != nil {
		t.Fatalf("UpdateConversationID() error = %v", err)
	}
	rec, _ := s.GetConversation(ctx, "1700000000.000200")
	if rec != nil {
		t.Fatalf("record mismatch: got %+v want nil", rec)
	}
}

func TestDeleteAndClearAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemory()
	threads := []string{"1.1", "2.2", "3.3"}
	for _, th := range threads {
		if err := s.SetConversation(ctx, th, "room-1", "Sales"); err != nil {
			t.Fatalf("SetConversation(%s) error = %v", th, err)
		}
	}

	if err := s.DeleteConversation(ctx, "2.2"); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if rec, _ := s.GetConversation(ctx, "2.2"); rec != nil {
		t.Fatalf("deleted record still present: %+v", rec)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	for _, th := range threads {
		if rec, _ := s.GetConversation(ctx, th); rec != nil {
			t.Fatalf("record %s survived ClearAll: %+v", th, rec)
		}
	}
}

func TestMessageFeedbackUpsertAndLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemory()

	if err := s.SetMessageFeedback(ctx, "C01", "1.1", "room-1", "conv-1", "msg-1"); err != nil {
		t.Fatalf("SetMessageFeedback() error = %v", err)
	}
	// Idempotent upsert on the same key.
	if err := s.SetMessageFeedback(ctx, "C01", "1.1", "room-1", "conv-1", "msg-1"); err != nil {
		t.Fatalf("SetMessageFeedback() repeat error = %v", err)
	}

	rec, err := s.GetMessageFeedback(ctx, "C01", "1.1")
	if err != nil {
		t.Fatalf("GetMessageFeedback() error = %v", err)
	}
	if rec == nil || rec.MessageID != "msg-1" || rec.ConversationID != "conv-1" {
		t.Fatalf("feedback record mismatch: got %+v", rec)
	}

	if rec, _ := s.GetMessageFeedback(ctx, "C01", "9.9"); rec != nil {
		t.Fatalf("unexpected record for unknown ts: %+v", rec)
	}

	if err := s.DeleteMessageFeedback(ctx, "C01", "1.1"); err != nil {
		t.Fatalf("DeleteMessageFeedback() error = %v", err)
	}
	if rec, _ := s.GetMessageFeedback(ctx, "C01", "1.1"); rec != nil {
		t.Fatalf("deleted feedback still present: %+v", rec)
	}
}

func TestSetConversationValidation(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	if err := s.SetConversation(context.Background(), "", "room-1", "Sales"); err == nil {
		t.Fatalf("SetConversation() expected error for empty thread_ts")
	}
	if err := s.SetConversation(context.Background(), "1.1", "", "Sales"); err == nil {
		t.Fatalf("SetConversation() expected error for empty room_id")
	}
}
