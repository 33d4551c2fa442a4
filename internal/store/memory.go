package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Memory is the process-local backend for development mode. Nothing survives
// a restart. Operations are individually atomic under a single mutex; Go
// goroutines preempt, so the mutex is load-bearing, not decorative.
type Memory struct {
	mu            sync.Mutex
	conversations map[string]ConversationRecord
	feedback      map[feedbackKey]MessageFeedbackRecord
}

type feedbackKey struct {
	ChannelID string
	MessageTS string
}

func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string]ConversationRecord),
		feedback:      make(map[feedbackKey]MessageFeedbackRecord),
	}
}

func (m *Memory) GetConversation(_ context.Context, threadTS string) (*ConversationRecord, error) {
	threadTS = strings.TrimSpace(threadTS)
	if threadTS == "" {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.conversations[threadTS]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (m *Memory) SetConversation(_ context.Context, threadTS, roomID, roomName string) error {
	threadTS = strings.TrimSpace(threadTS)
	roomID = strings.TrimSpace(roomID)
	if threadTS == "" {
		return fmt.Errorf("thread_ts is required")
	}
	if roomID == "" {
		return fmt.Errorf("room_id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.conversations[threadTS]
	rec.ThreadTS = threadTS
	rec.RoomID = roomID
	rec.RoomName = strings.TrimSpace(roomName)
	m.conversations[threadTS] = rec
	return nil
}

func (m *Memory) UpdateConversationID(_ context.Context, threadTS, conversationID string) error {
	threadTS = strings.TrimSpace(threadTS)
	conversationID = strings.TrimSpace(conversationID)
	if threadTS == "" {
		return fmt.Errorf("thread_ts is required")
	}
	if conversationID == "" {
		return fmt.Errorf("conversation_id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.conversations[threadTS]
	if !ok {
		return nil
	}
	rec.ConversationID = conversationID
	m.conversations[threadTS] = rec
	return nil
}

func (m *Memory) DeleteConversation(_ context.Context, threadTS string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, strings.TrimSpace(threadTS))
	return nil
}

func (m *Memory) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = make(map[string]ConversationRecord)
	m.feedback = make(map[feedbackKey]MessageFeedbackRecord)
	return nil
}

func (m *Memory) SetMessageFeedback(_ context.Context, channelID, messageTS, roomID, conversationID, messageID string) error {
	key, err := newFeedbackKey(channelID, messageTS)
	if err != nil {
		return err
	}
	if strings.TrimSpace(messageID) == "" {
		return fmt.Errorf("message_id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback[key] = MessageFeedbackRecord{
		ChannelID:      key.ChannelID,
		MessageTS:      key.MessageTS,
		RoomID:         strings.TrimSpace(roomID),
		ConversationID: strings.TrimSpace(conversationID),
		MessageID:      strings.TrimSpace(messageID),
	}
	return nil
}

func (m *Memory) GetMessageFeedback(_ context.Context, channelID, messageTS string) (*MessageFeedbackRecord, error) {
	key, err := newFeedbackKey(channelID, messageTS)
	if err != nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.feedback[key]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (m *Memory) DeleteMessageFeedback(_ context.Context, channelID, messageTS string) error {
	key, err := newFeedbackKey(channelID, messageTS)
	if err != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.feedback, key)
	return nil
}

func newFeedbackKey(channelID, messageTS string) (feedbackKey, error) {
	channelID = strings.TrimSpace(channelID)
	messageTS = strings.TrimSpace(messageTS)
	if channelID == "" {
		return feedbackKey{}, fmt.Errorf("channel_id is required")
	}
	if messageTS == "" {
		return feedbackKey{}, fmt.Errorf("message_ts is required")
	}
	return feedbackKey{ChannelID: channelID, MessageTS: messageTS}, nil
}

var _ Store = (*Memory)(nil)
