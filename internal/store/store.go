// Package store persists the two mappings the bridge depends on: Slack
// thread -> Genie conversation, and Slack reply message -> Genie message
// (for reaction feedback). Backends are interchangeable; the orchestrator
// never knows which one it is talking to.
package store

import "context"

// ConversationRecord tracks the room selection and, once the first exchange
// completes, the Genie conversation bound to a Slack thread.
type ConversationRecord struct {
	ThreadTS       string `gorm:"primaryKey;type:text"`
	RoomID         string `gorm:"type:text;not null"`
	RoomName       string `gorm:"type:text;not null"`
	ConversationID string `gorm:"type:text"`

	CreatedAt int64 `gorm:"autoCreateTime"`
	UpdatedAt int64 `gorm:"autoUpdateTime"`
}

func (ConversationRecord) TableName() string {
	return SchemaName + ".conversation_tracker"
}

// MessageFeedbackRecord maps one posted Slack reply to the Genie message it
// rendered, so a later reaction can be turned into a feedback call.
type MessageFeedbackRecord struct {
	ChannelID string `gorm:"primaryKey;type:text"`
	MessageTS string `gorm:"primaryKey;type:text"`

	RoomID         string `gorm:"type:text;not null"`
	ConversationID string `gorm:"type:text;not null"`
	MessageID      string `gorm:"type:text;not null"`

	CreatedAt int64 `gorm:"autoCreateTime"`
}

func (MessageFeedbackRecord) TableName() string {
	return SchemaName + ".message_tracker"
}

// SchemaName is the dedicated Postgres namespace for the tracker tables.
const SchemaName = "geniebridge"

// Store is the state contract shared by both backends. Reads report a
// missing record as (nil, nil); backends degrade read failures to absent.
// Write failures always surface to the caller.
type Store interface {
	GetConversation(ctx context.Context, threadTS string) (*ConversationRecord, error)
	// SetConversation creates or overwrites the room fields for a thread.
	// An existing ConversationID is preserved.
	SetConversation(ctx context.Context, threadTS, roomID, roomName string) error
	// UpdateConversationID is a no-op (not an error) when the thread is unknown.
	UpdateConversationID(ctx context.Context, threadTS, conversationID string) error
	DeleteConversation(ctx context.Context, threadTS string) error
	ClearAll(ctx context.Context) error

	// SetMessageFeedback is an idempotent upsert keyed by (channel, ts).
	SetMessageFeedback(ctx context.Context, channelID, messageTS, roomID, conversationID, messageID string) error
	GetMessageFeedback(ctx context.Context, channelID, messageTS string) (*MessageFeedbackRecord, error)
	DeleteMessageFeedback(ctx context.Context, channelID, messageTS string) error
}
