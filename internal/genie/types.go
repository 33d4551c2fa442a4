package genie

import "github.com/mosaicworks/geniebridge/internal/await"

// Rating is the single owned feedback enumeration. The wire representation
// happens to match the Genie API's strings; translation stays in this package.
type Rating string

const (
	RatingPositive Rating = "POSITIVE"
	RatingNegative Rating = "NEGATIVE"
	RatingNone     Rating = "NONE"
)

// Room is a Genie space users pick to scope their questions.
type Room struct {
	ID   string `json:"space_id"`
	Name string `json:"title"`
}

// PendingMessage identifies one in-flight Genie request. It is handed to the
// completion poller and discarded once the exchange resolves.
type PendingMessage struct {
	RoomID         string
	ConversationID string
	MessageID      string
}

type TextAttachment struct {
	Content string `json:"content"`
}

type QueryAttachment struct {
	Description string `json:"description"`
	Query       string `json:"query"`
}

type Attachment struct {
	AttachmentID string           `json:"attachment_id"`
	Text         *TextAttachment  `json:"text,omitempty"`
	Query        *QueryAttachment `json:"query,omitempty"`
}

// MessageError is the failure detail a FAILED message carries.
type MessageError struct {
	Type    string `json:"type"`
	Message string `json:"error"`
}

// Message is the Genie message resource as returned by get-message.
type Message struct {
	ID             string        `json:"id"`
	MessageID      string        `json:"message_id"`
	ConversationID string        `json:"conversation_id"`
	SpaceID        string        `json:"space_id"`
	Status         string        `json:"status"`
	Error          *MessageError `json:"error,omitempty"`
	Attachments    []Attachment  `json:"attachments"`
}

// PollStatus collapses the Genie status vocabulary into the poller's
// three-valued protocol. Everything non-terminal counts as running.
func (m *Message) PollStatus() await.Status {
	if m == nil {
		return await.StatusRunning
	}
	switch m.Status {
	case "COMPLETED":
		return await.StatusCompleted
	case "FAILED", "CANCELLED", "QUERY_RESULT_EXPIRED":
		return await.StatusFailed
	default:
		return await.StatusRunning
	}
}

type resultColumn struct {
	Name string `json:"name"`
}

type resultSchema struct {
	Columns []resultColumn `json:"columns"`
}

type resultManifest struct {
	Schema resultSchema `json:"schema"`
}

type resultData struct {
	DataArray [][]string `json:"data_array"`
}

type statementResponse struct {
	Manifest resultManifest `json:"manifest"`
	Result   resultData     `json:"result"`
}

type queryResultEnvelope struct {
	StatementResponse statementResponse `json:"statement_response"`
}

// QueryResult is the tabular payload behind a query attachment.
type QueryResult struct {
	Columns []string
	Rows    [][]string
}
