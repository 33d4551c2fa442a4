// Package genie is a thin client for the Databricks Genie conversation API.
// It is a direct pass-through: retry and completion-waiting live with the
// caller (internal/await), not here.
package genie

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const apiPrefix = "/api/2.0/genie"

type Client struct {
	http *resty.Client
}

type ClientOptions struct {
	// Host is the workspace base URL, e.g. https://example.cloud.databricks.com.
	Host  string
	Token string
	// HTTPTimeout defaults to 30s.
	HTTPTimeout time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	host := strings.TrimRight(strings.TrimSpace(opts.Host), "/")
	if host == "" {
		return nil, fmt.Errorf("genie host is required")
	}
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, fmt.Errorf("genie token is required")
	}
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(host + apiPrefix).
		SetAuthToken(token).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: httpClient}, nil
}

type startConversationRequest struct {
	Content string `json:"content"`
}

type startConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// StartConversation opens a new Genie conversation in the given room with
// the user's question as the first message.
func (c *Client) StartConversation(ctx context.Context, roomID, question string) (PendingMessage, error) {
	if err := c.ready(); err != nil {
		return PendingMessage{}, err
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return PendingMessage{}, fmt.Errorf("room_id is required")
	}
	if strings.TrimSpace(question) == "" {
		return PendingMessage{}, fmt.Errorf("question is required")
	}
	var out startConversationResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(startConversationRequest{Content: question}).
		SetResult(&out).
		Post(fmt.Sprintf("/spaces/%s/start-conversation", roomID))
	if err != nil {
		return PendingMessage{}, fmt.Errorf("genie start-conversation: %w", err)
	}
	if resp.IsError() {
		return PendingMessage{}, apiError("start-conversation", resp)
	}
	if strings.TrimSpace(out.ConversationID) == "" || strings.TrimSpace(out.MessageID) == "" {
		return PendingMessage{}, fmt.Errorf("genie start-conversation returned empty identifiers")
	}
	return PendingMessage{
		RoomID:         roomID,
		ConversationID: out.ConversationID,
		MessageID:      out.MessageID,
	}, nil
}

// CreateMessage posts a follow-up question into an existing conversation.
func (c *Client) CreateMessage(ctx context.Context, roomID, conversationID, question string) (PendingMessage, error) {
	if err := c.ready(); err != nil {
		return PendingMessage{}, err
	}
	roomID = strings.TrimSpace(roomID)
	conversationID = strings.TrimSpace(conversationID)
	if roomID == "" {
		return PendingMessage{}, fmt.Errorf("room_id is required")
	}
	if conversationID == "" {
		return PendingMessage{}, fmt.Errorf("conversation_id is required")
	}
	if strings.TrimSpace(question) == "" {
		return PendingMessage{}, fmt.Errorf("question is required")
	}
	var out Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(startConversationRequest{Content: question}).
		SetResult(&out).
		Post(fmt.Sprintf("/spaces/%s/conversations/%s/messages", roomID, conversationID))
	if err != nil {
		return PendingMessage{}, fmt.Errorf("genie create-message: %w", err)
	}
	if resp.IsError() {
		return PendingMessage{}, apiError("create-message", resp)
	}
	messageID := strings.TrimSpace(out.ID)
	if messageID == "" {
		messageID = strings.TrimSpace(out.MessageID)
	}
	if messageID == "" {
		return PendingMessage{}, fmt.Errorf("genie create-message returned empty message id")
	}
	return PendingMessage{
		RoomID:         roomID,
		ConversationID: conversationID,
		MessageID:      messageID,
	}, nil
}

// GetMessage fetches the current state of a message, including its status
// and any attachments produced so far.
func (c *Client) GetMessage(ctx context.Context, roomID, conversationID, messageID string) (*Message, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if roomID = strings.TrimSpace(roomID); roomID == "" {
		return nil, fmt.Errorf("room_id is required")
	}
	if conversationID = strings.TrimSpace(conversationID); conversationID == "" {
		return nil, fmt.Errorf("conversation_id is required")
	}
	if messageID = strings.TrimSpace(messageID); messageID == "" {
		return nil, fmt.Errorf("message_id is required")
	}
	var out Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/spaces/%s/conversations/%s/messages/%s", roomID, conversationID, messageID))
	if err != nil {
		return nil, fmt.Errorf("genie get-message: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("get-message", resp)
	}
	return &out, nil
}

// GetQueryResult fetches the tabular result behind a query attachment.
func (c *Client) GetQueryResult(ctx context.Context, roomID, conversationID, messageID, attachmentID string) (*QueryResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if roomID = strings.TrimSpace(roomID); roomID == "" {
		return nil, fmt.Errorf("room_id is required")
	}
	if conversationID = strings.TrimSpace(conversationID); conversationID == "" {
		return nil, fmt.Errorf("conversation_id is required")
	}
	if messageID = strings.TrimSpace(messageID); messageID == "" {
		return nil, fmt.Errorf("message_id is required")
	}
	if attachmentID = strings.TrimSpace(attachmentID); attachmentID == "" {
		return nil, fmt.Errorf("attachment_id is required")
	}
	var out queryResultEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/spaces/%s/conversations/%s/messages/%s/attachments/%s/query-result",
			roomID, conversationID, messageID, attachmentID))
	if err != nil {
		return nil, fmt.Errorf("genie get-query-result: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("get-query-result", resp)
	}
	columns := make([]string, 0, len(out.StatementResponse.Manifest.Schema.Columns))
	for _, col := range out.StatementResponse.Manifest.Schema.Columns {
		columns = append(columns, col.Name)
	}
	return &QueryResult{
		Columns: columns,
		Rows:    out.StatementResponse.Result.DataArray,
	}, nil
}

type listRoomsResponse struct {
	Spaces        []Room `json:"spaces"`
	NextPageToken string `json:"next_page_token"`
}

// ListRooms returns all Genie rooms visible to the token, in API order.
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var rooms []Room
	pageToken := ""
	for {
		req := c.http.R().SetContext(ctx)
		if pageToken != "" {
			req.SetQueryParam("page_token", pageToken)
		}
		var out listRoomsResponse
		resp, err := req.SetResult(&out).Get("/spaces")
		if err != nil {
			return nil, fmt.Errorf("genie list-spaces: %w", err)
		}
		if resp.IsError() {
			return nil, apiError("list-spaces", resp)
		}
		rooms = append(rooms, out.Spaces...)
		pageToken = strings.TrimSpace(out.NextPageToken)
		if pageToken == "" {
			return rooms, nil
		}
	}
}

type feedbackRequest struct {
	Feedback struct {
		Rating string `json:"rating"`
	} `json:"feedback"`
}

// SendFeedback records a rating against a completed Genie message.
func (c *Client) SendFeedback(ctx context.Context, roomID, conversationID, messageID string, rating Rating) error {
	if err := c.ready(); err != nil {
		return err
	}
	if roomID = strings.TrimSpace(roomID); roomID == "" {
		return fmt.Errorf("room_id is required")
	}
	if conversationID = strings.TrimSpace(conversationID); conversationID == "" {
		return fmt.Errorf("conversation_id is required")
	}
	if messageID = strings.TrimSpace(messageID); messageID == "" {
		return fmt.Errorf("message_id is required")
	}
	switch rating {
	case RatingPositive, RatingNegative, RatingNone:
	default:
		return fmt.Errorf("rating is invalid: %q", rating)
	}
	var body feedbackRequest
	body.Feedback.Rating = string(rating)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("/spaces/%s/conversations/%s/messages/%s/feedback", roomID, conversationID, messageID))
	if err != nil {
		return fmt.Errorf("genie send-feedback: %w", err)
	}
	if resp.IsError() {
		return apiError("send-feedback", resp)
	}
	return nil
}

func (c *Client) ready() error {
	if c == nil || c.http == nil {
		return fmt.Errorf("genie client is not initialized")
	}
	return nil
}

func apiError(op string, resp *resty.Response) error {
	body := strings.TrimSpace(string(resp.Body()))
	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		return fmt.Errorf("genie %s http %d", op, resp.StatusCode())
	}
	return fmt.Errorf("genie %s http %d: %s", op, resp.StatusCode(), body)
}
