// Package bot is the event orchestrator: it owns the per-thread state
// machine from room selection to answered question, and routes reactions
// back to Genie as feedback.
package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/slack-go/slack"

	"github.com/mosaicworks/geniebridge/internal/await"
	"github.com/mosaicworks/geniebridge/internal/format"
	"github.com/mosaicworks/geniebridge/internal/genie"
	"github.com/mosaicworks/geniebridge/internal/roomselect"
	"github.com/mosaicworks/geniebridge/internal/store"
)

// Assistant is the slice of the Genie adapter the orchestrator needs.
type Assistant interface {
	StartConversation(ctx context.Context, roomID, question string) (genie.PendingMessage, error)
	CreateMessage(ctx context.Context, roomID, conversationID, question string) (genie.PendingMessage, error)
	GetMessage(ctx context.Context, roomID, conversationID, messageID string) (*genie.Message, error)
	GetQueryResult(ctx context.Context, roomID, conversationID, messageID, attachmentID string) (*genie.QueryResult, error)
	ListRooms(ctx context.Context) ([]genie.Room, error)
	SendFeedback(ctx context.Context, roomID, conversationID, messageID string, rating genie.Rating) error
}

// Sender is the narrow outbound Slack surface; *slack.Client satisfies it
// through the adapter in slack.go, tests use fakes.
type Sender interface {
	PostMessage(ctx context.Context, channelID string, opts ...slack.MsgOption) (ts string, err error)
	UpdateMessage(ctx context.Context, channelID, ts string, opts ...slack.MsgOption) error
	DeleteMessage(ctx context.Context, channelID, ts string) error
	PostEphemeral(ctx context.Context, channelID, userID string, opts ...slack.MsgOption) error
	UploadFile(ctx context.Context, params slack.UploadFileV2Parameters) error
}

// Charter generates a chart image for a tabular answer. Optional.
type Charter interface {
	Enabled() bool
	Generate(ctx context.Context, question string, table *genie.QueryResult) ([]byte, error)
}

const (
	thinkingText    = "Genie is thinking..."
	selectFirstText = "Please select a Genie room first."
	genericErrText  = "Something went wrong talking to Genie. Please try again."
)

type threadKey struct {
	ChannelID string
	ThreadTS  string
}

type Options struct {
	Logger *slog.Logger
	Genie  Assistant
	Store  store.Store
	Sender Sender
	// Charts may be nil; chart generation is best effort.
	Charts Charter
	// Wait overrides the poll budget, zero values take the defaults.
	Wait await.Config
	// DefaultRoom, when its ID is set, binds every new thread to a fixed
	// room instead of presenting the picker.
	DefaultRoom genie.Room
}

type Bot struct {
	log         *slog.Logger
	genie       Assistant
	store       store.Store
	sender      Sender
	charts      Charter
	wait        await.Config
	defaultRoom genie.Room

	mu          sync.Mutex
	provisional map[threadKey]genie.Room
	threadLocks map[threadKey]*sync.Mutex
}

func New(opts Options) (*Bot, error) {
	if opts.Genie == nil {
		return nil, fmt.Errorf("genie client is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		log:         logger,
		genie:       opts.Genie,
		store:       opts.Store,
		sender:      opts.Sender,
		charts:      opts.Charts,
		wait:        opts.Wait,
		defaultRoom: opts.DefaultRoom,
		provisional: make(map[threadKey]genie.Room),
		threadLocks: make(map[threadKey]*sync.Mutex),
	}, nil
}

// lockThread serializes exchanges within one Slack thread. The lock map
// grows with thread count, same trade-off as a per-conversation worker map.
func (b *Bot) lockThread(key threadKey) func() {
	b.mu.Lock()
	lock, ok := b.threadLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		b.threadLocks[key] = lock
	}
	b.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// HandleThreadStarted posts the room picker into a fresh assistant thread.
// It is safe to call again for the same thread; the picker is re-presented.
// With a default room configured the thread is bound to it immediately and
// no picker appears.
func (b *Bot) HandleThreadStarted(ctx context.Context, channelID, threadTS string) error {
	if b.defaultRoom.ID != "" {
		return b.bindDefaultRoom(ctx, channelID, threadTS)
	}
	rooms, err := b.genie.ListRooms(ctx)
	if err != nil {
		b.log.Error("genie_list_rooms_error", "channel_id", channelID, "error", err.Error())
		b.postText(ctx, channelID, threadTS, "Failed to load the Genie room list. Please try again.")
		return err
	}
	_, err = b.sender.PostMessage(ctx, channelID,
		slack.MsgOptionTS(threadTS),
		slack.MsgOptionText("Which Genie room should answer this thread?", false),
		slack.MsgOptionBlocks(roomselect.Blocks(rooms)...),
	)
	if err != nil {
		b.log.Error("room_picker_post_error", "channel_id", channelID, "error", err.Error())
		return err
	}
	b.log.Info("room_picker_posted", "channel_id", channelID, "thread_ts", threadTS, "rooms", len(rooms))
	return nil
}

func (b *Bot) bindDefaultRoom(ctx context.Context, channelID, threadTS string) error {
	if err := b.store.SetConversation(ctx, threadTS, b.defaultRoom.ID, b.defaultRoom.Name); err != nil {
		b.log.Error("store_set_conversation_error", "thread_ts", threadTS, "error", err.Error())
		b.postText(ctx, channelID, threadTS, "Failed to set up this thread. Please try again.")
		return err
	}
	label := b.defaultRoom.Name
	if label == "" {
		label = b.defaultRoom.ID
	}
	b.postText(ctx, channelID, threadTS, fmt.Sprintf("Ask your question; the *%s* Genie room will answer.", label))
	b.log.Info("default_room_bound", "channel_id", channelID, "thread_ts", threadTS, "room_id", b.defaultRoom.ID)
	return nil
}

// HandleRoomSelected records a provisional selection. Nothing is persisted
// until the user confirms; a second selection overwrites the first.
func (b *Bot) HandleRoomSelected(ctx context.Context, channelID, threadTS, roomID, roomName string) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return
	}
	key := threadKey{ChannelID: channelID, ThreadTS: threadTS}
	b.mu.Lock()
	b.provisional[key] = genie.Room{ID: roomID, Name: strings.TrimSpace(roomName)}
	b.mu.Unlock()
	b.log.Debug("room_selected_provisional", "channel_id", channelID, "thread_ts", threadTS, "room_id", roomID)
}

// HandleRoomConfirmed persists the provisional selection. With nothing
// selected yet it nudges the user via an ephemeral notice and stays in the
// same state.
func (b *Bot) HandleRoomConfirmed(ctx context.Context, channelID, threadTS, userID, pickerTS string) error {
	key := threadKey{ChannelID: channelID, ThreadTS: threadTS}
	b.mu.Lock()
	room, ok := b.provisional[key]
	b.mu.Unlock()
	if !ok {
		if err := b.sender.PostEphemeral(ctx, channelID, userID,
			slack.MsgOptionTS(threadTS),
			slack.MsgOptionText("Select a room from the menu first, then press Confirm.", false),
		); err != nil {
			b.log.Warn("ephemeral_post_error", "channel_id", channelID, "error", err.Error())
		}
		return nil
	}

	if err := b.store.SetConversation(ctx, threadTS, room.ID, room.Name); err != nil {
		b.log.Error("store_set_conversation_error", "thread_ts", threadTS, "error", err.Error())
		b.postText(ctx, channelID, threadTS, "Failed to save the room selection. Please try again.")
		return err
	}

	b.mu.Lock()
	delete(b.provisional, key)
	b.mu.Unlock()

	label := room.Name
	if label == "" {
		label = room.ID
	}
	confirmed := fmt.Sprintf("Room *%s* selected. Ask your question in this thread.", label)
	if pickerTS != "" {
		if err := b.sender.UpdateMessage(ctx, channelID, pickerTS,
			slack.MsgOptionText(confirmed, false),
			slack.MsgOptionBlocks(slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, confirmed, false, false), nil, nil)),
		); err != nil {
			b.log.Warn("room_picker_update_error", "channel_id", channelID, "error", err.Error())
		}
	}
	b.log.Info("room_confirmed", "channel_id", channelID, "thread_ts", threadTS, "room_id", room.ID)
	return nil
}

// HandleMessage runs one full question/answer exchange. Side-effect order
// is fixed: placeholder post, Genie calls, placeholder delete, reply post,
// feedback mapping persist.
func (b *Bot) HandleMessage(ctx context.Context, channelID, threadTS, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}
	unlock := b.lockThread(threadKey{ChannelID: channelID, ThreadTS: threadTS})
	defer unlock()

	exchangeID := uuid.NewString()
	b.log.Debug("exchange_started", "exchange_id", exchangeID, "channel_id", channelID, "thread_ts", threadTS)

	rec, err := b.store.GetConversation(ctx, threadTS)
	if err != nil {
		return err
	}
	if rec == nil {
		b.postText(ctx, channelID, threadTS, selectFirstText)
		return nil
	}

	placeholderTS, err := b.sender.PostMessage(ctx, channelID,
		slack.MsgOptionTS(threadTS),
		slack.MsgOptionText(thinkingText, false),
	)
	if err != nil {
		b.log.Error("placeholder_post_error", "channel_id", channelID, "error", err.Error())
		return err
	}

	answer, pending, exchErr := b.runExchange(ctx, threadTS, rec, question)

	b.deleteQuiet(ctx, channelID, placeholderTS)

	if exchErr != nil {
		b.postText(ctx, channelID, threadTS, replyTextForError(exchErr))
		return exchErr
	}

	replyTS, err := b.sender.PostMessage(ctx, channelID,
		slack.MsgOptionTS(threadTS),
		slack.MsgOptionText(answer.Text, false),
		slack.MsgOptionBlocks(answer.Blocks...),
	)
	if err != nil {
		b.log.Error("reply_post_error", "channel_id", channelID, "error", err.Error())
		return err
	}

	b.maybeUploadChart(ctx, channelID, threadTS, question, answer)

	if err := b.store.SetMessageFeedback(ctx, channelID, replyTS, rec.RoomID, pending.ConversationID, pending.MessageID); err != nil {
		b.log.Error("store_set_feedback_error", "channel_id", channelID, "message_ts", replyTS, "error", err.Error())
	}
	b.log.Info("exchange_completed",
		"exchange_id", exchangeID, "channel_id", channelID, "thread_ts", threadTS,
		"conversation_id", pending.ConversationID, "message_id", pending.MessageID)
	return nil
}

// runExchange submits the question, waits for completion, and formats the
// answer. The placeholder lifecycle stays in HandleMessage.
func (b *Bot) runExchange(ctx context.Context, threadTS string, rec *store.ConversationRecord, question string) (format.Answer, genie.PendingMessage, error) {
	var pending genie.PendingMessage
	var err error
	startedConversation := false
	if rec.ConversationID == "" {
		pending, err = b.genie.StartConversation(ctx, rec.RoomID, question)
		if err != nil {
			return format.Answer{}, pending, fmt.Errorf("start conversation: %w", err)
		}
		startedConversation = true
	} else {
		pending, err = b.genie.CreateMessage(ctx, rec.RoomID, rec.ConversationID, question)
		if err != nil {
			return format.Answer{}, pending, fmt.Errorf("create message: %w", err)
		}
		pending.ConversationID = rec.ConversationID
	}

	var final *genie.Message
	check := func(ctx context.Context) (await.Status, error) {
		msg, gerr := b.genie.GetMessage(ctx, rec.RoomID, pending.ConversationID, pending.MessageID)
		if gerr != nil {
			return await.StatusRunning, gerr
		}
		final = msg
		return msg.PollStatus(), nil
	}
	if _, werr := await.Wait(ctx, b.wait, check); werr != nil {
		if errors.Is(werr, await.ErrFailed) && final != nil && final.Error != nil {
			b.log.Warn("genie_message_failed",
				"conversation_id", pending.ConversationID, "message_id", pending.MessageID,
				"error_type", final.Error.Type, "error", final.Error.Message)
		}
		return format.Answer{}, pending, werr
	}

	// The conversation id becomes durable only once the first poll
	// completes; a failed opening exchange leaves the thread unbound so the
	// retry starts a fresh conversation.
	if startedConversation {
		if uerr := b.store.UpdateConversationID(ctx, threadTS, pending.ConversationID); uerr != nil {
			return format.Answer{}, pending, fmt.Errorf("persist conversation id: %w", uerr)
		}
	}

	fetch := func(ctx context.Context, attachmentID string) (*genie.QueryResult, error) {
		return b.genie.GetQueryResult(ctx, rec.RoomID, pending.ConversationID, pending.MessageID, attachmentID)
	}
	answer, err := format.Message(ctx, final, fetch)
	if err != nil {
		return format.Answer{}, pending, err
	}
	return answer, pending, nil
}

func (b *Bot) maybeUploadChart(ctx context.Context, channelID, threadTS, question string, answer format.Answer) {
	if b.charts == nil || !b.charts.Enabled() || answer.Table == nil {
		return
	}
	png, err := b.charts.Generate(ctx, question, answer.Table)
	if err != nil {
		b.log.Warn("chart_generate_error", "channel_id", channelID, "error", err.Error())
		return
	}
	err = b.sender.UploadFile(ctx, slack.UploadFileV2Parameters{
		Filename:        "chart.png",
		FileSize:        len(png),
		Reader:          bytes.NewReader(png),
		Channel:         channelID,
		ThreadTimestamp: threadTS,
	})
	if err != nil {
		b.log.Warn("chart_upload_error", "channel_id", channelID, "error", err.Error())
	}
}

// HandleReactionAdded turns a recognized reaction on a tracked reply into a
// feedback call. Unknown reactions and untracked messages are no-ops.
func (b *Bot) HandleReactionAdded(ctx context.Context, channelID, messageTS, reaction string) {
	rating, ok := ratingForReaction(reaction)
	if !ok {
		return
	}
	b.sendFeedback(ctx, channelID, messageTS, rating)
}

// HandleReactionRemoved resets feedback to NONE when a recognized reaction
// is withdrawn.
func (b *Bot) HandleReactionRemoved(ctx context.Context, channelID, messageTS, reaction string) {
	if _, ok := ratingForReaction(reaction); !ok {
		return
	}
	b.sendFeedback(ctx, channelID, messageTS, genie.RatingNone)
}

func (b *Bot) sendFeedback(ctx context.Context, channelID, messageTS string, rating genie.Rating) {
	rec, err := b.store.GetMessageFeedback(ctx, channelID, messageTS)
	if err != nil || rec == nil {
		return
	}
	if err := b.genie.SendFeedback(ctx, rec.RoomID, rec.ConversationID, rec.MessageID, rating); err != nil {
		b.log.Warn("genie_feedback_error",
			"channel_id", channelID, "message_ts", messageTS,
			"rating", string(rating), "error", err.Error())
		return
	}
	b.log.Info("genie_feedback_sent",
		"channel_id", channelID, "message_ts", messageTS, "rating", string(rating))
}

func ratingForReaction(reaction string) (genie.Rating, bool) {
	switch strings.TrimSpace(reaction) {
	case "+1", "thumbsup":
		return genie.RatingPositive, true
	case "-1", "thumbsdown":
		return genie.RatingNegative, true
	default:
		return genie.RatingNone, false
	}
}

// replyTextForError maps an exchange failure to the user-visible reply. The
// poller sentinels carry their own wording; everything else is generic.
func replyTextForError(err error) string {
	if errors.Is(err, await.ErrFailed) {
		return await.ErrFailed.Error()
	}
	if errors.Is(err, await.ErrTimedOut) {
		return await.ErrTimedOut.Error()
	}
	return genericErrText
}

func (b *Bot) postText(ctx context.Context, channelID, threadTS, text string) {
	if _, err := b.sender.PostMessage(ctx, channelID,
		slack.MsgOptionTS(threadTS),
		slack.MsgOptionText(text, false),
	); err != nil {
		b.log.Warn("text_post_error", "channel_id", channelID, "error", err.Error())
	}
}

func (b *Bot) deleteQuiet(ctx context.Context, channelID, ts string) {
	if ts == "" {
		return
	}
	if err := b.sender.DeleteMessage(ctx, channelID, ts); err != nil {
		b.log.Warn("placeholder_delete_error", "channel_id", channelID, "ts", ts, "error", err.Error())
	}
}
