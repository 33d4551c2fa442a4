package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/mosaicworks/geniebridge/internal/roomselect"
)

// Runner owns the socket-mode loop and translates raw Slack events into
// orchestrator calls. Each event is handled on its own goroutine; the bot's
// per-thread lock serializes where serialization matters.
type Runner struct {
	log       *slog.Logger
	api       *slack.Client
	socket    *socketmode.Client
	bot       *Bot
	botUserID string
}

type RunnerOptions struct {
	Logger *slog.Logger
	API    *slack.Client
	Socket *socketmode.Client
	Bot    *Bot
}

func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("slack api client is required")
	}
	if opts.Socket == nil {
		return nil, fmt.Errorf("socketmode client is required")
	}
	if opts.Bot == nil {
		return nil, fmt.Errorf("bot is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{log: logger, api: opts.API, socket: opts.Socket, bot: opts.Bot}, nil
}

// Run blocks until the context ends or the socket connection is lost for
// good.
func (r *Runner) Run(ctx context.Context) error {
	auth, err := r.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth.test: %w", err)
	}
	r.botUserID = auth.UserID
	r.log.Info("slack_authenticated", "user_id", auth.UserID, "team", auth.Team)

	go r.handleEvents(ctx)
	return r.socket.RunContext(ctx)
}

func (r *Runner) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-r.socket.Events:
			if !ok {
				return
			}
			r.handleEvent(ctx, evt)
		}
	}
}

func (r *Runner) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		r.log.Info("slack_socket_connecting")
	case socketmode.EventTypeConnected:
		r.log.Info("slack_socket_connected")
	case socketmode.EventTypeConnectionError:
		r.log.Error("slack_socket_connection_error")
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		r.socket.Ack(*evt.Request)
		go r.handleEventsAPI(ctx, apiEvent)
	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			return
		}
		r.socket.Ack(*evt.Request)
		go r.handleInteraction(ctx, callback)
	}
}

func (r *Runner) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.AssistantThreadStartedEvent:
		thread := ev.AssistantThread
		if err := r.bot.HandleThreadStarted(ctx, thread.ChannelID, thread.ThreadTimeStamp); err != nil {
			r.log.Error("thread_started_error", "channel_id", thread.ChannelID, "error", err.Error())
		}
	case *slackevents.MessageEvent:
		r.handleMessage(ctx, ev)
	case *slackevents.ReactionAddedEvent:
		if ev.Item.Type == "message" {
			r.bot.HandleReactionAdded(ctx, ev.Item.Channel, ev.Item.Timestamp, ev.Reaction)
		}
	case *slackevents.ReactionRemovedEvent:
		if ev.Item.Type == "message" {
			r.bot.HandleReactionRemoved(ctx, ev.Item.Channel, ev.Item.Timestamp, ev.Reaction)
		}
	}
}

func (r *Runner) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Own messages, bot messages, and subtypes (edits, deletes) are ignored.
	if ev.User == "" || ev.User == r.botUserID || ev.BotID != "" || ev.SubType != "" {
		return
	}
	threadTS := ev.ThreadTimeStamp
	if threadTS == "" {
		threadTS = ev.TimeStamp
	}
	if err := r.bot.HandleMessage(ctx, ev.Channel, threadTS, ev.Text); err != nil {
		r.log.Error("message_handle_error",
			"channel_id", ev.Channel, "thread_ts", threadTS, "error", err.Error())
	}
}

func (r *Runner) handleInteraction(ctx context.Context, callback slack.InteractionCallback) {
	if callback.Type != slack.InteractionTypeBlockActions {
		return
	}
	channelID := callback.Channel.ID
	threadTS := callback.Container.ThreadTs
	if threadTS == "" {
		threadTS = callback.Message.ThreadTimestamp
	}
	if threadTS == "" {
		threadTS = callback.Message.Timestamp
	}
	for _, action := range callback.ActionCallback.BlockActions {
		if action == nil {
			continue
		}
		switch action.ActionID {
		case roomselect.SelectActionID:
			roomID := action.SelectedOption.Value
			roomName := ""
			if action.SelectedOption.Text != nil {
				roomName = action.SelectedOption.Text.Text
			}
			// A nameless room used its id as the option label.
			if roomName == roomID {
				roomName = ""
			}
			r.bot.HandleRoomSelected(ctx, channelID, threadTS, roomID, roomName)
		case roomselect.ConfirmActionID:
			if err := r.bot.HandleRoomConfirmed(ctx, channelID, threadTS, callback.User.ID, callback.Message.Timestamp); err != nil {
				r.log.Error("room_confirm_error",
					"channel_id", channelID, "thread_ts", threadTS, "error", err.Error())
			}
		default:
			r.log.Debug("interaction_ignored", "action_id", strings.TrimSpace(action.ActionID))
		}
	}
}
