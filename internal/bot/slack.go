package bot

import (
	"context"

	"github.com/slack-go/slack"
)

// SlackSender adapts *slack.Client to the Sender interface, collapsing the
// wider return tuples to what the orchestrator uses.
type SlackSender struct {
	api *slack.Client
}

func NewSlackSender(api *slack.Client) *SlackSender {
	return &SlackSender{api: api}
}

func (s *SlackSender) PostMessage(ctx context.Context, channelID string, opts ...slack.MsgOption) (string, error) {
	_, ts, err := s.api.PostMessageContext(ctx, channelID, opts...)
	return ts, err
}

func (s *SlackSender) UpdateMessage(ctx context.Context, channelID, ts string, opts ...slack.MsgOption) error {
	_, _, _, err := s.api.UpdateMessageContext(ctx, channelID, ts, opts...)
	return err
}

func (s *SlackSender) DeleteMessage(ctx context.Context, channelID, ts string) error {
	_, _, err := s.api.DeleteMessageContext(ctx, channelID, ts)
	return err
}

func (s *SlackSender) PostEphemeral(ctx context.Context, channelID, userID string, opts ...slack.MsgOption) error {
	_, err := s.api.PostEphemeralContext(ctx, channelID, userID, opts...)
	return err
}

func (s *SlackSender) UploadFile(ctx context.Context, params slack.UploadFileV2Parameters) error {
	_, err := s.api.UploadFileV2Context(ctx, params)
	return err
}

var _ Sender = (*SlackSender)(nil)
