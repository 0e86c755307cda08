package chat

import (
	"context"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"
)

// SlackAdapter bridges Slack messages to Service.HandleMessage and posts
// replies back to the originating channel/thread: inbound text drives
// HandleMessage, and Deliver lets scheduled-task output reach a channel
// outside of any inbound request.
type SlackAdapter struct {
	api *goslack.Client
	service *Service
	logger *slog.Logger
}

// NewSlackAdapter creates an adapter backed by a real Slack API token.
func NewSlackAdapter(token string, service *Service) *SlackAdapter {
	return &SlackAdapter{
		api: goslack.New(token),
		service: service,
		logger: slog.Default().With("component", "chat-slack-adapter"),
	}
}

// HandleEvent processes one inbound Slack message event, replying in the
// same channel (and thread, if the message started one).
func (a *SlackAdapter) HandleEvent(ctx context.Context, channel, user, text, threadTS string) {
	msg := Message{Channel: channel, SenderID: user, Text: text, PeerKind: "slack", ThreadID: threadTS}
	sessionKey := channel
	if threadTS != "" {
		sessionKey = channel + ":" + threadTS
	}

	reply, err := a.service.HandleMessage(ctx, sessionKey, msg, func(update string) {
		if err := a.post(ctx, channel, threadTS, update); err != nil {
			a.logger.Warn("posting progress update failed", "error", err)
		}
	})
	if err != nil {
		a.logger.Error("chat handling failed", "error", err)
		reply = "Sorry, something went wrong: " + err.Error()
	}
	if reply == "" {
		return
	}
	if err := a.post(ctx, channel, threadTS, reply); err != nil {
		a.logger.Error("posting reply failed", "error", err)
	}
}

// Deliver implements Notifier for scheduled-task output.
func (a *SlackAdapter) Deliver(ctx context.Context, channel, _ string, text string) error {
	return a.post(ctx, channel, "", text)
}

func (a *SlackAdapter) post(ctx context.Context, channel, threadTS, text string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := []goslack.MsgOption{goslack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, goslack.MsgOptionTS(threadTS))
	}
	_, _, err := a.api.PostMessageContext(ctx, channel, opts...)
	return err
}
