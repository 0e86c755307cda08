package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type webhookRequest struct {
	Channel string `json:"channel"`
	SenderID string `json:"sender_id"`
	Text string `json:"text"`
	ThreadID string `json:"thread_id,omitempty"`
}

type webhookResponse struct {
	Reply string `json:"reply"`
}

// NewWebhookHandler adapts a generic JSON request/response transport to
// Service.HandleMessage, for chat surfaces that aren't Slack. Progress
// updates aren't streamed back over a synchronous HTTP response — only
// the final reply is returned.
func NewWebhookHandler(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req webhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		if req.Text == "" || req.Channel == "" {
			http.Error(w, "channel and text are required", http.StatusBadRequest)
			return
		}

		msg := Message{Channel: req.Channel, SenderID: req.SenderID, Text: req.Text, PeerKind: "webhook", ThreadID: req.ThreadID}
		sessionKey := req.Channel
		if req.SenderID != "" {
			sessionKey = req.Channel + ":" + req.SenderID
		}

		reply, err := service.HandleMessage(r.Context(), sessionKey, msg, nil)
		if err != nil {
			reply = "error: " + err.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(webhookResponse{Reply: reply})
	}
}

// WebhookNotifier delivers scheduled-task output to a per-channel
// callback URL, since a plain request/response webhook has no standing
// connection of its own to push through otherwise.
type WebhookNotifier struct {
	CallbackURLs map[string]string
	Client *http.Client
}

func (n *WebhookNotifier) Deliver(ctx context.Context, channel, recipientID, text string) error {
	url, ok := n.CallbackURLs[channel]
	if !ok || url == "" {
		return nil
	}
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}

	payload, err := json.Marshal(map[string]string{"channel": channel, "recipient_id": recipientID, "text": text})
	if err != nil {
		return err
	}
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook callback %s returned status %d", url, resp.StatusCode)
	}
	return nil
}
