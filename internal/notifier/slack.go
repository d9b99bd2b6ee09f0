package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/y0f/sitecheck/internal/config"
)

type SlackSender struct {
	AllowPrivate bool
}

func (s *SlackSender) Type() string { return "slack" }

func (s *SlackSender) Send(ctx context.Context, ch config.ChannelConfig, payload *Payload) error {
	if ch.URL == "" {
		return fmt.Errorf("slack url is required")
	}

	text := escapeSlackMrkdwn(FormatMessage(payload))

	msg := map[string]any{
		"text": text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	}
	if ch.Channel != "" {
		msg["channel"] = ch.Channel
	}

	body, _ := json.Marshal(msg)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ch.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return post(newClient(s.AllowPrivate), req, "slack")
}

// escapeSlackMrkdwn neutralizes link and mention syntax in target URLs and
// observed values.
func escapeSlackMrkdwn(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
