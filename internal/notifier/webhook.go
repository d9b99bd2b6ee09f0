package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/y0f/sitecheck/internal/config"
	"github.com/y0f/sitecheck/internal/safenet"
)

const sendTimeout = 10 * time.Second

type WebhookSender struct {
	AllowPrivate bool
}

func (s *WebhookSender) Type() string { return "webhook" }

func (s *WebhookSender) Send(ctx context.Context, ch config.ChannelConfig, payload *Payload) error {
	if ch.URL == "" {
		return fmt.Errorf("webhook url is required")
	}

	body := marshalPayload(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ch.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "sitecheck/1.0")

	if ch.Secret != "" {
		mac := hmac.New(sha256.New, []byte(ch.Secret))
		mac.Write(body)
		req.Header.Set("X-Sitecheck-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	return post(newClient(s.AllowPrivate), req, "webhook")
}

func newClient(allowPrivate bool) *http.Client {
	return &http.Client{
		Timeout: sendTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: sendTimeout,
				Control: safenet.MaybeDialControl(allowPrivate),
			}).DialContext,
		},
	}
}

func post(client *http.Client, req *http.Request, kind string) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", kind, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned status %d", kind, resp.StatusCode)
	}
	return nil
}
