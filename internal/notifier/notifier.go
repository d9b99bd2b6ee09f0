package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/y0f/sitecheck/internal/aggregate"
	"github.com/y0f/sitecheck/internal/config"
)

const (
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)

// Sender delivers a payload through one channel type.
type Sender interface {
	Type() string
	Send(ctx context.Context, ch config.ChannelConfig, payload *Payload) error
}

// Payload is the run summary posted to every channel.
type Payload struct {
	Event            string    `json:"event"`
	RunID            string    `json:"run_id,omitempty"`
	GeneratedAt      time.Time `json:"generated_at"`
	ScorePercent     float64   `json:"score_percent"`
	TotalChecks      int       `json:"total_checks"`
	Passed           int       `json:"passed"`
	Failed           int       `json:"failed"`
	CriticalFailures []Failure `json:"critical_failures"`
}

type Failure struct {
	Target      string `json:"target"`
	Expectation string `json:"expectation"`
	Observed    string `json:"observed"`
}

// NewPayload summarizes rep. The event is run.failed when the run would
// exit non-zero.
func NewPayload(rep *aggregate.Report) *Payload {
	p := &Payload{
		Event:            EventRunCompleted,
		RunID:            rep.RunID,
		GeneratedAt:      rep.GeneratedAt,
		ScorePercent:     rep.ScorePercent,
		TotalChecks:      rep.TotalChecks,
		Passed:           rep.Passed,
		Failed:           rep.Failed,
		CriticalFailures: make([]Failure, 0, len(rep.CriticalFailures)),
	}
	if rep.ExitCode() != 0 {
		p.Event = EventRunFailed
	}
	for _, r := range rep.CriticalFailures {
		p.CriticalFailures = append(p.CriticalFailures, Failure{
			Target:      r.Target,
			Expectation: r.Expectation.String(),
			Observed:    r.Observed,
		})
	}
	return p
}

// Dispatcher posts run summaries to configured channels.
type Dispatcher struct {
	senders map[string]Sender
	logger  *slog.Logger
}

func NewDispatcher(allowPrivate bool, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Dispatcher{
		senders: make(map[string]Sender),
		logger:  logger,
	}
	d.RegisterSender(&WebhookSender{AllowPrivate: allowPrivate})
	d.RegisterSender(&SlackSender{AllowPrivate: allowPrivate})
	return d
}

func (d *Dispatcher) RegisterSender(s Sender) {
	d.senders[s.Type()] = s
}

// Dispatch sends the summary of rep to each channel in turn and returns how
// many deliveries succeeded. With on == "failure" nothing is sent for a
// passing run. Delivery errors are logged and never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg config.NotifyConfig, rep *aggregate.Report) int {
	if len(cfg.Channels) == 0 {
		return 0
	}
	if cfg.On != "always" && rep.ExitCode() == 0 {
		d.logger.Debug("run passed, skipping notifications")
		return 0
	}

	payload := NewPayload(rep)
	sent := 0
	for i, ch := range cfg.Channels {
		sender, ok := d.senders[ch.Type]
		if !ok {
			d.logger.Warn("no sender for channel type", "type", ch.Type)
			continue
		}
		if err := sender.Send(ctx, ch, payload); err != nil {
			d.logger.Error("notification send failed",
				"channel", i,
				"channel_type", ch.Type,
				"error", err,
			)
			continue
		}
		d.logger.Info("notification sent", "channel", i, "channel_type", ch.Type, "event", payload.Event)
		sent++
	}
	return sent
}

// FormatMessage renders a payload as a short chat message.
func FormatMessage(p *Payload) string {
	var sb strings.Builder
	switch p.Event {
	case EventRunFailed:
		sb.WriteString("[FAIL] ")
	default:
		sb.WriteString("[PASS] ")
	}
	fmt.Fprintf(&sb, "sitecheck run %s: score %.1f%% (%d/%d passed)", p.RunID, p.ScorePercent, p.Passed, p.TotalChecks)
	for _, f := range p.CriticalFailures {
		fmt.Fprintf(&sb, "\n- %s %s: %s", f.Target, f.Expectation, f.Observed)
	}
	return sb.String()
}

func marshalPayload(p *Payload) []byte {
	b, _ := json.Marshal(p)
	return b
}
