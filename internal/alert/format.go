package alert

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type pdDetails struct {
	RunID       string            `json:"run_id"`
	Step        int               `json:"step"`
	Label       string            `json:"label"`
	Probability float64           `json:"probability"`
	Evidence    map[string]string `json:"evidence"`
}

type pdPayload struct {
	Summary       string    `json:"summary"`
	Severity      string    `json:"severity"`
	Source        string    `json:"source"`
	Timestamp     string    `json:"timestamp,omitempty"`
	CustomDetails pdDetails `json:"custom_details"`
}

type pdEvent struct {
	RoutingKey  string    `json:"routing_key,omitempty"`
	EventAction string    `json:"event_action"`
	DedupKey    string    `json:"dedup_key,omitempty"`
	Payload     pdPayload `json:"payload"`
}

// FormatPayload builds the request body for cfg.Format. Unknown formats
// send the event as is.
func FormatPayload(cfg AlertConfig, event AlertEvent) ([]byte, error) {
	var body any = event
	switch cfg.Format {
	case "slack":
		body = slackBody(event)
	case "pagerduty":
		body = pagerDutyBody(cfg, event)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("alert: encode %s payload: %w", cfg.Format, err)
	}
	return data, nil
}

func slackBody(event AlertEvent) map[string][]slackBlock {
	md := func(format string, args ...any) slackText {
		return slackText{Type: "mrkdwn", Text: fmt.Sprintf(format, args...)}
	}
	return map[string][]slackBlock{"blocks": {
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "hazardwatch: " + event.Label}},
		{Type: "section", Fields: []slackText{
			md("*Step:* %d", event.Step),
			md("*Probability:* %.3f", event.Probability),
			md("*Alarm:* %t", event.Alarm),
			md("*Evidence:* %s", evidenceLine(event.Evidence)),
		}},
	}}
}

func pagerDutyBody(cfg AlertConfig, event AlertEvent) pdEvent {
	ev := pdEvent{
		RoutingKey:  cfg.RoutingKey,
		EventAction: "trigger",
		Payload: pdPayload{
			Summary:   fmt.Sprintf("hazardwatch %s: p=%.3f at step %d", event.Label, event.Probability, event.Step),
			Severity:  pagerDutySeverity(event),
			Source:    "hazardwatch",
			Timestamp: event.Timestamp,
			CustomDetails: pdDetails{
				RunID:       event.RunID,
				Step:        event.Step,
				Label:       event.Label,
				Probability: event.Probability,
				Evidence:    event.Evidence,
			},
		},
	}
	// One incident per run; later steps update it.
	if event.RunID != "" {
		ev.DedupKey = "hazardwatch/" + event.RunID
	}
	return ev
}

// pagerDutySeverity maps the fuzzy severity rank onto PagerDuty levels.
func pagerDutySeverity(event AlertEvent) string {
	switch {
	case event.Severity >= 3:
		return "critical"
	case event.Severity == 2:
		return "error"
	case event.Severity == 1, event.Alarm:
		return "warning"
	}
	return "info"
}

func evidenceLine(ev map[string]string) string {
	keys := make([]string, 0, len(ev))
	for k := range ev {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k + "=" + ev[k])
	}
	return b.String()
}
