package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// deliver sends webhook notifications for a to all configured targets.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(ctx context.Context, a Alert) {
	for _, wh := range e.cfg.Webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(ctx, url, a)
		case "http":
			err = e.sendHTTP(ctx, url, a)
		default:
			e.logger.Warn("unknown webhook type, skipping", "type", wh.Type)
			continue
		}
		if err != nil {
			e.metrics.AlertErrors.Inc()
			e.logger.Error("webhook delivery failed", "type", wh.Type, "error", err)
		}
	}
}

// sendSlack posts a Slack incoming-webhook payload.
func (e *Engine) sendSlack(ctx context.Context, url string, a Alert) error {
	text := fmt.Sprintf("[%s] %s moved from %s to %s (snapshot %s)",
		a.Severity, a.StateName, a.From, a.To, a.FetchedAt.Format("2006-01-02"))
	return e.post(ctx, url, map[string]string{"text": text})
}

// sendHTTP posts the alert as raw JSON.
func (e *Engine) sendHTTP(ctx context.Context, url string, a Alert) error {
	return e.post(ctx, url, a)
}

func (e *Engine) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
