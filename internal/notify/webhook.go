package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
)

// maxErrorBody bounds how much of a failed response lands in the error.
const maxErrorBody = 1024

// WebhookNotifier posts day snapshots to a fixed webhook endpoint. Nothing
// is awaited beyond the response status.
type WebhookNotifier struct {
	URL        string
	HTTPClient *http.Client
	Log        *slog.Logger
}

func NewWebhookNotifier(url string, httpClient *http.Client, log *slog.Logger) *WebhookNotifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &WebhookNotifier{URL: url, HTTPClient: httpClient, Log: log}
}

func (n *WebhookNotifier) SendDaySnapshot(ctx context.Context, snap types.DaySnapshot) error {
	url := strings.TrimSpace(n.URL)
	if url == "" {
		return errors.New("webhook url is required")
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("webhook http status=%d body=%q", resp.StatusCode, string(raw))
	}

	n.Log.Debug("day snapshot delivered",
		slog.String("kind", snap.Kind),
		slog.String("date", snap.Date),
		slog.Int("entries", len(snap.Entries)))
	return nil
}

// Disabled is a notifier that drops every snapshot; used when no webhook is
// configured.
type Disabled struct{}

func (Disabled) SendDaySnapshot(context.Context, types.DaySnapshot) error { return nil }
