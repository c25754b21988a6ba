package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardscan/internal/config"
)

const userAgent = "cardscan/0.1.0"

// Service defines the notification surface used by the card service.
type Service interface {
	NotifyScanCompleted(ctx context.Context, requestID string, submitted, failed int) error
	NotifyCardsAdded(ctx context.Context, added, failed int) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyScanCompleted(ctx context.Context, requestID string, submitted, failed int) error {
	data := payload{
		title:   "cardscan - Scan Complete",
		message: fmt.Sprintf("Scanned %d images: %d resolved", submitted, submitted-failed),
		tags:    []string{"cardscan", "scan", "completed"},
	}
	if failed > 0 {
		data.title = "cardscan - Scan Complete (with failures)"
		data.message = fmt.Sprintf("Scanned %d images: %d resolved, %d failed", submitted, submitted-failed, failed)
		data.tags = []string{"cardscan", "scan", "warning"}
	}
	if requestID = strings.TrimSpace(requestID); requestID != "" {
		data.message += "\nRequest: " + requestID
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCardsAdded(ctx context.Context, added, failed int) error {
	data := payload{
		title:   "cardscan - Collection Updated",
		message: fmt.Sprintf("Added %d cards to the collection", added),
		tags:    []string{"cardscan", "ledger", "added"},
	}
	if failed > 0 {
		data.title = "cardscan - Collection Updated (with errors)"
		data.message = fmt.Sprintf("Added %d cards to the collection, %d rejected", added, failed)
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyScanCompleted(context.Context, string, int, int) error { return nil }
func (noopService) NotifyCardsAdded(context.Context, int, int) error            { return nil }
