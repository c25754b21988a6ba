package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cardscan/internal/config"
	"cardscan/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyScanCompleted(context.Background(), "req", 3, 1); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).NotifyCardsAdded(context.Background(), 1, 0); err != nil {
		t.Fatalf("nil config should yield noop notifier, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "scan completed",
			send: func(s notifications.Service) error {
				return s.NotifyScanCompleted(context.Background(), "req-1", 4, 0)
			},
			expectTitle:   "cardscan - Scan Complete",
			expectMessage: "Scanned 4 images: 4 resolved\nRequest: req-1",
			expectTags:    "cardscan,scan,completed",
		},
		{
			name: "scan with failures",
			send: func(s notifications.Service) error {
				return s.NotifyScanCompleted(context.Background(), "", 4, 3)
			},
			expectTitle:   "cardscan - Scan Complete (with failures)",
			expectMessage: "Scanned 4 images: 1 resolved, 3 failed",
			expectTags:    "cardscan,scan,warning",
		},
		{
			name: "cards added",
			send: func(s notifications.Service) error {
				return s.NotifyCardsAdded(context.Background(), 2, 0)
			},
			expectTitle:   "cardscan - Collection Updated",
			expectMessage: "Added 2 cards to the collection",
			expectTags:    "cardscan,ledger,added",
		},
		{
			name: "cards rejected",
			send: func(s notifications.Service) error {
				return s.NotifyCardsAdded(context.Background(), 1, 1)
			},
			expectTitle:    "cardscan - Collection Updated (with errors)",
			expectMessage:  "Added 1 cards to the collection, 1 rejected",
			expectTags:     "cardscan,ledger,added",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeoutSeconds = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).NotifyCardsAdded(context.Background(), 1, 0)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
