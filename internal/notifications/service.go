package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/techdivision/import-app-simple/internal/config"
)

const (
	userAgent      = "import-app/0.1.0"
	defaultTimeout = 10 * time.Second
)

// Service delivers import outcomes to an operator.
type Service interface {
	NotifyImportCompleted(ctx context.Context, serial, outcome string, duration time.Duration) error
	NotifyImportFailed(ctx context.Context, serial, outcome string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService returns an ntfy-backed Service, or one that drops every
// notification when notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ntfyService{
		topic:  strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client: &http.Client{Timeout: timeout},
	}
}

// note is one ntfy message. Priority "" and "default" send no header.
type note struct {
	title    string
	body     string
	priority string
	tags     []string
}

func (n note) request(ctx context.Context, topic string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, topic, strings.NewReader(n.body))
	if err != nil {
		return nil, fmt.Errorf("build ntfy request: %w", err)
	}
	header := req.Header
	header.Set("User-Agent", userAgent)
	header.Set("Content-Type", "text/plain; charset=utf-8")
	if n.title != "" {
		header.Set("Title", n.title)
	}
	if len(n.tags) > 0 {
		header.Set("Tags", strings.Join(n.tags, ","))
	}
	if n.priority != "" && n.priority != "default" {
		header.Set("Priority", n.priority)
	}
	return req, nil
}

type ntfyService struct {
	topic  string
	client *http.Client
}

func (s *ntfyService) NotifyImportCompleted(ctx context.Context, serial, outcome string, duration time.Duration) error {
	body := fmt.Sprintf("Import %s finished in %s", strings.TrimSpace(serial), max(duration.Round(time.Millisecond), 0))
	if outcome = strings.TrimSpace(outcome); outcome != "" && outcome != "success" {
		body += " (" + outcome + ")"
	}
	return s.post(ctx, note{
		title: "Importer - Import Complete",
		body:  body,
		tags:  []string{"importer", "import", "completed"},
	})
}

func (s *ntfyService) NotifyImportFailed(ctx context.Context, serial, outcome string, err error) error {
	verb := "failed"
	if outcome = strings.TrimSpace(outcome); outcome != "" {
		verb = "ended with " + outcome
	}
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}

	priority := "high"
	switch outcome {
	case "already_running", "stopped":
		priority = "default"
	}
	return s.post(ctx, note{
		title:    "Importer - Import Failed",
		body:     fmt.Sprintf("Import %s %s: %s", strings.TrimSpace(serial), verb, reason),
		priority: priority,
		tags:     []string{"importer", "import", "failed"},
	})
}

func (s *ntfyService) TestNotification(ctx context.Context) error {
	return s.post(ctx, note{
		title:    "Importer - Test",
		body:     "Notification system test",
		priority: "low",
		tags:     []string{"importer", "test"},
	})
}

func (s *ntfyService) post(ctx context.Context, n note) error {
	req, err := n.request(ctx, s.topic)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyImportCompleted(context.Context, string, string, time.Duration) error {
	return nil
}

func (noopService) NotifyImportFailed(context.Context, string, string, error) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
