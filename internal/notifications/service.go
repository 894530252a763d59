package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventimporter/internal/config"
)

const userAgent = "EventImporter-Go/0.1.0"

// Service defines the notification surface exposed to the importer and the
// submission runner. Implementations must tolerate concurrent calls.
type Service interface {
	NotifyImportCompleted(ctx context.Context, title, method string) error
	NotifyImportFailed(ctx context.Context, url, reason string) error
	NotifyBatchCompleted(ctx context.Context, service string, submitted, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
// Category toggles in the notifications config section suppress individual
// message groups without disabling the service.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		imports:     cfg.Notifications.Imports,
		submissions: cfg.Notifications.Submissions,
		errors:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	imports     bool
	submissions bool
	errors      bool
}

func (n *ntfyService) NotifyImportCompleted(ctx context.Context, title, method string) error {
	if !n.imports {
		return nil
	}
	title = strings.TrimSpace(title)
	method = strings.TrimSpace(method)
	if method == "" {
		method = "unknown"
	}
	data := payload{
		title:   "Event Importer - Imported",
		message: fmt.Sprintf("🎟️ Imported: %s (via %s)", title, method),
		tags:    []string{"events", "import", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyImportFailed(ctx context.Context, url, reason string) error {
	if !n.imports {
		return nil
	}
	url = strings.TrimSpace(url)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Event Importer - Import Failed",
		message:  fmt.Sprintf("Import failed: %s\nReason: %s", url, reason),
		tags:     []string{"events", "import", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, service string, submitted, failed int, duration time.Duration) error {
	if !n.submissions {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	service = strings.TrimSpace(service)
	var title, message string
	if failed == 0 {
		title = "Event Importer - Batch Complete"
		message = fmt.Sprintf("Submitted %d events to %s in %s", submitted, service, durationText)
	} else {
		title = "Event Importer - Batch Complete (with errors)"
		message = fmt.Sprintf("Submitted %d events to %s, %d failed in %s", submitted, service, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"events", "submit", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Event Importer - Error",
		message:  builder.String(),
		tags:     []string{"events", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Event Importer - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"events", "test"},
		priority: "low",
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

func (noopService) NotifyImportCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyImportFailed(context.Context, string, string) error    { return nil }
func (noopService) NotifyBatchCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
