package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"risk-register-backup/internal/logging"
)

// EventType names a backup or restore event
type EventType string

const (
	EventBackupCompleted  EventType = "backup.completed"
	EventBackupFailed     EventType = "backup.failed"
	EventRestoreCompleted EventType = "restore.completed"
	EventRestoreRejected  EventType = "restore.rejected"
)

// NotificationConfig holds configuration for notifications
type NotificationConfig struct {
	Enabled bool           `mapstructure:"enabled" yaml:"enabled"`
	Webhook *WebhookConfig `mapstructure:"webhook" yaml:"webhook,omitempty"`
	File    *FileConfig    `mapstructure:"file" yaml:"file,omitempty"`
	Log     bool           `mapstructure:"log" yaml:"log"`
	Events  []EventType    `mapstructure:"events" yaml:"events,omitempty"` // empty means all
}

// WebhookConfig for generic webhook notifications
type WebhookConfig struct {
	URL     string            `mapstructure:"url" yaml:"url"`
	Method  string            `mapstructure:"method" yaml:"method"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	Timeout time.Duration     `mapstructure:"timeout" yaml:"timeout"`
}

// FileConfig for file-based notifications
type FileConfig struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Format string `mapstructure:"format" yaml:"format"` // json, text
}

// Validate validates the notification configuration
func (nc *NotificationConfig) Validate() error {
	if !nc.Enabled {
		return nil
	}

	var errors ValidationErrors
	if nc.Webhook != nil && nc.Webhook.URL == "" {
		errors.Add("notifications.webhook.url", "webhook URL is required", nil)
	}
	if nc.File != nil {
		if nc.File.Path == "" {
			errors.Add("notifications.file.path", "file path is required", nil)
		}
		if nc.File.Format != "" && nc.File.Format != "json" && nc.File.Format != "text" {
			errors.Add("notifications.file.format", "file format must be json or text", nc.File.Format)
		}
	}
	for _, event := range nc.Events {
		switch event {
		case EventBackupCompleted, EventBackupFailed, EventRestoreCompleted, EventRestoreRejected:
		default:
			errors.Add("notifications.events", "unknown event type", event)
		}
	}

	if errors.HasErrors() {
		return errors
	}
	return nil
}

// NotificationEvent is one backup or restore event
type NotificationEvent struct {
	Type      EventType              `json:"type"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	BackupID  string                 `json:"backup_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NotificationChannel interface for different notification methods
type NotificationChannel interface {
	Send(ctx context.Context, event *NotificationEvent) error
	GetType() string
	IsEnabled() bool
}

// NotificationManager fans events out to every configured channel. Delivery
// failures are logged and never returned.
type NotificationManager struct {
	logger   *logging.Logger
	config   NotificationConfig
	channels []NotificationChannel
}

// NewNotificationManager creates a new notification manager
func NewNotificationManager(logger *logging.Logger, config NotificationConfig) *NotificationManager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	nm := &NotificationManager{
		logger:   logger,
		config:   config,
		channels: make([]NotificationChannel, 0),
	}

	if config.Webhook != nil {
		nm.channels = append(nm.channels, NewWebhookChannel(*config.Webhook))
	}
	if config.File != nil {
		nm.channels = append(nm.channels, NewFileChannel(*config.File))
	}
	if config.Log {
		nm.channels = append(nm.channels, NewLogChannel(logger))
	}

	return nm
}

// AddChannel registers an extra channel
func (nm *NotificationManager) AddChannel(channel NotificationChannel) {
	nm.channels = append(nm.channels, channel)
}

// Notify delivers event to every enabled channel
func (nm *NotificationManager) Notify(ctx context.Context, event *NotificationEvent) {
	if !nm.config.Enabled || !nm.wants(event.Type) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	for _, channel := range nm.channels {
		if !channel.IsEnabled() {
			continue
		}
		if err := channel.Send(ctx, event); err != nil {
			nm.logger.WithFields(map[string]interface{}{
				"channel": channel.GetType(),
				"event":   string(event.Type),
				"error":   err.Error(),
			}).Warn("Failed to deliver notification")
		}
	}
}

func (nm *NotificationManager) wants(eventType EventType) bool {
	if len(nm.config.Events) == 0 {
		return true
	}
	for _, wanted := range nm.config.Events {
		if wanted == eventType {
			return true
		}
	}
	return false
}

// WebhookChannel posts events as JSON
type WebhookChannel struct {
	config WebhookConfig
	client *http.Client
}

// NewWebhookChannel creates a new webhook notification channel
func NewWebhookChannel(config WebhookConfig) *WebhookChannel {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &WebhookChannel{
		config: config,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send sends a webhook notification
func (wc *WebhookChannel) Send(ctx context.Context, event *NotificationEvent) error {
	if wc.config.URL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	method := wc.config.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, wc.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range wc.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := wc.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}
	return nil
}

// GetType returns the channel type
func (wc *WebhookChannel) GetType() string {
	return "webhook"
}

// IsEnabled checks if the channel is enabled
func (wc *WebhookChannel) IsEnabled() bool {
	return wc.config.URL != ""
}

// FileChannel appends events to a file, one per line
type FileChannel struct {
	config FileConfig
	mu     sync.Mutex
}

// NewFileChannel creates a new file notification channel
func NewFileChannel(config FileConfig) *FileChannel {
	return &FileChannel{config: config}
}

// Send appends the event to the configured file
func (fc *FileChannel) Send(ctx context.Context, event *NotificationEvent) error {
	if fc.config.Path == "" {
		return fmt.Errorf("file path not configured")
	}

	var line []byte
	switch fc.config.Format {
	case "text":
		line = []byte(fmt.Sprintf("[%s] %s: %s\n", event.Timestamp.Format(time.RFC3339), event.Type, event.Message))
	default:
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal notification: %w", err)
		}
		line = append(data, '\n')
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	file, err := os.OpenFile(fc.config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open notification file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(line); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

// GetType returns the channel type
func (fc *FileChannel) GetType() string {
	return "file"
}

// IsEnabled checks if the channel is enabled
func (fc *FileChannel) IsEnabled() bool {
	return fc.config.Path != ""
}

// LogChannel writes events through the structured logger
type LogChannel struct {
	logger *logging.Logger
}

// NewLogChannel creates a new log notification channel
func NewLogChannel(logger *logging.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

// Send logs the event at info level, or warn for failures and rejections
func (lc *LogChannel) Send(ctx context.Context, event *NotificationEvent) error {
	fields := map[string]interface{}{"event": string(event.Type)}
	if event.BackupID != "" {
		fields["backup_id"] = event.BackupID
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := lc.logger.WithFields(fields)
	switch event.Type {
	case EventBackupFailed, EventRestoreRejected:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}
	return nil
}

// GetType returns the channel type
func (lc *LogChannel) GetType() string {
	return "log"
}

// IsEnabled checks if the channel is enabled
func (lc *LogChannel) IsEnabled() bool {
	return lc.logger != nil
}
