// Package webhooks notifies external endpoints after a change is committed
// to the store (an import, an overwrite or a VAT repair).
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hbimpianti/hbdesk/internal/events"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
)

const (
	defaultTimeout     = 2 * time.Second
	defaultConcurrency = 4
)

// Payload is the JSON body posted to every target.
type Payload struct {
	Event       string          `json:"event"`
	UUID        string          `json:"uuid"`
	Mode        string          `json:"mode"`
	Source      string          `json:"source"`
	SnapshotRev string          `json:"snapshot_rev"`
	CreatedAt   string          `json:"created_at"`
	Counts      snapshot.Counts `json:"counts"`
}

// PayloadFor builds the payload announcing entry. counts are the record
// counts after the change.
func PayloadFor(entry *events.Entry, counts snapshot.Counts) Payload {
	return Payload{
		Event:       "hbdesk." + entry.Mode,
		UUID:        entry.UUID,
		Mode:        entry.Mode,
		Source:      entry.Source,
		SnapshotRev: entry.SnapshotRev,
		CreatedAt:   entry.CreatedAt,
		Counts:      counts,
	}
}

// Dispatcher posts payloads to a fixed set of URLs. A nil *Dispatcher is
// valid and sends nothing.
type Dispatcher struct {
	urls        []string
	client      *http.Client
	concurrency int
	logger      *zap.Logger
}

// New returns a dispatcher for urls. Blank, duplicate and non-http(s) URLs
// are dropped; it returns nil when nothing is left.
func New(urls []string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	normalized := normalizeWebhookURLs(urls, logger)
	if len(normalized) == 0 {
		return nil
	}
	return &Dispatcher{
		urls:        normalized,
		client:      &http.Client{Timeout: defaultTimeout},
		concurrency: defaultConcurrency,
		logger:      logger,
	}
}

// Targets returns the URLs payload would be posted to, with {mode} and
// {uuid} placeholders filled in.
func (d *Dispatcher) Targets(payload Payload) []string {
	if d == nil {
		return nil
	}
	targets := make([]string, 0, len(d.urls))
	for _, raw := range d.urls {
		targets = append(targets, applyTemplate(raw, payload))
	}
	return targets
}

// Dispatch posts payload to every target and waits for the requests to
// finish. Failures are logged, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, payload Payload) {
	targets := d.Targets(payload)
	if len(targets) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("webhook payload encoding failed", zap.Error(err))
		return
	}

	workers := d.concurrency
	if len(targets) < workers {
		workers = len(targets)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for endpoint := range jobs {
				d.send(ctx, endpoint, body)
			}
		}()
	}

	for _, endpoint := range targets {
		jobs <- endpoint
	}
	close(jobs)
	wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, endpoint string, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		d.logger.Warn("webhook request build failed", zap.String("url", endpoint), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("webhook request failed", zap.String("url", endpoint), zap.Error(err))
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		d.logger.Warn("webhook rejected", zap.String("url", endpoint), zap.Int("status", resp.StatusCode))
		return
	}
	d.logger.Debug("webhook delivered", zap.String("url", endpoint))
}

func normalizeWebhookURLs(urls []string, logger *zap.Logger) []string {
	seen := make(map[string]struct{}, len(urls))
	var normalized []string

	for _, raw := range urls {
		trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
		if trimmed == "" {
			continue
		}
		if !isValidWebhookURL(trimmed) {
			logger.Warn("skipping invalid webhook url", zap.String("url", trimmed))
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}

	return normalized
}

func applyTemplate(raw string, payload Payload) string {
	result := strings.ReplaceAll(raw, "{mode}", payload.Mode)
	result = strings.ReplaceAll(result, "{uuid}", payload.UUID)
	return result
}

func isValidWebhookURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	return true
}
