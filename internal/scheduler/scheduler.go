package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"adcp-sales-agent/internal/metrics"
	"adcp-sales-agent/internal/repository"
	"adcp-sales-agent/internal/services"
)

// Scheduler runs a tick function on a fixed interval until stopped. A
// failing tick is logged and counted but never stops the loop.
type Scheduler struct {
	name     string
	interval time.Duration
	tick     func(context.Context) error
	logger   services.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scheduler. Start must be called to begin ticking.
func New(name string, interval time.Duration, tick func(context.Context) error, logger services.Logger) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   logger,
	}
}

// Start launches the tick loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("scheduler started", "scheduler", s.name, "interval", s.interval.String())
	go s.run(loopCtx)
}

// Stop halts the loop and waits for any in-flight tick to finish. Safe to
// call on a scheduler that was never started, and safe to call twice.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("scheduler stopped", "scheduler", s.name)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.tick(ctx)
			metrics.ObserveTick(s.name, err)
			if err != nil && ctx.Err() == nil {
				s.logger.Error("scheduler tick failed", "scheduler", s.name, "error", err)
			}
		}
	}
}

// NewMediaBuyStatusScheduler returns a scheduler that transitions active
// media buys past their end date to completed.
func NewMediaBuyStatusScheduler(store repository.Store, logger services.Logger, interval time.Duration) *Scheduler {
	return New("media_buy_status", interval, func(ctx context.Context) error {
		expired, err := store.ExpireMediaBuys(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		if expired > 0 {
			logger.Info("expired media buys", "count", expired)
		}
		return nil
	}, logger)
}

// deliveryReport is the webhook payload sent per active media buy.
type deliveryReport struct {
	MediaBuyID  string  `json:"media_buy_id"`
	TenantID    string  `json:"tenant_id"`
	PrincipalID string  `json:"principal_id"`
	Status      string  `json:"status"`
	Budget      float64 `json:"budget"`
	ReportedAt  string  `json:"reported_at"`
}

// NewDeliveryWebhookScheduler returns a scheduler that posts a delivery
// snapshot for each active media buy to webhookURL. Per-buy failures are
// logged and skipped so one broken endpoint cannot starve the rest.
func NewDeliveryWebhookScheduler(store repository.Store, logger services.Logger, interval time.Duration, webhookURL string, client *http.Client) *Scheduler {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return New("delivery_webhook", interval, func(ctx context.Context) error {
		buys, err := store.ListActiveMediaBuys(ctx)
		if err != nil {
			return err
		}
		now := time.Now().UTC().Format(time.RFC3339)
		for _, buy := range buys {
			report := deliveryReport{
				MediaBuyID:  buy.MediaBuyID,
				TenantID:    buy.TenantID,
				PrincipalID: buy.PrincipalID,
				Status:      string(buy.Status),
				Budget:      buy.Budget,
				ReportedAt:  now,
			}
			if err := postReport(ctx, client, webhookURL, report); err != nil {
				logger.Warn("delivery webhook failed", "media_buy_id", buy.MediaBuyID, "error", err)
			}
		}
		return nil
	}, logger)
}

func postReport(ctx context.Context, client *http.Client, url string, report deliveryReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &webhookError{status: resp.StatusCode}
	}
	return nil
}

type webhookError struct {
	status int
}

func (e *webhookError) Error() string {
	return http.StatusText(e.status)
}
