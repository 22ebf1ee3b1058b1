package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmarkelov/marketplace/internal/models"
	"github.com/vmarkelov/marketplace/internal/mykafka"
	"github.com/vmarkelov/marketplace/internal/repo"
)

// ProductNotifier dispatches the reactivation email for a deactivated product.
type ProductNotifier interface {
	Notify(product models.Product)
}

// Sweeper periodically deactivates products older than the expiry window and
// notifies their creators.
type Sweeper struct {
	Repo     *repo.GormRepo
	Notifier ProductNotifier
	Producer EventPublisher
	Indexer  Indexer
	Logger   *slog.Logger
	Interval time.Duration
	Window   time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSweeper applies the defaults: hourly sweeps, 30-day window.
func NewSweeper(r *repo.GormRepo, n ProductNotifier, p EventPublisher, idx Indexer, logger *slog.Logger, interval, window time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &Sweeper{
		Repo:     r,
		Notifier: n,
		Producer: p,
		Indexer:  idx,
		Logger:   logger,
		Interval: interval,
		Window:   window,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background loop. Non-blocking; call Stop to shut down.
func (s *Sweeper) Start() {
	go s.run()
	s.Logger.Info("expiry sweeper started", "interval", s.Interval, "window", s.Window)
}

// Stop shuts the loop down, waiting for any in-progress sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("expiry sweeper stopped")
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// First sweep immediately on startup.
	s.sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// sweep runs one pass. A failure on one product never aborts the others, and
// an interrupted pass is safe to resume: flipped products stay flipped, unseen
// ones are picked up next cycle.
func (s *Sweeper) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.Interval)
	defer cancel()

	expired, err := s.Repo.FindExpiredActive(ctx, s.Window)
	if err != nil {
		s.Logger.Error("expired product scan failed", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	deactivated := 0
	for _, product := range expired {
		flipped, err := s.Repo.DeactivateIfExpired(ctx, product.ID, s.Window)
		if err != nil {
			s.Logger.Error("deactivation failed", "product_id", product.ID, "error", err)
			continue
		}
		if !flipped {
			// Changed state since the scan; nothing to do.
			continue
		}

		deactivated++
		product.IsActive = false
		s.Notifier.Notify(product)
		s.afterDeactivate(ctx, product)
	}

	s.Logger.Info("sweep completed", "scanned", len(expired), "deactivated", deactivated)
}

func (s *Sweeper) afterDeactivate(ctx context.Context, product models.Product) {
	if s.Indexer != nil {
		if err := s.Indexer.RemoveProduct(ctx, product.ID); err != nil {
			s.Logger.Error("search index removal failed", "product_id", product.ID, "error", err)
		}
	}

	if s.Producer == nil {
		return
	}
	event := map[string]interface{}{
		"type":      "product_deactivated",
		"productID": product.ID,
		"name":      product.Name,
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, mykafka.TopicProductEvents, fmt.Sprint(product.ID), event); err != nil {
		s.Logger.Error("kafka publish error", "product_id", product.ID, "error", err)
	}
}
