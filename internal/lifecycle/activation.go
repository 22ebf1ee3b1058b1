package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/vmarkelov/marketplace/internal/models"
	"github.com/vmarkelov/marketplace/internal/mykafka"
	"github.com/vmarkelov/marketplace/internal/repo"
	"github.com/vmarkelov/marketplace/internal/token"
)

// Indexer keeps the search index in step with product visibility. Both methods
// tolerate a nil receiver wrapper; failures are logged, never surfaced.
type Indexer interface {
	IndexProduct(ctx context.Context, product models.Product) error
	RemoveProduct(ctx context.Context, id int) error
}

// EventPublisher is the producer surface the lifecycle emits domain events on.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

// ActivationService validates reactivation tokens and flips products back to
// active. Caller identity arrives as an explicit argument, never from ambient
// request state.
type ActivationService struct {
	Repo     *repo.GormRepo
	Producer EventPublisher
	Indexer  Indexer
	Logger   *slog.Logger
}

// Activate runs the ordered precondition checks and reactivates the product.
// A nil return means the product was flipped by this call. The checks
// short-circuit: the first violated one decides the outcome, and nothing is
// ever partially applied.
func (s *ActivationService) Activate(ctx context.Context, rawToken string, callerID uint) error {
	if rawToken == "" {
		return ErrBadToken
	}

	id, err := token.Decode(rawToken)
	if err != nil {
		return ErrBadToken
	}

	product, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same outcome as a malformed token: no existence leak.
			return ErrBadToken
		}
		return fmt.Errorf("store: %w", err)
	}

	if product.IsActive {
		return ErrAlreadyActive
	}

	// Re-derive and compare. Decoding alone would accept strings that were
	// never issued (truncated or otherwise mangled input that still decodes);
	// only the canonical encoding of the id is a valid link.
	if token.Encode(id) != rawToken {
		return ErrInvalidLink
	}

	if callerID != product.CreatorID {
		return ErrForbidden
	}

	flipped, err := s.Repo.ActivateIfInactive(ctx, id)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if !flipped {
		// Lost the race against another activation of the same product.
		return ErrAlreadyActive
	}

	s.Logger.Info("product reactivated", "product_id", id, "user_id", callerID)
	s.afterActivate(ctx, *product)

	return nil
}

func (s *ActivationService) afterActivate(ctx context.Context, product models.Product) {
	product.IsActive = true

	if s.Indexer != nil {
		if err := s.Indexer.IndexProduct(ctx, product); err != nil {
			s.Logger.Error("search index update failed", "product_id", product.ID, "error", err)
		}
	}

	if s.Producer == nil {
		return
	}
	event := map[string]interface{}{
		"type":      "product_activated",
		"productID": product.ID,
		"name":      product.Name,
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, mykafka.TopicProductEvents, fmt.Sprint(product.ID), event); err != nil {
		s.Logger.Error("kafka publish error", "product_id", product.ID, "error", err)
	}
}
