package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vmarkelov/marketplace/internal/logging"
	"github.com/vmarkelov/marketplace/internal/models"
	"github.com/vmarkelov/marketplace/internal/repo"
)

const testWindow = 30 * 24 * time.Hour

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Comment{}, &models.RefreshToken{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func createProduct(t *testing.T, db *gorm.DB, creatorID uint, age time.Duration, active bool) *models.Product {
	t.Helper()

	prod := models.Product{
		Name:         "test_product",
		Price:        5,
		CreatorID:    creatorID,
		CreatorEmail: "creator@example.com",
		IsActive:     active,
		CreatedAt:    time.Now().Add(-age),
	}
	require.NoError(t, db.Create(&prod).Error)
	return &prod
}

type publishedEvent struct {
	Topic string
	Key   string
	Event interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matched []publishedEvent
	for _, ev := range p.events {
		fields, ok := ev.Event.(map[string]interface{})
		if ok && fields["type"] == eventType {
			matched = append(matched, ev)
		}
	}
	return matched
}

type recordingNotifier struct {
	mu       sync.Mutex
	products []models.Product
}

func (n *recordingNotifier) Notify(product models.Product) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.products = append(n.products, product)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.products)
}

func newTestSweeper(t *testing.T, db *gorm.DB) (*Sweeper, *recordingNotifier) {
	t.Helper()

	notifier := &recordingNotifier{}
	s := NewSweeper(repo.NewGormRepo(db), notifier, nil, nil, logging.New("error"), time.Hour, testWindow)
	return s, notifier
}
