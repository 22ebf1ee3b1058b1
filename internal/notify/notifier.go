package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmarkelov/marketplace/internal/models"
	"github.com/vmarkelov/marketplace/internal/token"
)

const (
	deactivationSubject = "Product Deactivation Notification"

	queueSize   = 64
	sendTimeout = 15 * time.Second
)

// Notifier composes reactivation emails and dispatches them through a
// background worker, so the expiry sweep never waits on mail I/O.
type Notifier struct {
	Mailer  Mailer
	Logger  *slog.Logger
	BaseURL string
	From    string

	queue chan models.Product
	done  chan struct{}
}

func NewNotifier(mailer Mailer, logger *slog.Logger, baseURL, from string) *Notifier {
	n := &Notifier{
		Mailer:  mailer,
		Logger:  logger,
		BaseURL: baseURL,
		From:    from,
		queue:   make(chan models.Product, queueSize),
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

// Notify enqueues a deactivation email for the product's creator. It never
// blocks: if the queue is full the notification is dropped and logged.
func (n *Notifier) Notify(product models.Product) {
	select {
	case n.queue <- product:
	default:
		n.Logger.Error("notification queue full, dropping",
			"product_id", product.ID, "recipient", product.CreatorEmail)
	}
}

// Close stops accepting notifications and waits for queued ones to be sent.
func (n *Notifier) Close() {
	close(n.queue)
	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)

	for product := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := n.send(ctx, product)
		cancel()

		if err != nil {
			n.Logger.Error("deactivation email failed",
				"product_id", product.ID, "recipient", product.CreatorEmail, "error", err)
			continue
		}
		n.Logger.Info("deactivation email sent",
			"product_id", product.ID, "recipient", product.CreatorEmail)
	}
}

func (n *Notifier) send(ctx context.Context, product models.Product) error {
	link := fmt.Sprintf("%s/api/v1/activate/%s", n.BaseURL, token.Encode(product.ID))
	body := fmt.Sprintf(
		"Your product (Name: %s) has been deactivated. "+
			"Please click on the following link to activate your product:\n\n%s",
		product.Name, link,
	)

	return n.Mailer.Send(ctx, deactivationSubject, body, n.From, []string{product.CreatorEmail})
}
