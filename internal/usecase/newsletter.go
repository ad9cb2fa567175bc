package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"BitDCA/internal/domain/models"
	domrepo "BitDCA/internal/domain/repository"
	applogger "BitDCA/pkg/logger"
)

// Newsletter manages the subscriber list and broadcasts.
type Newsletter struct {
	store    domrepo.SubscriberStore
	queue    domrepo.BroadcastQueue
	validate *validator.Validate
	l        *applogger.Logger
	now      func() time.Time
}

// NewNewsletter builds the use case; a nil queue delivers inline.
func NewNewsletter(store domrepo.SubscriberStore, queue domrepo.BroadcastQueue, l *applogger.Logger) *Newsletter {
	if l == nil {
		l = applogger.Nop()
	}
	return &Newsletter{store: store, queue: queue, validate: validator.New(), l: l, now: time.Now}
}

// Subscribe normalizes and appends email. Duplicates are accepted silently.
func (n *Newsletter) Subscribe(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := n.validate.Var(email, "required,email,max=254"); err != nil {
		return false, &models.InputValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	added, err := n.store.Add(ctx, email)
	if err != nil {
		return false, fmt.Errorf("add subscriber: %w", err)
	}
	return added, nil
}

func (n *Newsletter) List(ctx context.Context) ([]string, error) {
	return n.store.List(ctx)
}

// ExportCSV renders the list as a one-column CSV with an Email header.
func (n *Newsletter) ExportCSV(ctx context.Context) (string, error) {
	emails, err := n.store.List(ctx)
	if err != nil {
		return "", err
	}
	return "Email\n" + strings.Join(emails, "\n"), nil
}

// Broadcast addresses every current subscriber and returns the recipient count.
func (n *Newsletter) Broadcast(ctx context.Context, subject, message string) (models.Broadcast, error) {
	subject, message = strings.TrimSpace(subject), strings.TrimSpace(message)
	if subject == "" {
		return models.Broadcast{}, &models.InputValidationError{Field: "subject", Reason: "is required"}
	}
	if message == "" {
		return models.Broadcast{}, &models.InputValidationError{Field: "message", Reason: "is required"}
	}
	recipients, err := n.store.List(ctx)
	if err != nil {
		return models.Broadcast{}, err
	}
	b := models.Broadcast{
		ID:         uuid.NewString(),
		Subject:    subject,
		Message:    message,
		Recipients: recipients,
		CreatedAt:  n.now().UTC(),
	}
	if n.queue != nil {
		if err := n.queue.Enqueue(ctx, b); err != nil {
			return models.Broadcast{}, err
		}
		return b, nil
	}
	return b, n.Deliver(ctx, b)
}

// Deliver simulates sending: one structured log line per broadcast.
func (n *Newsletter) Deliver(_ context.Context, b models.Broadcast) error {
	n.l.Info("newsletter sent",
		applogger.String("id", b.ID),
		applogger.String("subject", b.Subject),
		applogger.Int("recipients", len(b.Recipients)),
	)
	return nil
}
