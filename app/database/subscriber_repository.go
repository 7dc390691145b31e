package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const subscriberColumns = `id, email, active, created_at, updated_at`

// NormalizeEmail trims and lower-cases an address. Every write path goes
// through it so the unique index sees one spelling per mailbox.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// SubscriberRepo handles database operations for subscribers
type SubscriberRepo struct {
	db *DB
}

func NewSubscriberRepository(db *DB) *SubscriberRepo {
	return &SubscriberRepo{db: db}
}

func (r *SubscriberRepo) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	subscribers := []Subscriber{}
	err := r.db.SelectContext(ctx, &subscribers, `SELECT `+subscriberColumns+` FROM subscribers ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subscribers, nil
}

func (r *SubscriberRepo) ListActiveSubscribers(ctx context.Context) ([]Subscriber, error) {
	subscribers := []Subscriber{}
	err := r.db.SelectContext(ctx, &subscribers, `SELECT `+subscriberColumns+` FROM subscribers WHERE active = 1 ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active subscribers: %w", err)
	}
	return subscribers, nil
}

func (r *SubscriberRepo) GetSubscriber(ctx context.Context, id string) (*Subscriber, error) {
	var subscriber Subscriber
	err := r.db.GetContext(ctx, &subscriber, `SELECT `+subscriberColumns+` FROM subscribers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}
	return &subscriber, nil
}

func (r *SubscriberRepo) getSubscriberByEmail(ctx context.Context, email string) (*Subscriber, error) {
	var subscriber Subscriber
	err := r.db.GetContext(ctx, &subscriber, `SELECT `+subscriberColumns+` FROM subscribers WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber by email: %w", err)
	}
	return &subscriber, nil
}

func (r *SubscriberRepo) CountActiveSubscribers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM subscribers WHERE active = 1`); err != nil {
		return 0, fmt.Errorf("failed to count active subscribers: %w", err)
	}
	return count, nil
}

func (r *SubscriberRepo) CreateSubscriber(ctx context.Context, email string) (*Subscriber, error) {
	now := dbTime(time.Now())
	subscriber := Subscriber{
		ID:        uuid.NewString(),
		Email:     NormalizeEmail(email),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscribers (id, email, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, subscriber.ID, subscriber.Email, subscriber.Active, subscriber.CreatedAt, subscriber.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}

	return &subscriber, nil
}

func (r *SubscriberRepo) UpdateSubscriber(ctx context.Context, id string, update SubscriberUpdate) (*Subscriber, error) {
	subscriber, err := r.GetSubscriber(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Email != nil {
		subscriber.Email = NormalizeEmail(*update.Email)
	}
	if update.Active != nil {
		subscriber.Active = *update.Active
	}
	subscriber.UpdatedAt = dbTime(time.Now())

	_, err = r.db.ExecContext(ctx, `
		UPDATE subscribers SET email = ?, active = ?, updated_at = ? WHERE id = ?
	`, subscriber.Email, subscriber.Active, subscriber.UpdatedAt, subscriber.ID)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update subscriber: %w", err)
	}

	return subscriber, nil
}

// DeactivateSubscriber is the soft delete used by the unsubscribe flow.
func (r *SubscriberRepo) DeactivateSubscriber(ctx context.Context, email string) (*Subscriber, error) {
	subscriber, err := r.getSubscriberByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	subscriber.Active = false
	subscriber.UpdatedAt = dbTime(time.Now())

	_, err = r.db.ExecContext(ctx, `
		UPDATE subscribers SET active = 0, updated_at = ? WHERE id = ?
	`, subscriber.UpdatedAt, subscriber.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate subscriber: %w", err)
	}

	return subscriber, nil
}

func (r *SubscriberRepo) DeleteSubscriber(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscriber: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete subscriber: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
