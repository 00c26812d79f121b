package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"safeflow/internal/models"
	"safeflow/internal/repositories"
)

type userRepository struct {
	v *view
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.v.with(func(d *dataset) error {
		if _, taken := d.emails[user.Email]; taken {
			return repositories.ErrDuplicateEmail
		}
		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}
		now := r.v.now()
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}
		user.UpdatedAt = now
		if user.TokenVersion == 0 {
			user.TokenVersion = 1
		}
		d.users[user.ID] = *user
		d.emails[user.Email] = user.ID
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var out *models.User
	err := r.v.with(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.v.with(func(d *dataset) error {
		id, ok := d.emails[email]
		if !ok {
			return fmt.Errorf("user %q: %w", email, repositories.ErrNotFound)
		}
		u := d.users[id]
		out = &u
		return nil
	})
	return out, err
}

// GetByIDForUpdate needs no row lock: the store mutex already serializes
// transactions.
func (r *userRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.v.with(func(d *dataset) error {
		current, ok := d.users[user.ID]
		if !ok {
			return fmt.Errorf("user %s: %w", user.ID, repositories.ErrNotFound)
		}
		if current.Email != user.Email {
			if _, taken := d.emails[user.Email]; taken {
				return repositories.ErrDuplicateEmail
			}
			delete(d.emails, current.Email)
			d.emails[user.Email] = user.ID
		}
		user.CreatedAt = current.CreatedAt
		user.UpdatedAt = r.v.now()
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepository) IncrementTokenVersion(ctx context.Context, id uuid.UUID) error {
	return r.v.with(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		u.TokenVersion++
		d.users[id] = u
		return nil
	})
}

type transactionRepository struct {
	v *view
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	return r.v.with(func(d *dataset) error {
		if tx.ID == uuid.Nil {
			tx.ID = uuid.New()
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = r.v.now()
		}
		d.transactions = append(d.transactions, *tx)
		return nil
	})
}

func (r *transactionRepository) CountForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.v.with(func(d *dataset) error {
		for i := range d.transactions {
			if d.transactions[i].Involves(userID) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *transactionRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error) {
	var (
		out   []models.Transaction
		total int64
	)
	err := r.v.with(func(d *dataset) error {
		// append order is creation order, so walking backwards is newest first
		for i := len(d.transactions) - 1; i >= 0; i-- {
			if !d.transactions[i].Involves(userID) {
				continue
			}
			if total >= int64(offset) && (limit <= 0 || len(out) < limit) {
				out = append(out, d.transactions[i])
			}
			total++
		}
		return nil
	})
	return out, total, err
}

type fraudLogRepository struct {
	v *view
}

func (r *fraudLogRepository) Create(ctx context.Context, entry *models.FraudLog) error {
	return r.v.with(func(d *dataset) error {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = r.v.now()
		}
		d.fraudLogs = append(d.fraudLogs, *entry)
		return nil
	})
}

func (r *fraudLogRepository) CountForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.v.with(func(d *dataset) error {
		for i := range d.fraudLogs {
			if d.fraudLogs[i].UserID == userID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *fraudLogRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.FraudLog, int64, error) {
	var (
		out   []models.FraudLog
		total int64
	)
	err := r.v.with(func(d *dataset) error {
		for i := len(d.fraudLogs) - 1; i >= 0; i-- {
			if d.fraudLogs[i].UserID != userID {
				continue
			}
			if total >= int64(offset) && (limit <= 0 || len(out) < limit) {
				out = append(out, d.fraudLogs[i])
			}
			total++
		}
		return nil
	})
	return out, total, err
}
