package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"safeflow/internal/models"
)

type transactionRepository struct {
	db *gorm.DB
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *transactionRepository) forUser(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID)
}

func (r *transactionRepository) CountForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.forUser(ctx, userID).Count(&n).Error
	return n, err
}

func (r *transactionRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error) {
	total, err := r.CountForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	var txs []models.Transaction
	err = r.forUser(ctx, userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	return txs, total, err
}

type fraudLogRepository struct {
	db *gorm.DB
}

func (r *fraudLogRepository) Create(ctx context.Context, entry *models.FraudLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *fraudLogRepository) CountForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.FraudLog{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *fraudLogRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.FraudLog, int64, error) {
	total, err := r.CountForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	var logs []models.FraudLog
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	return logs, total, err
}
