package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"safeflow/internal/models"
	"safeflow/internal/repositories"
	"safeflow/internal/services/credit"
	"safeflow/internal/services/fraud"
	"safeflow/internal/services/realtime"
	"safeflow/internal/validation"
)

const depositDescription = "Account deposit"

func (s *service) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (res *DepositResult, err error) {
	start := time.Now()
	defer func() { s.finish(opDeposit, start, err) }()

	if !validAmount(amount, s.config.MaxDepositAmount) {
		return nil, ErrInvalidAmount
	}

	var txn *models.Transaction
	var user *models.User
	err = s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		u, err := lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		u.Balance = u.Balance.Add(amount)

		txn = &models.Transaction{
			ToUserID:    u.ID,
			Amount:      amount,
			Type:        models.TransactionTypeDeposit,
			Status:      models.TransactionStatusCompleted,
			Description: depositDescription,
		}
		if err := tx.Transactions().Create(ctx, txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		if err := credit.Recompute(ctx, tx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransactionVolume(models.TransactionTypeDeposit, amount.InexactFloat64())
	s.logger.InfoContext(ctx, "deposit completed",
		"user_id", user.ID,
		"transaction_id", txn.ID,
		"amount", amount.StringFixed(2),
	)
	s.afterCommit(ctx, []uuid.UUID{user.ID}, []realtime.Event{
		realtime.NewEvent(realtime.EventTransactionCreated, user.ID, txn.ID),
	})

	return &DepositResult{Transaction: txn, Balance: user.Balance, CreditScore: user.CreditScore}, nil
}

func (s *service) Transfer(ctx context.Context, req TransferRequest) (res *TransferResult, err error) {
	start := time.Now()
	defer func() { s.finish(opTransfer, start, err) }()

	var result TransferResult
	var receiverID uuid.UUID
	err = s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		recipient, label, err := resolveRecipient(ctx, tx, req.Recipient)
		if err != nil {
			return err
		}

		sender, receiver, err := lockPair(ctx, tx, req.SenderID, recipient.ID)
		if err != nil {
			return err
		}

		// Order matters: callers see the first failing check.
		if sender.Balance.LessThan(req.Amount) {
			return ErrInsufficientBalance
		}
		if sender.ID == receiver.ID {
			return ErrSelfTransfer
		}
		if !validAmount(req.Amount, s.config.MaxTransferAmount) {
			return ErrInvalidAmount
		}

		sender.Balance = sender.Balance.Sub(req.Amount)
		receiver.Balance = receiver.Balance.Add(req.Amount)

		fromID := sender.ID
		txn := &models.Transaction{
			FromUserID:  &fromID,
			ToUserID:    receiver.ID,
			Amount:      req.Amount,
			Type:        models.TransactionTypeTransfer,
			Status:      models.TransactionStatusCompleted,
			Description: "Transfer to " + receiver.Name,
		}
		if err := tx.Transactions().Create(ctx, txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		entry := s.detector.EvaluateTransfer(fraud.Transfer{
			Sender:         sender,
			Recipient:      receiver,
			RecipientLabel: label,
			Amount:         req.Amount,
		})
		if entry != nil {
			if err := tx.FraudLogs().Create(ctx, entry); err != nil {
				return fmt.Errorf("create fraud log: %w", err)
			}
		}

		if err := credit.Recompute(ctx, tx, sender); err != nil {
			return err
		}
		if err := credit.Recompute(ctx, tx, receiver); err != nil {
			return err
		}

		result = TransferResult{
			Transaction:   txn,
			SenderBalance: sender.Balance,
			RecipientName: receiver.Name,
			FraudLog:      entry,
		}
		receiverID = receiver.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransactionVolume(models.TransactionTypeTransfer, req.Amount.InexactFloat64())
	s.logger.InfoContext(ctx, "transfer completed",
		"sender_id", req.SenderID,
		"recipient_id", receiverID,
		"transaction_id", result.Transaction.ID,
		"amount", req.Amount.StringFixed(2),
		"flagged", result.Flagged(),
	)

	events := []realtime.Event{
		realtime.NewEvent(realtime.EventTransactionCreated, req.SenderID, result.Transaction.ID),
		realtime.NewEvent(realtime.EventTransactionCreated, receiverID, result.Transaction.ID),
	}
	if result.FraudLog != nil {
		s.metrics.RecordFraudFlag(result.FraudLog.Severity)
		s.logger.WarnContext(ctx, "transfer flagged",
			"sender_id", req.SenderID,
			"fraud_log_id", result.FraudLog.ID,
			"severity", result.FraudLog.Severity,
		)
		events = append(events, realtime.NewEvent(realtime.EventFraudLogCreated, req.SenderID, result.FraudLog.ID))
	}
	s.afterCommit(ctx, []uuid.UUID{req.SenderID, receiverID}, events)

	return &result, nil
}

// validAmount accepts positive amounts up to limit with at most two decimal
// places. Balances are stored as numeric(20,2), so anything finer would be
// rounded away on one side of a transfer.
func validAmount(amount, limit decimal.Decimal) bool {
	return amount.IsPositive() && !amount.GreaterThan(limit) && amount.Equal(amount.Round(2))
}

// resolveRecipient accepts an account id or an email address. The returned
// label is what the fraud log names the recipient by.
func resolveRecipient(ctx context.Context, tx repositories.Store, ref string) (*models.User, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, "", ErrRecipientNotFound
	}

	var (
		user *models.User
		err  error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		user, err = tx.Users().GetByID(ctx, id)
	} else {
		user, err = tx.Users().GetByEmail(ctx, validation.NormalizeEmail(ref))
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", ErrRecipientNotFound
		}
		return nil, "", fmt.Errorf("resolve recipient: %w", err)
	}
	return user, user.Email, nil
}

func lockUser(ctx context.Context, tx repositories.Store, id uuid.UUID) (*models.User, error) {
	u, err := tx.Users().GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return u, nil
}

// lockPair locks both accounts in ascending id order so concurrent opposite
// transfers cannot deadlock. A self-transfer locks once and returns the same
// pointer twice.
func lockPair(ctx context.Context, tx repositories.Store, senderID, receiverID uuid.UUID) (*models.User, *models.User, error) {
	if senderID == receiverID {
		u, err := lockUser(ctx, tx, senderID)
		if err != nil {
			return nil, nil, err
		}
		return u, u, nil
	}

	first, second := senderID, receiverID
	if strings.Compare(first.String(), second.String()) > 0 {
		first, second = second, first
	}
	a, err := lockUser(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := lockUser(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}
	if a.ID == senderID {
		return a, b, nil
	}
	return b, a, nil
}
