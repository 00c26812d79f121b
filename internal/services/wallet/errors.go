package wallet

import apperrors "safeflow/internal/errors"

var (
	ErrRecipientNotFound   = apperrors.ErrRecipientNotFound
	ErrInsufficientBalance = apperrors.ErrInsufficientBalance
	ErrSelfTransfer        = apperrors.ErrSelfTransfer
	ErrInvalidAmount       = apperrors.ErrInvalidAmount
	ErrUserNotFound        = apperrors.ErrUserNotFound
)
