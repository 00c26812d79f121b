/*
Package wallet moves money between SafeFlow accounts.

The service owns the two balance-changing operations, deposit and transfer,
and the read side that goes with them (balance summary and history).

Transfers:

A transfer is applied as one store transaction. Inside it the service

  - resolves the recipient by id or exact email
  - locks both accounts in id order
  - checks, in this order, balance, self-transfer and amount bounds
  - moves the funds and appends one Transaction seen by both parties
  - appends one FraudLog for the sender when the amount is above the
    configured threshold
  - recomputes both credit scores from scratch

Any failure rolls everything back. Two transfers from the same sender
serialize on the sender's row lock, so the balance check cannot race.

Usage:

	svc := wallet.NewService(store, cache, broker, wallet.WalletConfig{
	    FraudThreshold:    decimal.NewFromInt(5000),
	    MaxTransferAmount: decimal.NewFromInt(100000),
	}, metrics, logger)

	res, err := svc.Transfer(ctx, wallet.TransferRequest{
	    SenderID:  userID,
	    Recipient: "bob@example.com",
	    Amount:    decimal.NewFromInt(250),
	})

After commit:

Once the transaction commits the service invalidates cached profiles,
publishes realtime refetch hints and records metrics. Failures at this stage
are logged and never turn a committed transfer into an error.

Errors:

  - ErrRecipientNotFound: recipient does not resolve to an account
  - ErrInsufficientBalance: sender balance below amount
  - ErrSelfTransfer: recipient is the sender
  - ErrInvalidAmount: amount not positive, above the cap or finer than a cent
*/
package wallet
