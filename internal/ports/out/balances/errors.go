package balances

import "errors"

var (
	// ErrInsufficientBalance indicates the account's free balance cannot cover the amount.
	ErrInsufficientBalance = errors.New("insufficient free balance")

	// ErrKeepAlive indicates the operation would leave the source account below
	// the existential deposit while KeepAlive was requested.
	ErrKeepAlive = errors.New("transfer would kill account")

	// ErrExistentialDeposit indicates the destination would be created with less
	// than the existential deposit.
	ErrExistentialDeposit = errors.New("value below existential deposit")

	// ErrBalanceOverflow indicates a credit would exceed the balance type.
	ErrBalanceOverflow = errors.New("balance overflow")
)
