// Package invoiceclient defines the hold-invoice capability the game
// protocol settles through, plus an in-memory reference
// implementation for tests. The real implementation is out of scope
// and expected to be backed by a Lightning-style payment channel.
package invoiceclient

import (
	"context"
	"errors"
)

// Status is a hold invoice's position in its state machine.
type Status uint8

const (
	Pending Status = iota
	Held
	Settled
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Held:
		return "Held"
	case Settled:
		return "Settled"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// PaymentID identifies an accepted pay_hold_invoice call.
type PaymentID string

// Descriptor is the opaque-to-the-core invoice handle returned by
// CreateHoldInvoice and exchanged between players via the oracle.
type Descriptor struct {
	InvoiceString string
	PaymentHash   [32]byte
	Amount        int64
	ExpirySeconds int64
}

var (
	ErrInvoiceAlreadyExists = errors.New("invoice already exists for payment hash")
	ErrAlreadyPaid          = errors.New("invoice already paid")
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidPreimage      = errors.New("preimage does not match payment hash")
	ErrWrongState           = errors.New("invoice is not in the required state")
)

// Client is the abstract capability the core consumes for settlement.
// Every operation is a potential suspension point; implementations
// must not call back into player.Engine, which holds its per-game lock
// across these calls.
type Client interface {
	CreateHoldInvoice(ctx context.Context, paymentHash [32]byte, amount int64, expirySeconds int64) (Descriptor, error)
	PayHoldInvoice(ctx context.Context, desc Descriptor) (PaymentID, error)
	SettleInvoice(ctx context.Context, paymentHash [32]byte, preimage [32]byte) error
	CancelInvoice(ctx context.Context, paymentHash [32]byte) error
	GetPaymentStatus(ctx context.Context, paymentHash [32]byte) (Status, error)
}
