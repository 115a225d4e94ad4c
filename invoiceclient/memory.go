package invoiceclient

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
)

// Ledger is the shared, mutex-guarded state backing the in-memory
// reference implementation: per-account balances and per-invoice
// records. A single Ledger is normally shared by both players' own
// MemoryClient handles in tests, mirroring the teacher's
// escrowSession.mu per-instance locking pattern generalized to a
// shared store.
type Ledger struct {
	mu        sync.Mutex
	balances  map[string]int64
	invoices  map[[32]byte]*invoiceRecord
	paymentSeq int64
}

type invoiceRecord struct {
	desc     Descriptor
	status   Status
	preimage [32]byte
	settled  bool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]int64),
		invoices: make(map[[32]byte]*invoiceRecord),
	}
}

// Credit adds amount to account's balance, for test setup.
func (l *Ledger) Credit(account string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

// Balance returns account's current balance.
func (l *Ledger) Balance(account string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// MemoryClient implements Client against a shared Ledger under a
// fixed account identity, grounded on fiber-core's MockFiberClient:
// debits the payer on PayHoldInvoice, and credits whichever account's
// Client instance successfully calls SettleInvoice or CancelInvoice —
// there is no fixed recipient recorded at creation time. This mirrors
// a hashlock-style claim (whoever produces the right preimage, or
// reclaims a never-settled hold, is paid through their own channel),
// which is what lets the wager's winner be the one who benefits from
// decrypting the opponent's preimage rather than the invoice's
// original creator.
type MemoryClient struct {
	ledger  *Ledger
	account string
}

// NewMemoryClient returns a Client view of ledger scoped to account.
func NewMemoryClient(ledger *Ledger, account string) *MemoryClient {
	return &MemoryClient{ledger: ledger, account: account}
}

func (c *MemoryClient) CreateHoldInvoice(ctx context.Context, paymentHash [32]byte, amount int64, expirySeconds int64) (Descriptor, error) {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()

	if _, exists := c.ledger.invoices[paymentHash]; exists {
		return Descriptor{}, fmt.Errorf("%w: %x", ErrInvoiceAlreadyExists, paymentHash)
	}
	desc := Descriptor{
		InvoiceString: fmt.Sprintf("memoryinvoice:%x", paymentHash),
		PaymentHash:   paymentHash,
		Amount:        amount,
		ExpirySeconds: expirySeconds,
	}
	c.ledger.invoices[paymentHash] = &invoiceRecord{
		desc:   desc,
		status: Pending,
	}
	return desc, nil
}

func (c *MemoryClient) PayHoldInvoice(ctx context.Context, desc Descriptor) (PaymentID, error) {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()

	rec, ok := c.ledger.invoices[desc.PaymentHash]
	if !ok {
		return "", ErrInvoiceNotFound
	}
	if rec.status != Pending {
		return "", ErrAlreadyPaid
	}
	if c.ledger.balances[c.account] < desc.Amount {
		return "", ErrInsufficientBalance
	}

	c.ledger.balances[c.account] -= desc.Amount
	rec.status = Held

	c.ledger.paymentSeq++
	return PaymentID(fmt.Sprintf("pay-%d", c.ledger.paymentSeq)), nil
}

func (c *MemoryClient) SettleInvoice(ctx context.Context, paymentHash [32]byte, preimage [32]byte) error {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()

	rec, ok := c.ledger.invoices[paymentHash]
	if !ok {
		return ErrInvoiceNotFound
	}
	if rec.status == Settled {
		if rec.settled && rec.preimage == preimage {
			return nil
		}
		return ErrInvalidPreimage
	}
	if rec.status != Held {
		return ErrWrongState
	}
	if sha256.Sum256(preimage[:]) != paymentHash {
		return ErrInvalidPreimage
	}

	c.ledger.balances[c.account] += rec.desc.Amount
	rec.status = Settled
	rec.preimage = preimage
	rec.settled = true
	return nil
}

// CancelInvoice releases a Held invoice's escrowed amount to the
// caller, or fails if it was already Settled. A Pending invoice is
// marked Cancelled without crediting anyone. For an invoice this
// account created, cancelling it after the opponent paid in returns
// that payment to this account, which is how each side of a drawn
// game is made whole.
func (c *MemoryClient) CancelInvoice(ctx context.Context, paymentHash [32]byte) error {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()

	rec, ok := c.ledger.invoices[paymentHash]
	if !ok {
		return ErrInvoiceNotFound
	}
	switch rec.status {
	case Settled:
		return ErrWrongState
	case Held:
		c.ledger.balances[c.account] += rec.desc.Amount
	}
	rec.status = Cancelled
	return nil
}

func (c *MemoryClient) GetPaymentStatus(ctx context.Context, paymentHash [32]byte) (Status, error) {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()

	rec, ok := c.ledger.invoices[paymentHash]
	if !ok {
		return 0, ErrInvoiceNotFound
	}
	return rec.status, nil
}
