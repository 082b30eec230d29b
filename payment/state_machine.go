package payment

import (
	"errors"
	"fmt"
	"log"

	"github.com/godaddy/spree-ccavenue-api/models"
	"github.com/godaddy/spree-ccavenue-api/utils"
)

var (
	// ErrOrderNotConfirmable means checkout has not reached a state where a
	// payment may be sent for the order.
	ErrOrderNotConfirmable = errors.New("payment: order is not ready for payment confirmation")

	// ErrAlreadyAuthorized guards the terminal state: an authorized
	// transaction can never be canceled or transitioned again.
	ErrAlreadyAuthorized = errors.New("payment: transaction is already authorized")

	errNumberSpaceExhausted = errors.New("payment: could not allocate a unique transaction number")
)

const numberAttempts = 5

// StateMachine drives a transaction through its lifecycle. It owns the
// transitions; callers own deciding when to trigger them.
type StateMachine struct {
	transactions TransactionStore
}

func NewStateMachine(transactions TransactionStore) *StateMachine {
	return &StateMachine{transactions: transactions}
}

// Transact moves a freshly created transaction to sent. Before the
// transition it verifies the order permits confirmation, cancels every prior
// sibling attempt for the same order, and assigns a fresh unique transaction
// number. All side effects are persisted before Transact returns, so the
// encrypted redirect is never shown while a prior attempt is still live.
func (m *StateMachine) Transact(order *models.Order, t *models.Transaction) error {
	if !order.Confirmable() {
		return ErrOrderNotConfirmable
	}
	if err := m.cancelSiblings(order.ID, t.ID); err != nil {
		return err
	}
	number, err := m.allocateNumber()
	if err != nil {
		return err
	}
	t.Number = number
	t.State = models.TransactionSent
	return m.transactions.Save(t)
}

// Next evaluates the gateway-reported auth description after a callback and
// transitions accordingly: Aborted cancels, Success authorizes, Failure
// rejects, initiated stays pending. Anything else leaves the state untouched.
// It returns whether a transition happened; the caller persists.
func (m *StateMachine) Next(t *models.Transaction) bool {
	if t.State != models.TransactionSent && t.State != models.TransactionBatch && t.State != models.TransactionInitiated {
		return false
	}
	switch t.AuthDesc {
	case models.AuthDescAborted:
		t.State = models.TransactionCanceled
	case models.AuthDescSuccess:
		t.State = models.TransactionAuthorized
	case models.AuthDescFailure:
		t.State = models.TransactionRejected
	case models.AuthDescInitiated:
		t.State = models.TransactionInitiated
	default:
		log.Printf("[payment] transaction %d: unrecognized gateway status %q, leaving state %q", t.ID, t.AuthDesc, t.State)
		return false
	}
	return true
}

// Cancel marks a transaction canceled. Reachable from any state except
// authorized.
func (m *StateMachine) Cancel(t *models.Transaction) error {
	if t.Authorized() {
		return ErrAlreadyAuthorized
	}
	t.State = models.TransactionCanceled
	return m.transactions.Save(t)
}

// cancelSiblings cancels every other non-authorized transaction for the
// order, so at most one attempt per order is live at a time.
func (m *StateMachine) cancelSiblings(orderID, exceptID uint) error {
	siblings, err := m.transactions.ForOrder(orderID)
	if err != nil {
		return err
	}
	for _, s := range siblings {
		if s.ID == exceptID || s.Authorized() || s.State == models.TransactionCanceled {
			continue
		}
		s.State = models.TransactionCanceled
		if err := m.transactions.Save(s); err != nil {
			return fmt.Errorf("cancel sibling transaction %d: %w", s.ID, err)
		}
	}
	return nil
}

// allocateNumber retries against the store until the generated token is
// unique; collisions are possible with the small random token space.
func (m *StateMachine) allocateNumber() (string, error) {
	for i := 0; i < numberAttempts; i++ {
		number := utils.GenerateTransactionNumber()
		taken, err := m.transactions.NumberTaken(number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", errNumberSpaceExhausted
}
