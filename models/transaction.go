package models

import (
	"fmt"
	"strconv"
	"time"
)

// Transaction lifecycle states. created -> sent -> {authorized | rejected |
// canceled | initiated}; batch is reachable only through manual admin
// re-submission and resolves through the same terminal transitions as sent.
// authorized is terminal and can never be canceled or re-entered.
const (
	TransactionCreated    = "created"
	TransactionSent       = "sent"
	TransactionBatch      = "batch"
	TransactionAuthorized = "authorized"
	TransactionRejected   = "rejected"
	TransactionCanceled   = "canceled"
	TransactionInitiated  = "initiated"
)

// Status tokens the gateway reports in the callback's order_status field.
const (
	AuthDescSuccess   = "Success"
	AuthDescFailure   = "Failure"
	AuthDescAborted   = "Aborted"
	AuthDescInitiated = "initiated"
)

// Transaction is one payment attempt against the gateway for one order.
type Transaction struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	OrderID uint   `gorm:"not null;index" json:"order_id"`
	Number  string `gorm:"type:varchar(32);not null;uniqueIndex" json:"number"`

	Amount   float64 `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency string  `gorm:"type:varchar(3);not null" json:"currency"`

	// Assigned by the gateway after a successful send; required for every
	// post-authorization operation.
	TrackingID *string `gorm:"type:varchar(191);index" json:"tracking_id,omitempty"`

	// Populated from the redirect callback.
	AuthDesc     string `gorm:"type:varchar(32)" json:"auth_desc"`
	CardCategory string `gorm:"type:varchar(64)" json:"card_category"`
	// Gateway-reported captured amount; authoritative over Amount for
	// settlement reconciliation and voids.
	GatewayAmount *float64 `gorm:"type:decimal(15,2)" json:"gateway_amount,omitempty"`

	State     string    `gorm:"type:varchar(20);not null;default:'created'" json:"state"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Transaction) TableName() string {
	return "ccavenue_transactions"
}

func (t *Transaction) Success() bool {
	return t.AuthDesc == AuthDescSuccess
}

func (t *Transaction) Failed() bool {
	return t.AuthDesc == AuthDescFailure
}

func (t *Transaction) Aborted() bool {
	return t.AuthDesc == AuthDescAborted
}

func (t *Transaction) Authorized() bool {
	return t.State == TransactionAuthorized
}

// GatewayOrderNumber embeds the transaction id into the gateway-visible order
// reference so the asynchronous callback can be matched back to this record.
func (t *Transaction) GatewayOrderNumber(orderNumber string) string {
	return orderNumber + "-" + strconv.FormatUint(uint64(t.ID), 10)
}

// AmountString is the fixed two-decimal wire form of the local amount.
func (t *Transaction) AmountString() string {
	return fmt.Sprintf("%.2f", t.Amount)
}

// VoidAmountString prefers the gateway-confirmed amount since that reflects
// what was actually captured.
func (t *Transaction) VoidAmountString() string {
	if t.GatewayAmount != nil {
		return fmt.Sprintf("%.2f", *t.GatewayAmount)
	}
	return t.AmountString()
}

// TransactionError is the user-facing message for a non-successful callback.
func (t *Transaction) TransactionError() string {
	switch {
	case t.Success():
		return ""
	case t.Failed():
		return "Your payment was declined by the payment gateway."
	case t.Aborted():
		return "The payment was aborted before completion."
	default:
		return "The payment could not be processed. Please try again."
	}
}
