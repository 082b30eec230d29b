package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/godaddy/spree-ccavenue-api/ccavenue"
	"github.com/godaddy/spree-ccavenue-api/models"
)

// Outcome is the signal handed back to the checkout flow after a callback.
type Outcome string

const (
	OutcomeCompleted               Outcome = "completed"
	OutcomeRejected                Outcome = "rejected"
	OutcomeCanceled                Outcome = "canceled"
	OutcomeInitiated               Outcome = "initiated"
	OutcomeVoidedInsufficientStock Outcome = "voided_insufficient_stock"
	OutcomeVoidedMismatch          Outcome = "voided_mismatch"
	OutcomeError                   Outcome = "error"
)

// User-facing messages per outcome. The void-failed variants are deliberately
// more severe than a plain payment failure: funds may still be held.
const (
	msgCompleted      = "Your order has been processed successfully."
	msgInitiated      = "Your payment is still being processed by the gateway. You will be notified once it completes."
	msgLowInventory   = "Some items in your order went out of stock and your payment has been reversed."
	msgVoidFailed     = "We could not reverse your payment automatically. Please contact support; the funds may still be held."
	msgMismatch       = "The gateway response did not match your order. Your payment has been reversed; please try again."
	msgGenericFailure = "The payment could not be processed. Please try again."
)

var (
	// ErrGatewayNotConfigured blocks payment initiation until a full
	// credential set has been saved.
	ErrGatewayNotConfigured = errors.New("payment: gateway credentials are not configured")

	// ErrUnknownTransaction means the callback's correlation reference did
	// not resolve to a local transaction.
	ErrUnknownTransaction = errors.New("payment: callback does not match a known transaction")
)

// Gateway is what the service needs from the protocol client; satisfied by
// *ccavenue.Client and faked in tests.
type Gateway interface {
	MerchantID() string
	AccessCode() string
	TransactionURL() string
	BuildCheckoutRedirect(orderFields url.Values) (string, error)
	ParseCallback(encryptedResponse string) (url.Values, error)
	Void(ctx context.Context, ref ccavenue.TransactionRef) (ccavenue.VoidResult, error)
	Status(ctx context.Context, trackingID, orderNo string) (ccavenue.StatusResult, error)
}

// RedirectParams are the fields the storefront renders into the
// auto-submitting form that sends the customer to the gateway.
type RedirectParams struct {
	MerchantID     string `json:"merchant_id"`
	AccessCode     string `json:"access_code"`
	TransactionURL string `json:"transaction_url"`
	EncRequest     string `json:"enc_request"`
}

// CallbackResult is what HandleCallback reports back to the checkout flow.
type CallbackResult struct {
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
	// VoidFailed marks the severe case where a required reversal did not go
	// through and funds may still be held.
	VoidFailed bool `json:"void_failed,omitempty"`
}

// Service wires the state machine, the protocol client and the order
// workflow together. One instance serves all requests; it holds no mutable
// per-transaction state.
type Service struct {
	gateway      Gateway
	orders       OrderStore
	transactions TransactionStore
	workflow     OrderWorkflow
	machine      *StateMachine
}

func NewService(gateway Gateway, orders OrderStore, transactions TransactionStore, workflow OrderWorkflow) *Service {
	return &Service{
		gateway:      gateway,
		orders:       orders,
		transactions: transactions,
		workflow:     workflow,
		machine:      NewStateMachine(transactions),
	}
}

// InitiatePayment creates a new payment attempt for the order and returns the
// redirect fields. The transact transition, including canceling prior sibling
// attempts, is durable before the encrypted payload is built, so two live
// attempts for one order can never coexist.
func (s *Service) InitiatePayment(ctx context.Context, orderNumber, redirectURL string) (*RedirectParams, error) {
	order, err := s.orders.FindByNumber(orderNumber)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderNumber, err)
	}
	t := &models.Transaction{
		OrderID:  order.ID,
		Amount:   order.Total,
		Currency: order.Currency,
		State:    models.TransactionCreated,
	}
	if err := s.transactions.Create(t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	if err := s.machine.Transact(order, t); err != nil {
		return nil, err
	}

	fields := order.RedirectFields(t.GatewayOrderNumber(order.Number), redirectURL)
	enc, err := s.gateway.BuildCheckoutRedirect(fields)
	if err != nil {
		return nil, fmt.Errorf("build redirect payload: %w", err)
	}
	return &RedirectParams{
		MerchantID:     s.gateway.MerchantID(),
		AccessCode:     s.gateway.AccessCode(),
		TransactionURL: s.gateway.TransactionURL(),
		EncRequest:     enc,
	}, nil
}

// HandleCallback decrypts the gateway's browser-redirect payload, locates the
// transaction through the embedded order reference, records the reported
// outcome and drives the state machine, voiding the payment when stock ran
// out or the reported order/amount does not match.
func (s *Service) HandleCallback(ctx context.Context, encryptedResponse string) (CallbackResult, error) {
	vals, err := s.gateway.ParseCallback(encryptedResponse)
	if err != nil {
		log.Printf("[payment] undecryptable callback payload: %v", err)
		return errorResult(), nil
	}

	t, order, err := s.locate(vals.Get("order_id"))
	if err != nil {
		return CallbackResult{}, err
	}
	if t.Authorized() {
		// replayed callback for a finished transaction
		return CallbackResult{Outcome: OutcomeCompleted, Message: msgCompleted}, nil
	}

	s.recordCallback(t, vals)
	if err := s.transactions.Save(t); err != nil {
		return CallbackResult{}, fmt.Errorf("save transaction %d: %w", t.ID, err)
	}

	if !t.Success() {
		return s.settleNonSuccess(t), nil
	}

	// Success path: guard against tampered or replayed redirects before
	// anything user-visible happens.
	if s.mismatch(t, order, vals) {
		log.Printf("[payment] order %s transaction %d: gateway-confirmed order/amount mismatch, voiding", order.Number, t.ID)
		return s.voidAndCancel(ctx, t, order, OutcomeVoidedMismatch, msgMismatch)
	}

	if s.workflow.InsufficientStock(order) {
		log.Printf("[payment] order %s transaction %d: insufficient stock after payment, voiding", order.Number, t.ID)
		return s.voidAndCancel(ctx, t, order, OutcomeVoidedInsufficientStock, msgLowInventory)
	}

	s.machine.Next(t)
	if err := s.transactions.Save(t); err != nil {
		return CallbackResult{}, fmt.Errorf("save transaction %d: %w", t.ID, err)
	}
	// hand control back to the order workflow; a failed hand-off propagates
	// so the caller never shows success for an order that did not advance
	if err := s.workflow.AttachPaymentAndAdvance(order, t); err != nil {
		return CallbackResult{}, fmt.Errorf("advance order %s after payment: %w", order.Number, err)
	}
	return CallbackResult{Outcome: OutcomeCompleted, Message: msgCompleted}, nil
}

// SyncStatus queries the gateway for the current order status and re-runs the
// lifecycle transition. This is the resolution path for transactions stuck in
// initiated; no automatic timeout policy is applied here.
func (s *Service) SyncStatus(ctx context.Context, transactionID uint) (CallbackResult, error) {
	t, err := s.transactions.Find(transactionID)
	if err != nil {
		return CallbackResult{}, err
	}
	order, err := s.orders.Find(t.OrderID)
	if err != nil {
		return CallbackResult{}, err
	}
	if t.TrackingID == nil {
		return CallbackResult{}, ccavenue.ErrMissingTrackingID
	}
	res, err := s.gateway.Status(ctx, *t.TrackingID, t.GatewayOrderNumber(order.Number))
	if err != nil {
		return CallbackResult{}, err
	}
	if !res.Successful() {
		return errorResult(), nil
	}
	t.AuthDesc = res.OrderStatus
	s.machine.Next(t)
	if err := s.transactions.Save(t); err != nil {
		return CallbackResult{}, err
	}
	if t.Authorized() {
		if err := s.workflow.AttachPaymentAndAdvance(order, t); err != nil {
			return CallbackResult{}, fmt.Errorf("advance order %s after status sync: %w", order.Number, err)
		}
		return CallbackResult{Outcome: OutcomeCompleted, Message: msgCompleted}, nil
	}
	return s.settleNonSuccess(t), nil
}

// locate resolves the embedded {orderNumber}-{transactionID} reference.
func (s *Service) locate(gatewayOrderNumber string) (*models.Transaction, *models.Order, error) {
	idx := strings.LastIndex(gatewayOrderNumber, "-")
	if idx < 0 {
		return nil, nil, ErrUnknownTransaction
	}
	id, err := strconv.ParseUint(gatewayOrderNumber[idx+1:], 10, 64)
	if err != nil {
		return nil, nil, ErrUnknownTransaction
	}
	t, err := s.transactions.Find(uint(id))
	if err != nil {
		return nil, nil, ErrUnknownTransaction
	}
	order, err := s.orders.Find(t.OrderID)
	if err != nil {
		return nil, nil, fmt.Errorf("load order %d: %w", t.OrderID, err)
	}
	return t, order, nil
}

func (s *Service) recordCallback(t *models.Transaction, vals url.Values) {
	t.AuthDesc = vals.Get("order_status")
	t.CardCategory = vals.Get("card_name")
	if tid := vals.Get("tracking_id"); tid != "" {
		t.TrackingID = &tid
	}
	if amt, err := strconv.ParseFloat(vals.Get("amount"), 64); err == nil {
		t.GatewayAmount = &amt
	}
}

// mismatch checks the gateway-confirmed order reference and settled amount
// against the local order.
func (s *Service) mismatch(t *models.Transaction, order *models.Order, vals url.Values) bool {
	if vals.Get("order_id") != t.GatewayOrderNumber(order.Number) {
		return true
	}
	if t.GatewayAmount == nil {
		return true
	}
	return math.Abs(*t.GatewayAmount-order.Total) >= 0.005
}

func (s *Service) settleNonSuccess(t *models.Transaction) CallbackResult {
	s.machine.Next(t)
	if err := s.transactions.Save(t); err != nil {
		log.Printf("[payment] save transaction %d: %v", t.ID, err)
		return errorResult()
	}
	switch t.State {
	case models.TransactionRejected:
		return CallbackResult{Outcome: OutcomeRejected, Message: t.TransactionError()}
	case models.TransactionCanceled:
		return CallbackResult{Outcome: OutcomeCanceled, Message: t.TransactionError()}
	case models.TransactionInitiated:
		return CallbackResult{Outcome: OutcomeInitiated, Message: msgInitiated}
	default:
		return errorResult()
	}
}

// voidAndCancel reverses the captured payment and marks the transaction
// canceled. A failed void is reported as the distinct, more severe error.
func (s *Service) voidAndCancel(ctx context.Context, t *models.Transaction, order *models.Order, outcome Outcome, message string) (CallbackResult, error) {
	if t.TrackingID == nil {
		return CallbackResult{}, ccavenue.ErrMissingTrackingID
	}
	ref := ccavenue.TransactionRef{
		TrackingID:         *t.TrackingID,
		Amount:             t.VoidAmountString(),
		GatewayOrderNumber: t.GatewayOrderNumber(order.Number),
	}
	res, err := s.gateway.Void(ctx, ref)
	if err != nil {
		return CallbackResult{}, err
	}
	if err := s.machine.Cancel(t); err != nil {
		return CallbackResult{}, err
	}
	if !res.Successful() {
		log.Printf("[payment] void failed for transaction %d: %s", t.ID, res.Reason())
		return CallbackResult{Outcome: outcome, Message: msgVoidFailed, VoidFailed: true}, nil
	}
	return CallbackResult{Outcome: outcome, Message: message}, nil
}

func errorResult() CallbackResult {
	return CallbackResult{Outcome: OutcomeError, Message: msgGenericFailure}
}
