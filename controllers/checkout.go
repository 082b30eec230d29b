package controllers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/godaddy/spree-ccavenue-api/models"
	"github.com/godaddy/spree-ccavenue-api/payment"
	"github.com/godaddy/spree-ccavenue-api/utils"
)

// CheckoutController serves the two customer-facing legs of a gateway
// payment: handing the order off to the gateway and receiving the encrypted
// callback when the customer returns.
type CheckoutController struct {
	db *gorm.DB
}

func NewCheckoutController(db *gorm.DB) *CheckoutController {
	return &CheckoutController{db: db}
}

// service assembles a payment service from the persisted gateway settings.
// Built per request so a settings change through the admin surface takes
// effect without a restart.
func (c *CheckoutController) service() (*payment.Service, error) {
	return payment.NewServiceFromDB(c.db)
}

// Pay starts a payment attempt for the order and returns the fields the
// storefront renders into the auto-submitting gateway form.
func (c *CheckoutController) Pay(w http.ResponseWriter, r *http.Request) {
	orderNumber := mux.Vars(r)["order_number"]
	redirectURL := r.URL.Query().Get("redirect_url")
	if redirectURL == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "redirect_url query parameter is required",
		})
		return
	}

	svc, err := c.service()
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	params, err := svc.InitiatePayment(r.Context(), orderNumber, redirectURL)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Payment initiated",
		Data:    params,
	})
}

// Callback receives the gateway's browser-redirect POST. The body is a form
// whose encResp field holds the encrypted outcome.
func (c *CheckoutController) Callback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "Invalid form body",
		})
		return
	}
	encResp := r.PostFormValue("encResp")
	if encResp == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "Missing encResp field",
		})
		return
	}

	svc, err := c.service()
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	result, err := svc.HandleCallback(r.Context(), encResp)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: result.Outcome == payment.OutcomeCompleted,
		Message: result.Message,
		Data:    result,
	})
}

// Status reports the order's checkout state and the latest payment attempt,
// for the storefront to poll after the customer returns from the gateway.
func (c *CheckoutController) Status(w http.ResponseWriter, r *http.Request) {
	orderNumber := mux.Vars(r)["order_number"]
	orders := payment.NewOrderStore(c.db)
	order, err := orders.FindByNumber(orderNumber)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	data := map[string]interface{}{
		"order_number": order.Number,
		"order_state":  order.State,
		"total":        order.Total,
		"currency":     order.Currency,
	}
	transactions, err := payment.NewTransactionStore(c.db).ForOrder(order.ID)
	if err == nil && len(transactions) > 0 {
		latest := transactions[len(transactions)-1]
		data["transaction_state"] = latest.State
		if latest.State == models.TransactionRejected || latest.State == models.TransactionCanceled {
			data["failure_message"] = latest.TransactionError()
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    data,
	})
}

func (c *CheckoutController) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrGatewayNotConfigured):
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{
			Success: false,
			Message: "Payment gateway is not configured",
		})
	case errors.Is(err, payment.ErrOrderNotConfirmable):
		utils.WriteJSON(w, http.StatusUnprocessableEntity, utils.APIResponse{
			Success: false,
			Message: "Order is not ready for payment",
		})
	case errors.Is(err, payment.ErrUnknownTransaction):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{
			Success: false,
			Message: "Unknown transaction reference",
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{
			Success: false,
			Message: "Order not found",
		})
	default:
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Payment processing failed",
		})
	}
}
