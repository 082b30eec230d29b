package admins

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/godaddy/spree-ccavenue-api/database"
	"github.com/godaddy/spree-ccavenue-api/models"
	"github.com/godaddy/spree-ccavenue-api/payment"
	"github.com/godaddy/spree-ccavenue-api/utils"
)

type TransactionResponse struct {
	ID          uint    `json:"id"`
	OrderID     uint    `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	Number      string  `json:"number"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	State       string  `json:"state"`
	AuthDesc    string  `json:"auth_desc"`
	TrackingID  string  `json:"tracking_id"`
	CreatedAt   string  `json:"created_at"`
}

// GET /api/admin/transactions
func GetTransactions(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	state := r.URL.Query().Get("state")
	search := r.URL.Query().Get("search")

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	db := database.DB
	query := db.Model(&models.Transaction{})
	if state != "" {
		query = query.Where("state = ?", state)
	}
	if search != "" {
		query = query.Where("number LIKE ? OR tracking_id LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var transactions []models.Transaction
	query.Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&transactions)

	// Fetch order numbers in batch
	orderIDsSet := make(map[uint]struct{})
	for _, t := range transactions {
		orderIDsSet[t.OrderID] = struct{}{}
	}
	var orderIDs []uint
	for id := range orderIDsSet {
		orderIDs = append(orderIDs, id)
	}
	ordersByID := make(map[uint]models.Order, len(orderIDs))
	if len(orderIDs) > 0 {
		var orders []models.Order
		db.Select("id, number").Where("id IN ?", orderIDs).Find(&orders)
		for _, o := range orders {
			ordersByID[o.ID] = o
		}
	}

	var response []TransactionResponse
	for _, t := range transactions {
		trackingID := ""
		if t.TrackingID != nil {
			trackingID = *t.TrackingID
		}
		response = append(response, TransactionResponse{
			ID:          t.ID,
			OrderID:     t.OrderID,
			OrderNumber: ordersByID[t.OrderID].Number,
			Number:      t.Number,
			Amount:      t.Amount,
			Currency:    t.Currency,
			State:       t.State,
			AuthDesc:    t.AuthDesc,
			TrackingID:  trackingID,
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		})
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    response,
	})
}

// POST /api/admin/transactions/{id}/sync
// Re-queries the gateway for a transaction still in flight and re-runs the
// state transition with the fresh outcome.
func SyncTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "Invalid transaction id",
		})
		return
	}

	svc, err := payment.NewServiceFromDB(database.DB)
	if err != nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{
			Success: false,
			Message: "Payment gateway is not configured",
		})
		return
	}

	result, err := svc.SyncStatus(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{
				Success: false,
				Message: "Transaction not found",
			})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Failed to sync transaction",
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: result.Message,
		Data:    result,
	})
}
