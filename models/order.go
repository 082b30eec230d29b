package models

import (
	"fmt"
	"net/url"
	"time"
)

// Order workflow states, owned by the storefront's checkout engine. The
// payment subsystem only reads them: payment may be initiated from the
// payment/confirm steps, and AdvanceAfterPayment moves the order forward
// once a transaction authorizes.
const (
	OrderCart     = "cart"
	OrderAddress  = "address"
	OrderPayment  = "payment"
	OrderConfirm  = "confirm"
	OrderComplete = "complete"
)

// Order is the checkout snapshot the payment subsystem works against.
type Order struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Number   string  `gorm:"type:varchar(32);not null;uniqueIndex" json:"number"`
	Total    float64 `gorm:"type:decimal(15,2);not null" json:"total"`
	Currency string  `gorm:"type:varchar(3);not null" json:"currency"`
	Email    string  `gorm:"type:varchar(191)" json:"email"`
	State    string  `gorm:"type:varchar(20);not null;default:'cart'" json:"state"`

	PromoCode string `gorm:"type:varchar(64)" json:"promo_code,omitempty"`

	// Set by the inventory system when stock reserved for this order can no
	// longer be fulfilled; checked again at callback time before any success
	// state is shown.
	InsufficientStock bool `gorm:"not null;default:false" json:"insufficient_stock"`

	BillingName    string `gorm:"type:varchar(191)" json:"billing_name"`
	BillingAddress string `gorm:"type:varchar(191)" json:"billing_address"`
	BillingCity    string `gorm:"type:varchar(100)" json:"billing_city"`
	BillingState   string `gorm:"type:varchar(100)" json:"billing_state"`
	BillingZip     string `gorm:"type:varchar(20)" json:"billing_zip"`
	BillingCountry string `gorm:"type:varchar(100)" json:"billing_country"`
	BillingTel     string `gorm:"type:varchar(32)" json:"billing_tel"`

	DeliveryName    string `gorm:"type:varchar(191)" json:"delivery_name"`
	DeliveryAddress string `gorm:"type:varchar(191)" json:"delivery_address"`
	DeliveryCity    string `gorm:"type:varchar(100)" json:"delivery_city"`
	DeliveryState   string `gorm:"type:varchar(100)" json:"delivery_state"`
	DeliveryZip     string `gorm:"type:varchar(20)" json:"delivery_zip"`
	DeliveryCountry string `gorm:"type:varchar(100)" json:"delivery_country"`
	DeliveryTel     string `gorm:"type:varchar(32)" json:"delivery_tel"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Order) TableName() string {
	return "orders"
}

// Confirmable reports whether checkout has progressed far enough for a
// payment to be sent.
func (o *Order) Confirmable() bool {
	return o.State == OrderPayment || o.State == OrderConfirm
}

func (o *Order) Complete() bool {
	return o.State == OrderComplete
}

// TotalString is the fixed two-decimal wire form of the order total.
func (o *Order) TotalString() string {
	return fmt.Sprintf("%.2f", o.Total)
}

// RedirectFields assembles the order/customer field set for the checkout
// redirect. The delivery block falls back to billing when no shipping
// address was captured.
func (o *Order) RedirectFields(gatewayOrderNumber, redirectURL string) url.Values {
	fields := url.Values{}
	fields.Set("order_id", gatewayOrderNumber)
	fields.Set("amount", o.TotalString())
	fields.Set("currency", o.Currency)
	fields.Set("promo_code", o.PromoCode)

	fields.Set("billing_name", o.BillingName)
	fields.Set("billing_address", o.BillingAddress)
	fields.Set("billing_city", o.BillingCity)
	fields.Set("billing_state", o.BillingState)
	fields.Set("billing_zip", o.BillingZip)
	fields.Set("billing_country", o.BillingCountry)
	fields.Set("billing_tel", o.BillingTel)
	fields.Set("billing_email", o.Email)

	deliveryName := o.DeliveryName
	if deliveryName == "" {
		deliveryName = o.BillingName
	}
	fields.Set("delivery_name", deliveryName)
	fields.Set("delivery_address", firstNonEmpty(o.DeliveryAddress, o.BillingAddress))
	fields.Set("delivery_city", firstNonEmpty(o.DeliveryCity, o.BillingCity))
	fields.Set("delivery_state", firstNonEmpty(o.DeliveryState, o.BillingState))
	fields.Set("delivery_zip", firstNonEmpty(o.DeliveryZip, o.BillingZip))
	fields.Set("delivery_country", firstNonEmpty(o.DeliveryCountry, o.BillingCountry))
	fields.Set("delivery_tel", firstNonEmpty(o.DeliveryTel, o.BillingTel))

	fields.Set("redirect_url", redirectURL)
	return fields
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
