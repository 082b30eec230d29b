package ccavenue

import (
	"encoding/json"
	"net/url"
)

// API commands understood by the DoWebTrans servlet.
const (
	commandCancelOrder  = "cancelOrder"
	commandRefundOrder  = "refundOrder"
	commandOrderStatus  = "orderStatusTracker"
	requestTypeJSON     = "JSON"
	paramRequestType    = "request_type"
	paramAccessCode     = "access_code"
	paramCommand        = "command"
	paramEncRequest     = "enc_request"
	paramStatus         = "status"
	paramEncResponse    = "enc_response"
)

// RequestBuilder composes the flat form envelope for each API operation.
// Access code and crypter are bound at construction; the JSON payload is
// supplied per call and encrypted as a whole. Pure data transformation,
// no retries, no validation.
type RequestBuilder struct {
	accessCode string
	crypter    *Crypter
}

func NewRequestBuilder(accessCode string, crypter *Crypter) *RequestBuilder {
	return &RequestBuilder{accessCode: accessCode, crypter: crypter}
}

type cancelOrderRef struct {
	ReferenceNo string `json:"reference_no"`
	Amount      string `json:"amount"`
}

type cancelPayload struct {
	OrderList []cancelOrderRef `json:"order_List"`
}

type refundPayload struct {
	ReferenceNo  string `json:"reference_no"`
	RefundAmount string `json:"refund_amount"`
	RefundRefNo  string `json:"refund_ref_no"`
}

type statusPayload struct {
	ReferenceNo string `json:"reference_no"`
	OrderNo     string `json:"order_no"`
}

// CancelOrder builds the cancelOrder envelope for one tracking id and amount.
func (b *RequestBuilder) CancelOrder(trackingID, amount string) (url.Values, error) {
	return b.build(commandCancelOrder, cancelPayload{
		OrderList: []cancelOrderRef{{ReferenceNo: trackingID, Amount: amount}},
	})
}

// RefundOrder builds the refundOrder envelope. refundRefNo is the merchant's
// own reference for the refund (the gateway order number).
func (b *RequestBuilder) RefundOrder(trackingID, amount, refundRefNo string) (url.Values, error) {
	return b.build(commandRefundOrder, refundPayload{
		ReferenceNo:  trackingID,
		RefundAmount: amount,
		RefundRefNo:  refundRefNo,
	})
}

// OrderStatus builds the orderStatusTracker envelope. Both fields may be
// empty; the credential probe relies on that.
func (b *RequestBuilder) OrderStatus(trackingID, orderNo string) (url.Values, error) {
	return b.build(commandOrderStatus, statusPayload{ReferenceNo: trackingID, OrderNo: orderNo})
}

func (b *RequestBuilder) build(command string, payload interface{}) (url.Values, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	enc, err := b.crypter.Encrypt(data)
	if err != nil {
		return nil, err
	}
	return url.Values{
		paramRequestType: {requestTypeJSON},
		paramAccessCode:  {b.accessCode},
		paramCommand:     {command},
		paramEncRequest:  {enc},
	}, nil
}
