package ccavenue

import (
	"encoding/json"
	"log"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ParseFailedReason is the stock reason attached to any response the parser
// could not make sense of. Parse failures never escape the parser; they all
// funnel into a failed outcome carrying this reason.
const ParseFailedReason = "could not parse Gateway response"

// UnknownAPIErrorReason is used when the gateway reports a failure without a reason.
const UnknownAPIErrorReason = "unknown Gateway error"

// merchantCredsValidErrorCode is what the orderStatusTracker endpoint returns
// for an empty reference number. Receiving it proves the credentials round-trip.
const merchantCredsValidErrorCode = "51004"

// Older gateway builds omit the error code and only send a textual reason.
var credsValidReasonRe = regexp.MustCompile(`^Providing Reference.*is mandatory\.?$`)

// Result is the transport/business envelope shared by every API outcome.
// Overall success always requires transport success AND api success; absence
// of an expected field is failure, never implicit success.
type Result struct {
	TransportOK bool
	APIOK       bool
	Reason      string
	ErrorCode   string
}

func (r Result) requestOK() bool { return r.TransportOK && r.APIOK }

// TransportFailure builds the outcome for a request that never completed at
// the HTTP level (timeout, connection failure). reason carries the transport
// error message.
func TransportFailure(reason string) Result {
	return Result{TransportOK: false, APIOK: false, Reason: reason}
}

func parseFailure() Result {
	return Result{TransportOK: true, APIOK: false, Reason: ParseFailedReason}
}

// CancelResult is the outcome of a cancelOrder call.
type CancelResult struct {
	Result
	// SuccessCount is nil when absent or non-numeric in the response.
	SuccessCount *int
}

// Successful reports whether the gateway actually canceled the order.
func (r CancelResult) Successful() bool {
	return r.requestOK() && r.SuccessCount != nil && *r.SuccessCount > 0
}

// RefundResult is the outcome of a refundOrder call.
type RefundResult struct {
	Result
	refundOK bool
}

// Successful reports whether the refund was accepted.
func (r RefundResult) Successful() bool {
	return r.requestOK() && r.refundOK && r.Reason == ""
}

// StatusResult is the outcome of an orderStatusTracker call.
type StatusResult struct {
	Result
	statusOK             bool
	OrderStatus          string
	OrderStatusUpdatedAt string
}

// Successful reports whether the status query itself succeeded.
func (r StatusResult) Successful() bool {
	return r.requestOK() && r.statusOK
}

// CredentialCheckResult is the outcome of the merchant credential probe.
type CredentialCheckResult struct {
	Result
	Valid bool
}

// VoidResult combines the cancel attempt and, when cancel did not succeed,
// the fallback refund. The refund outcome is authoritative when present.
type VoidResult struct {
	Cancel CancelResult
	Refund *RefundResult
}

// Successful reports whether either compensating operation took effect.
func (v VoidResult) Successful() bool {
	if v.Cancel.Successful() {
		return true
	}
	return v.Refund != nil && v.Refund.Successful()
}

// Reason surfaces the authoritative failure reason: the refund's when the
// cancel path failed, else the cancel's.
func (v VoidResult) Reason() string {
	if v.Refund != nil {
		return v.Refund.Reason
	}
	return v.Cancel.Reason
}

// ParseCancelResponse classifies a raw cancelOrder HTTP body.
func ParseCancelResponse(body string, crypter *Crypter) CancelResult {
	payload, res, ok := decodeAPIBody(body, crypter)
	if !ok {
		return CancelResult{Result: res}
	}
	order, found := childObject(payload, "Order_Result")
	if !found {
		logUnknownShape("cancelOrder", payload)
		return CancelResult{Result: parseFailure()}
	}
	out := CancelResult{Result: res}
	out.SuccessCount = intField(order, "success_count")
	if failed, ok := firstFailedOrder(order); ok {
		out.Reason = stringField(failed, "reason")
		out.ErrorCode = stringField(failed, "error_code")
		if out.Reason == "" {
			out.Reason = ParseFailedReason
		}
	}
	return out
}

// ParseRefundResponse classifies a raw refundOrder HTTP body.
func ParseRefundResponse(body string, crypter *Crypter) RefundResult {
	payload, res, ok := decodeAPIBody(body, crypter)
	if !ok {
		return RefundResult{Result: res}
	}
	refund, found := childObject(payload, "Refund_Order_Result")
	if !found {
		logUnknownShape("refundOrder", payload)
		return RefundResult{Result: parseFailure()}
	}
	out := RefundResult{Result: res}
	if n := intField(refund, "refund_status"); n != nil && *n == 0 {
		out.refundOK = true
	}
	// reason/error_code are only present on failed refunds
	out.Reason = stringField(refund, "reason")
	out.ErrorCode = stringField(refund, "error_code")
	return out
}

// ParseStatusResponse classifies a raw orderStatusTracker HTTP body.
func ParseStatusResponse(body string, crypter *Crypter) StatusResult {
	payload, res, ok := decodeAPIBody(body, crypter)
	if !ok {
		return StatusResult{Result: res}
	}
	status, found := childObject(payload, "Order_Status_Result")
	if !found {
		logUnknownShape("orderStatusTracker", payload)
		return StatusResult{Result: parseFailure()}
	}
	out := StatusResult{Result: res}
	if n := intField(status, "status"); n != nil && *n == 0 {
		out.statusOK = true
	}
	out.OrderStatus = stringField(status, "order_status")
	out.OrderStatusUpdatedAt = stringField(status, "order_status_date_time")
	out.Reason = stringField(status, "error_desc")
	out.ErrorCode = stringField(status, "error_code")
	return out
}

// ParseCredentialCheckResponse interprets the orderStatusTracker response for
// the credential probe. The usual meaning of error is inverted: the expected
// "reference number is mandatory" business error is the success signal.
func ParseCredentialCheckResponse(body string, crypter *Crypter) CredentialCheckResult {
	payload, res, ok := decodeAPIBody(body, crypter)
	if !ok {
		return CredentialCheckResult{Result: res}
	}
	status, found := childObject(payload, "Order_Status_Result")
	if !found {
		logUnknownShape("credential check", payload)
		return CredentialCheckResult{Result: parseFailure()}
	}
	out := CredentialCheckResult{Result: res}
	out.Reason = stringField(status, "error_desc")
	out.ErrorCode = stringField(status, "error_code")
	if n := intField(status, "status"); n != nil && *n == 0 {
		// a completed order with no reference number should never happen
		log.Printf("[ccavenue] credential probe returned status 0, which should never happen: %v", payload)
		out.Reason = "unexpected Gateway status 0 for credential probe"
		return out
	}
	if out.ErrorCode == merchantCredsValidErrorCode || credsValidReasonRe.MatchString(out.Reason) {
		out.Valid = true
		return out
	}
	if out.Reason == "" {
		out.Reason = UnknownAPIErrorReason
	}
	return out
}

// decodeAPIBody handles the outer envelope shared by all API responses:
// url-encoded "status" plus "enc_response". status "1" means the request
// failed before reaching business logic and enc_response is a plaintext
// reason, not ciphertext. Otherwise enc_response is decrypted (after
// stripping the gateway's literal `\r\n` escape artifacts) and parsed as
// JSON. The third return value is false when the caller should stop with
// the returned Result.
func decodeAPIBody(body string, crypter *Crypter) (map[string]interface{}, Result, bool) {
	vals, err := url.ParseQuery(body)
	if err != nil {
		log.Printf("[ccavenue] unparseable api response body: %q", body)
		return nil, parseFailure(), false
	}
	if vals.Get(paramStatus) == "1" {
		return nil, Result{TransportOK: true, APIOK: false, Reason: vals.Get(paramEncResponse)}, false
	}
	enc := strings.TrimSpace(strings.ReplaceAll(vals.Get(paramEncResponse), `\r\n`, ""))
	plain, err := crypter.Decrypt(enc)
	if err != nil {
		log.Printf("[ccavenue] failed to decrypt api response: %v", err)
		return nil, parseFailure(), false
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(plain, &payload); err != nil {
		log.Printf("[ccavenue] api response is not valid JSON: %q", string(plain))
		return nil, parseFailure(), false
	}
	return payload, Result{TransportOK: true, APIOK: true}, true
}

func logUnknownShape(op string, payload map[string]interface{}) {
	log.Printf("[ccavenue] unknown %s response shape: %v", op, payload)
}

func childObject(m map[string]interface{}, key string) (map[string]interface{}, bool) {
	child, ok := m[key].(map[string]interface{})
	return child, ok
}

// firstFailedOrder digs out the first entry of failed_List.failed_order,
// which the gateway serializes as an object for one failure and an array
// for several.
func firstFailedOrder(order map[string]interface{}) (map[string]interface{}, bool) {
	list, ok := childObject(order, "failed_List")
	if !ok {
		return nil, false
	}
	switch v := list["failed_order"].(type) {
	case map[string]interface{}:
		return v, true
	case []interface{}:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]interface{}); ok {
				return first, true
			}
		}
	}
	return nil, false
}

// intField reads a numeric field that the gateway sends either as a JSON
// number or a digit string. nil when absent or non-numeric.
func intField(m map[string]interface{}, key string) *int {
	switch v := m[key].(type) {
	case float64:
		n := int(v)
		return &n
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return &n
		}
	}
	return nil
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
