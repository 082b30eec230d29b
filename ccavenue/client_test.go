package ccavenue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWorkingKey = "client-test-working-key"

// gatewayStub answers the DoWebTrans servlet with scripted payloads per command.
type gatewayStub struct {
	t        *testing.T
	crypter  *Crypter
	payloads map[string]string // command -> decrypted JSON payload
	calls    map[string]*int32
}

func newGatewayStub(t *testing.T, payloads map[string]string) *gatewayStub {
	calls := make(map[string]*int32)
	for cmd := range payloads {
		var n int32
		calls[cmd] = &n
	}
	return &gatewayStub{t: t, crypter: NewCrypter(testWorkingKey), payloads: payloads, calls: calls}
}

func (g *gatewayStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	require.NoError(g.t, r.ParseForm())
	cmd := r.PostFormValue("command")
	payload, ok := g.payloads[cmd]
	if !ok {
		g.t.Errorf("unexpected command %q", cmd)
		http.Error(w, "unexpected command", http.StatusBadRequest)
		return
	}
	atomic.AddInt32(g.calls[cmd], 1)

	// The request payload must decrypt with the shared working key
	plain, err := g.crypter.Decrypt(r.PostFormValue("enc_request"))
	require.NoError(g.t, err)
	require.NotEmpty(g.t, plain)

	enc, err := g.crypter.Encrypt([]byte(payload))
	require.NoError(g.t, err)
	_, _ = w.Write([]byte(url.Values{"status": {"0"}, "enc_response": {enc}}.Encode()))
}

func (g *gatewayStub) callCount(cmd string) int {
	return int(atomic.LoadInt32(g.calls[cmd]))
}

func stubClient(t *testing.T, stub *gatewayStub) *Client {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{
		MerchantID: "7890",
		AccessCode: "AVXX99ZZ",
		WorkingKey: testWorkingKey,
		APIURL:     srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{MerchantID: "7890", AccessCode: "AVXX99ZZ"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestNewClientModeEndpoints(t *testing.T) {
	prod, err := NewClient(Config{MerchantID: "1", AccessCode: "a", WorkingKey: "k"})
	require.NoError(t, err)
	test, err := NewClient(Config{MerchantID: "1", AccessCode: "a", WorkingKey: "k", TestMode: true})
	require.NoError(t, err)
	assert.NotEqual(t, prod.TransactionURL(), test.TransactionURL())
	assert.Contains(t, prod.TransactionURL(), "secure.ccavenue.com")
}

func TestOperationsRequireTrackingID(t *testing.T) {
	// No server: a missing tracking id must fail before any network I/O
	client, err := NewClient(Config{MerchantID: "1", AccessCode: "a", WorkingKey: "k"})
	require.NoError(t, err)

	_, err = client.Cancel(context.Background(), TransactionRef{})
	assert.ErrorIs(t, err, ErrMissingTrackingID)
	_, err = client.Refund(context.Background(), TransactionRef{})
	assert.ErrorIs(t, err, ErrMissingTrackingID)
	_, err = client.Status(context.Background(), "", "R1-1")
	assert.ErrorIs(t, err, ErrMissingTrackingID)
}

func TestVoidCancelSucceedsNoRefund(t *testing.T) {
	stub := newGatewayStub(t, map[string]string{
		"cancelOrder": `{"Order_Result":{"success_count":1}}`,
		"refundOrder": `{"Refund_Order_Result":{"refund_status":0}}`,
	})
	client := stubClient(t, stub)

	res, err := client.Void(context.Background(), TransactionRef{TrackingID: "306003", Amount: "10.00", GatewayOrderNumber: "R1-1"})
	require.NoError(t, err)
	assert.True(t, res.Successful())
	assert.Equal(t, 1, stub.callCount("cancelOrder"))
	assert.Equal(t, 0, stub.callCount("refundOrder"), "refund must not run when cancel succeeded")
}

func TestVoidEscalatesToRefundExactlyOnce(t *testing.T) {
	stub := newGatewayStub(t, map[string]string{
		"cancelOrder": `{"Order_Result":{"success_count":0,"failed_List":{"failed_order":{"reason":"already settled"}}}}`,
		"refundOrder": `{"Refund_Order_Result":{"refund_status":0}}`,
	})
	client := stubClient(t, stub)

	res, err := client.Void(context.Background(), TransactionRef{TrackingID: "306003", Amount: "10.00", GatewayOrderNumber: "R1-1"})
	require.NoError(t, err)
	assert.True(t, res.Successful())
	require.NotNil(t, res.Refund)
	assert.Equal(t, 1, stub.callCount("cancelOrder"))
	assert.Equal(t, 1, stub.callCount("refundOrder"))
}

func TestVoidBothLegsFail(t *testing.T) {
	stub := newGatewayStub(t, map[string]string{
		"cancelOrder": `{"Order_Result":{"success_count":0,"failed_List":{"failed_order":{"reason":"already settled"}}}}`,
		"refundOrder": `{"Refund_Order_Result":{"refund_status":1,"reason":"refund window closed"}}`,
	})
	client := stubClient(t, stub)

	res, err := client.Void(context.Background(), TransactionRef{TrackingID: "306003", Amount: "10.00", GatewayOrderNumber: "R1-1"})
	require.NoError(t, err)
	assert.False(t, res.Successful())
	// the refund outcome is authoritative when the cancel path failed
	assert.Equal(t, "refund window closed", res.Reason())
}

func TestTransportFailureBecomesFailedOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client, err := NewClient(Config{
		MerchantID: "7890",
		AccessCode: "AVXX99ZZ",
		WorkingKey: testWorkingKey,
		APIURL:     srv.URL,
	})
	require.NoError(t, err)

	res, err := client.Cancel(context.Background(), TransactionRef{TrackingID: "306003", Amount: "10.00"})
	require.NoError(t, err, "transport faults fold into the outcome, not an error")
	assert.False(t, res.Successful())
	assert.False(t, res.TransportOK)
	assert.NotEmpty(t, res.Reason)
}

func TestStatusQuery(t *testing.T) {
	stub := newGatewayStub(t, map[string]string{
		"orderStatusTracker": `{"Order_Status_Result":{"status":0,"order_status":"Successful"}}`,
	})
	client := stubClient(t, stub)

	res, err := client.Status(context.Background(), "306003", "R1-1")
	require.NoError(t, err)
	assert.True(t, res.Successful())
	assert.Equal(t, "Successful", res.OrderStatus)
}

func TestValidateCredentialsProbe(t *testing.T) {
	stub := newGatewayStub(t, map[string]string{
		"orderStatusTracker": `{"Order_Status_Result":{"status":1,"error_code":"51004","error_desc":"Providing Reference No/Order No is mandatory."}}`,
	})
	client := stubClient(t, stub)

	res, err := client.ValidateCredentials(context.Background(), "AVXX99ZZ", testWorkingKey)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 1, stub.callCount("orderStatusTracker"))
}

func TestValidateCredentialsRejectsBadKey(t *testing.T) {
	// A gateway that cannot decrypt the request answers with a plaintext
	// authentication failure in the envelope, status=1.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(url.Values{"status": {"1"}, "enc_response": {"Merchant Authentication failed"}}.Encode()))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		MerchantID: "7890",
		AccessCode: "AVXX99ZZ",
		WorkingKey: testWorkingKey,
		APIURL:     srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)

	res, err := client.ValidateCredentials(context.Background(), "AVXX99ZZ", "some-wrong-key")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Merchant Authentication failed", res.Reason)
}

func TestBuildCheckoutRedirect(t *testing.T) {
	client, err := NewClient(Config{MerchantID: "7890", AccessCode: "AVXX99ZZ", WorkingKey: testWorkingKey})
	require.NoError(t, err)

	enc, err := client.BuildCheckoutRedirect(url.Values{
		"order_id": {"R123456789-7"},
		"amount":   {"125.00"},
		"currency": {"INR"},
	})
	require.NoError(t, err)

	plain, err := NewCrypter(testWorkingKey).Decrypt(enc)
	require.NoError(t, err)
	fields, err := url.ParseQuery(string(plain))
	require.NoError(t, err)

	assert.Equal(t, "7890", fields.Get("merchant_id"))
	assert.Equal(t, "R123456789-7", fields.Get("order_id"))
	assert.Equal(t, "EN", fields.Get("language"))
	for _, p := range []string{"merchant_param1", "merchant_param2", "merchant_param3", "merchant_param4", "merchant_param5"} {
		_, present := fields[p]
		assert.True(t, present, p)
	}
}

func TestParseCallbackRoundTrip(t *testing.T) {
	client, err := NewClient(Config{MerchantID: "7890", AccessCode: "AVXX99ZZ", WorkingKey: testWorkingKey})
	require.NoError(t, err)

	payload := url.Values{
		"order_id":     {"R123456789-7"},
		"order_status": {"Success"},
		"tracking_id":  {"306003244234"},
		"amount":       {"125.00"},
	}
	enc, err := NewCrypter(testWorkingKey).Encrypt([]byte(payload.Encode()))
	require.NoError(t, err)

	vals, err := client.ParseCallback(enc)
	require.NoError(t, err)
	assert.Equal(t, "Success", vals.Get("order_status"))
	assert.Equal(t, "R123456789-7", vals.Get("order_id"))

	_, err = client.ParseCallback("not-even-hex")
	assert.Error(t, err)
}
