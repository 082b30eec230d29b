package ccavenue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuilder() (*RequestBuilder, *Crypter) {
	crypter := NewCrypter("test-working-key")
	return NewRequestBuilder("AVXX99ZZ", crypter), crypter
}

// decryptRequest pulls the enc_request field back out of the envelope.
func decryptRequest(t *testing.T, crypter *Crypter, enc string) map[string]interface{} {
	t.Helper()
	plain, err := crypter.Decrypt(enc)
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(plain, &payload))
	return payload
}

func TestCancelOrderEnvelope(t *testing.T) {
	b, crypter := testBuilder()

	form, err := b.CancelOrder("306003244234", "125.00")
	require.NoError(t, err)

	assert.Equal(t, "JSON", form.Get("request_type"))
	assert.Equal(t, "AVXX99ZZ", form.Get("access_code"))
	assert.Equal(t, "cancelOrder", form.Get("command"))

	payload := decryptRequest(t, crypter, form.Get("enc_request"))
	list, ok := payload["order_List"].([]interface{})
	require.True(t, ok, "order_List must be an array")
	require.Len(t, list, 1)
	entry := list[0].(map[string]interface{})
	assert.Equal(t, "306003244234", entry["reference_no"])
	assert.Equal(t, "125.00", entry["amount"])
}

func TestRefundOrderEnvelope(t *testing.T) {
	b, crypter := testBuilder()

	form, err := b.RefundOrder("306003244234", "125.00", "R123456789-7")
	require.NoError(t, err)

	assert.Equal(t, "refundOrder", form.Get("command"))
	payload := decryptRequest(t, crypter, form.Get("enc_request"))
	assert.Equal(t, "306003244234", payload["reference_no"])
	assert.Equal(t, "125.00", payload["refund_amount"])
	assert.Equal(t, "R123456789-7", payload["refund_ref_no"])
}

func TestOrderStatusEnvelope(t *testing.T) {
	b, crypter := testBuilder()

	form, err := b.OrderStatus("306003244234", "R123456789-7")
	require.NoError(t, err)

	assert.Equal(t, "orderStatusTracker", form.Get("command"))
	payload := decryptRequest(t, crypter, form.Get("enc_request"))
	assert.Equal(t, "306003244234", payload["reference_no"])
	assert.Equal(t, "R123456789-7", payload["order_no"])
}

func TestOrderStatusAllowsEmptyReference(t *testing.T) {
	b, crypter := testBuilder()

	form, err := b.OrderStatus("", "")
	require.NoError(t, err)

	payload := decryptRequest(t, crypter, form.Get("enc_request"))
	assert.Equal(t, "", payload["reference_no"])
	assert.Equal(t, "", payload["order_no"])
}

func TestBuildFailsWithoutWorkingKey(t *testing.T) {
	b := NewRequestBuilder("AVXX99ZZ", NewCrypter(""))
	_, err := b.CancelOrder("306003244234", "125.00")
	assert.ErrorIs(t, err, ErrMissingKey)
}
