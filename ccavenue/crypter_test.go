package ccavenue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrypterRoundTrip(t *testing.T) {
	c := NewCrypter("4D1B4B9E0AF2342C8C4A79FC8B19E2A1")

	for _, plain := range []string{
		"",
		"a",
		`{"reference_no":"123456789012","amount":"100.00"}`,
		"exactly sixteen!",  // one full block, forces a padding-only block
		"merchant_id=77&order_id=R123-9&amount=55.50&currency=INR",
	} {
		enc, err := c.Encrypt([]byte(plain))
		require.NoError(t, err)
		assert.NotEqual(t, plain, enc)

		got, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plain, string(got))
	}
}

func TestCrypterDeterministic(t *testing.T) {
	c := NewCrypter("key-one")
	a, err := c.Encrypt([]byte("same payload"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same payload"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCrypterEmptyKey(t *testing.T) {
	c := NewCrypter("")

	_, err := c.Encrypt([]byte("data"))
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = c.Decrypt("00112233445566778899aabbccddeeff")
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestCrypterDecryptRejectsGarbage(t *testing.T) {
	c := NewCrypter("working-key")

	cases := map[string]string{
		"not hex":              "zzzz",
		"empty":                "",
		"not a block multiple": "0011223344",
	}
	for name, enc := range cases {
		_, err := c.Decrypt(enc)
		assert.Error(t, err, name)
	}
}

func TestCrypterWrongKeyNeverYieldsPlaintext(t *testing.T) {
	plain := `{"status":0}`
	enc, err := NewCrypter("right-key").Encrypt([]byte(plain))
	require.NoError(t, err)

	// Bad padding is the usual failure; a lucky padding byte may slip
	// through, but the plaintext must never survive a wrong key.
	got, err := NewCrypter("wrong-key").Decrypt(enc)
	if err == nil {
		assert.NotEqual(t, plain, string(got))
	}
}
