package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayOrderNumberEmbedsID(t *testing.T) {
	txn := &Transaction{ID: 42}
	assert.Equal(t, "R123456789-42", txn.GatewayOrderNumber("R123456789"))
}

func TestVoidAmountPrefersGatewayConfirmed(t *testing.T) {
	txn := &Transaction{Amount: 100}
	assert.Equal(t, "100.00", txn.VoidAmountString())

	captured := 99.5
	txn.GatewayAmount = &captured
	assert.Equal(t, "99.50", txn.VoidAmountString())
	assert.Equal(t, "100.00", txn.AmountString())
}

func TestTransactionErrorMessages(t *testing.T) {
	assert.Empty(t, (&Transaction{AuthDesc: AuthDescSuccess}).TransactionError())
	assert.NotEmpty(t, (&Transaction{AuthDesc: AuthDescFailure}).TransactionError())
	assert.NotEmpty(t, (&Transaction{AuthDesc: AuthDescAborted}).TransactionError())
	assert.NotEqual(t,
		(&Transaction{AuthDesc: AuthDescFailure}).TransactionError(),
		(&Transaction{AuthDesc: AuthDescAborted}).TransactionError(),
	)
}
