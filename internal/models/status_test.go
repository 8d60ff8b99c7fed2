package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReceiptStatusValid(t *testing.T) {
	for _, s := range []ReceiptStatus{
		ReceiptStatusPending, ReceiptStatusProcessing, ReceiptStatusProcessed,
		ReceiptStatusFailed, ReceiptStatusReconciled,
	} {
		assert.True(t, s.Valid(), string(s))
	}

	invalid := []string{
		"",
		"done",
		"Processed",
		"x' OR user_id <> '0",
		"pending'; DROP TABLE receipts; --",
	}
	for _, s := range invalid {
		assert.False(t, ReceiptStatus(s).Valid(), s)
	}
}

func TestListStatusValid(t *testing.T) {
	for _, s := range []ListStatus{ListStatusActive, ListStatusCompleted, ListStatusCancelled} {
		assert.True(t, s.Valid(), string(s))
	}

	invalid := []string{
		"",
		"archived",
		"Active",
		"active' OR user_id <> '0",
	}
	for _, s := range invalid {
		assert.False(t, ListStatus(s).Valid(), s)
	}
}
