package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeStockRequests(t *testing.T) {
	merged := MergeStockRequests([]StockRequest{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 3},
	})

	assert.Equal(t, []StockRequest{
		{ProductID: "a", Quantity: 5},
		{ProductID: "b", Quantity: 1},
	}, merged)
}

func TestMergeStockRequests_Empty(t *testing.T) {
	assert.Empty(t, MergeStockRequests(nil))
}
