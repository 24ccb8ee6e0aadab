package netsuite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	q, err := BuildQuery("2024-01-01")
	require.NoError(t, err)

	assert.Contains(t, q, "TO_DATE('2024-01-01', 'YYYY-MM-DD')")
	assert.Contains(t, q, "t.type = 'SalesOrd'")
	assert.Contains(t, q, "ORDER BY t.trandate DESC")
	for _, field := range []string{
		"transaction_id", "sales_order_number", "customer_name", "transaction_date",
		"po_received_date", "order_confirmed_date", "target_ship_date", "actual_ship_date",
		"shipping_method_name", "shipping_cost", "order_total", "on_hold_status",
	} {
		assert.True(t, strings.Contains(q, "AS "+field), "missing %s", field)
	}
}

func TestBuildQueryRejectsBadDate(t *testing.T) {
	for _, since := range []string{"", "2024-1-1", "2024-01-01'; DROP", "01/01/2024"} {
		_, err := BuildQuery(since)
		assert.Error(t, err, since)
	}
}
