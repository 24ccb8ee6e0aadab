package netsuite

import (
	"fmt"
	"time"
)

// salesOrderQuery projects the sales-order fields the KPI enricher reads.
// Dates are rendered as YYYY-MM-DD; t.id breaks trandate ties so pages are stable.
const salesOrderQuery = `
SELECT
    t.id AS transaction_id,
    t.tranid AS sales_order_number,
    c.companyname AS customer_name,
    TO_CHAR(t.trandate, 'YYYY-MM-DD') AS transaction_date,
    TO_CHAR(t.custbody_po_received_date, 'YYYY-MM-DD') AS po_received_date,
    TO_CHAR(t.custbody_order_confirmed_date, 'YYYY-MM-DD') AS order_confirmed_date,
    TO_CHAR(t.shipdate, 'YYYY-MM-DD') AS target_ship_date,
    TO_CHAR(t.actualshipdate, 'YYYY-MM-DD') AS actual_ship_date,
    sm.itemid AS shipping_method_name,
    t.shippingcost AS shipping_cost,
    t.total AS order_total,
    CASE WHEN t.custbody_on_hold = 'T' THEN 'Yes' ELSE 'No' END AS on_hold_status
FROM transaction t
LEFT JOIN customer c ON t.entity = c.id
LEFT JOIN item sm ON t.shipmethod = sm.id
WHERE t.type = 'SalesOrd'
AND t.trandate >= TO_DATE('%s', 'YYYY-MM-DD')
ORDER BY t.trandate DESC, t.id DESC
`

// BuildQuery returns the sales-order SuiteQL query for orders dated on or
// after since (YYYY-MM-DD).
func BuildQuery(since string) (string, error) {
	if _, err := time.Parse("2006-01-02", since); err != nil {
		return "", fmt.Errorf("invalid since date %q: %w", since, err)
	}
	return fmt.Sprintf(salesOrderQuery, since), nil
}
