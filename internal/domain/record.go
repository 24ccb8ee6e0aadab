package domain

// Sales-order field names as projected by the SuiteQL query.
const (
	FieldTransactionID      = "transaction_id"
	FieldSalesOrderNumber   = "sales_order_number"
	FieldCustomerName       = "customer_name"
	FieldTransactionDate    = "transaction_date"
	FieldPOReceivedDate     = "po_received_date"
	FieldOrderConfirmedDate = "order_confirmed_date"
	FieldTargetShipDate     = "target_ship_date"
	FieldActualShipDate     = "actual_ship_date"
	FieldShippingMethodName = "shipping_method_name"
	FieldShippingCost       = "shipping_cost"
	FieldOrderTotal         = "order_total"
	FieldOnHoldStatus       = "on_hold_status"
)

// Derived KPI field names, in the order they are written to the snapshot.
const (
	FieldDaysOrderEntry        = "days_order_entry"
	FieldDaysOrderConfirmation = "days_order_confirmation"
	FieldDaysFulfillment       = "days_fulfillment"
	FieldDaysLateEarly         = "days_late_early"
	FieldOnTimeDelivery        = "on_time_delivery"
	FieldPercentShippingCost   = "percent_shipping_cost"
)

// DerivedFields lists every KPI field an enriched record carries.
var DerivedFields = []string{
	FieldDaysOrderEntry,
	FieldDaysOrderConfirmation,
	FieldDaysFulfillment,
	FieldDaysLateEarly,
	FieldOnTimeDelivery,
	FieldPercentShippingCost,
}

// Record is one raw sales order as returned by a fetcher: a flat mapping of
// field name to a string, a number (json.Number or a Go numeric type) or nil.
type Record map[string]any

// String returns the field as a string and whether it is a non-empty string.
func (r Record) String(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Has reports whether the field is present with a non-nil, non-empty value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return true
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
