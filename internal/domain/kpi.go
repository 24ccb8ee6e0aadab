package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// OnTimeStatus classifies a sales order's shipment against its target date.
type OnTimeStatus string

const (
	OnTime  OnTimeStatus = "On Time"
	Late    OnTimeStatus = "Late"
	Pending OnTimeStatus = "Pending"
)

// KPIs holds the six values derived from a single sales order.
// Nil day deltas mean the inputs were missing or malformed.
type KPIs struct {
	DaysOrderEntry        *int         `json:"days_order_entry"`
	DaysOrderConfirmation *int         `json:"days_order_confirmation"`
	DaysFulfillment       *int         `json:"days_fulfillment"`
	DaysLateEarly         *int         `json:"days_late_early"`
	OnTimeDelivery        OnTimeStatus `json:"on_time_delivery"`
	PercentShippingCost   float64      `json:"percent_shipping_cost"`
}

// values returns the KPIs keyed by field name, in DerivedFields order.
func (k KPIs) values() []any {
	return []any{
		intOrNil(k.DaysOrderEntry),
		intOrNil(k.DaysOrderConfirmation),
		intOrNil(k.DaysFulfillment),
		intOrNil(k.DaysLateEarly),
		k.OnTimeDelivery,
		k.PercentShippingCost,
	}
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// EnrichedRecord is a raw record plus its derived KPIs. It serializes as one
// flat JSON object: the raw fields (sorted by name) followed by the KPI fields.
// A raw field that shares a name with a KPI field is replaced by the KPI.
type EnrichedRecord struct {
	Raw  Record
	KPIs KPIs
}

// MarshalJSON implements json.Marshaler.
func (e EnrichedRecord) MarshalJSON() ([]byte, error) {
	derived := make(map[string]struct{}, len(DerivedFields))
	for _, f := range DerivedFields {
		derived[f] = struct{}{}
	}

	keys := make([]string, 0, len(e.Raw))
	for k := range e.Raw {
		if _, clash := derived[k]; !clash {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	writeField := func(first bool, key string, val any) error {
		if !first {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}

	first := true
	for _, k := range keys {
		if err := writeField(first, k, e.Raw[k]); err != nil {
			return nil, err
		}
		first = false
	}
	for i, v := range e.KPIs.values() {
		if err := writeField(first, DerivedFields[i], v); err != nil {
			return nil, err
		}
		first = false
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
