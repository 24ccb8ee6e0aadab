package kpi

import (
	"github.com/ignite/netsuite-kpi/internal/domain"
)

// Enrich computes the KPIs for one raw record. The raw record is not modified.
func Enrich(r domain.Record) domain.EnrichedRecord {
	return domain.EnrichedRecord{
		Raw:  r.Clone(),
		KPIs: Compute(r),
	}
}

// EnrichAll enriches every record, keeping their order.
func EnrichAll(records []domain.Record) []domain.EnrichedRecord {
	out := make([]domain.EnrichedRecord, 0, len(records))
	for _, r := range records {
		out = append(out, Enrich(r))
	}
	return out
}

// Compute derives the KPIs of a single record. Date deltas are computed first;
// the delivery status and cost ratio are then derived from them.
func Compute(r domain.Record) domain.KPIs {
	k := domain.KPIs{
		DaysOrderEntry:        daysBetween(r, domain.FieldTransactionDate, domain.FieldPOReceivedDate),
		DaysOrderConfirmation: daysBetween(r, domain.FieldOrderConfirmedDate, domain.FieldPOReceivedDate),
		DaysFulfillment:       daysBetween(r, domain.FieldActualShipDate, domain.FieldOrderConfirmedDate),
		DaysLateEarly:         daysBetween(r, domain.FieldActualShipDate, domain.FieldTargetShipDate),
	}
	k.OnTimeDelivery = deliveryStatus(r.Has(domain.FieldActualShipDate), k.DaysLateEarly)
	k.PercentShippingCost = percentShippingCost(r)
	return k
}

func deliveryStatus(shipped bool, daysLateEarly *int) domain.OnTimeStatus {
	switch {
	case !shipped || daysLateEarly == nil:
		return domain.Pending
	case *daysLateEarly <= 0:
		return domain.OnTime
	default:
		return domain.Late
	}
}

func percentShippingCost(r domain.Record) float64 {
	shipping, ok := toFloat(r, domain.FieldShippingCost)
	if !ok {
		return 0
	}
	total, ok := toFloat(r, domain.FieldOrderTotal)
	if !ok || total <= 0 {
		return 0
	}
	return round2(shipping / total * 100)
}
