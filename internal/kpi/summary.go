package kpi

import (
	"github.com/ignite/netsuite-kpi/internal/domain"
)

// Summary aggregates a run's KPIs for logging and metrics. It is never
// written into the snapshot.
type Summary struct {
	Records int `json:"records"`
	OnTime  int `json:"on_time"`
	Late    int `json:"late"`
	Pending int `json:"pending"`

	// Averages over records whose delta is non-nil; zero when none are.
	AvgDaysOrderEntry        float64 `json:"avg_days_order_entry"`
	AvgDaysOrderConfirmation float64 `json:"avg_days_order_confirmation"`
	AvgDaysFulfillment       float64 `json:"avg_days_fulfillment"`
	AvgDaysLateEarly         float64 `json:"avg_days_late_early"`
}

// OnTimeRate returns OnTime / (OnTime + Late), or 0 when nothing has shipped.
func (s Summary) OnTimeRate() float64 {
	shipped := s.OnTime + s.Late
	if shipped == 0 {
		return 0
	}
	return float64(s.OnTime) / float64(shipped)
}

type mean struct {
	sum int
	n   int
}

func (m *mean) add(v *int) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return float64(m.sum) / float64(m.n)
}

// Summarize counts delivery statuses and averages the day deltas.
func Summarize(records []domain.EnrichedRecord) Summary {
	var (
		s                               Summary
		entry, confirm, fulfill, lateBy mean
	)
	s.Records = len(records)
	for _, r := range records {
		switch r.KPIs.OnTimeDelivery {
		case domain.OnTime:
			s.OnTime++
		case domain.Late:
			s.Late++
		default:
			s.Pending++
		}
		entry.add(r.KPIs.DaysOrderEntry)
		confirm.add(r.KPIs.DaysOrderConfirmation)
		fulfill.add(r.KPIs.DaysFulfillment)
		lateBy.add(r.KPIs.DaysLateEarly)
	}
	s.AvgDaysOrderEntry = entry.value()
	s.AvgDaysOrderConfirmation = confirm.value()
	s.AvgDaysFulfillment = fulfill.value()
	s.AvgDaysLateEarly = lateBy.value()
	return s
}
