// Package kpi derives the per-order KPIs written to the dashboard snapshot.
//
// Enrichment is a pure map: each record's KPIs depend only on that record's
// raw fields, so records may be enriched in any order. Every field is guarded
// by explicit precondition checks and falls back to its documented value
// (nil, 0 or "Pending") instead of failing the run.
package kpi
