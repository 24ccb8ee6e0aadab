// Package refresh runs one snapshot refresh: fetch every sales order, enrich
// each one with KPI fields, write the snapshot. The stages run strictly in
// sequence and a failed stage stops the run before anything is persisted.
package refresh
