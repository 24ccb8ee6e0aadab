// Package domain defines the core types of the sales-order KPI refresh job.
//
// Types in this package are pure value objects with no behavior beyond
// serialization, no HTTP concerns and no storage dependencies. They are the
// shared language between the fetchers, the KPI enricher and the snapshot
// writer.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON tags and MarshalJSON are allowed (they're metadata, not behavior)
//   - Constants and enums belong here
package domain
