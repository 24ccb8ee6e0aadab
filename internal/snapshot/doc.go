// Package snapshot turns enriched records into the dashboard artifact and
// persists it. The local file is always replaced whole; an S3 copy of the
// same bytes is optional.
package snapshot
