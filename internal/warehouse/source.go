package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"                 // PostgreSQL driver
	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/ignite/netsuite-kpi/internal/config"
	"github.com/ignite/netsuite-kpi/internal/domain"
	"github.com/ignite/netsuite-kpi/internal/kpi"
	"github.com/ignite/netsuite-kpi/internal/pkg/logger"
)

// Source reads replicated sales orders from a SQL warehouse. The configured
// query must alias its columns to the record field names the enricher reads.
type Source struct {
	db      *sql.DB
	query   string
	timeout time.Duration
}

// Open connects to the warehouse named by cfg.Driver.
func Open(cfg config.WarehouseConfig) (*Source, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewSource(db, cfg.Query, cfg.Timeout()), nil
}

// NewSource wraps an open database handle.
func NewSource(db *sql.DB, query string, timeout time.Duration) *Source {
	return &Source{db: db, query: query, timeout: timeout}
}

// Name identifies the source in logs.
func (s *Source) Name() string { return "warehouse" }

// Close closes the database connection
func (s *Source) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Fetch runs the query and returns one record per row.
// Column names are lower-cased so Snowflake's upper-case identifiers match.
func (s *Source) Fetch(ctx context.Context) ([]domain.Record, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales orders: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	for i, c := range cols {
		cols[i] = strings.ToLower(c)
	}

	var records []domain.Record
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rec := make(domain.Record, len(cols))
		for i, c := range cols {
			rec[c] = normalize(values[i])
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading rows: %w", err)
	}

	logger.Debug("warehouse query complete", "rows", len(records), "elapsed_ms", time.Since(start).Milliseconds())
	return records, nil
}

// normalize converts driver values to the shapes a SuiteQL response would
// carry: text for byte slices and YYYY-MM-DD for dates.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(kpi.DateLayout)
	default:
		return v
	}
}
