package warehouse

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQuery = "SELECT * FROM netsuite.sales_orders"

func TestFetchNormalizesRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	shipped := time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"TRANSACTION_ID", "SALES_ORDER_NUMBER", "ACTUAL_SHIP_DATE", "SHIPPING_COST", "ORDER_TOTAL"}).
		AddRow(int64(101), []byte("SO-101"), shipped, []byte("12.50"), float64(250)).
		AddRow(int64(102), "SO-102", nil, nil, float64(0))
	mock.ExpectQuery(regexp.QuoteMeta(testQuery)).WillReturnRows(rows)

	src := NewSource(db, testQuery, time.Minute)
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(101), records[0]["transaction_id"])
	assert.Equal(t, "SO-101", records[0]["sales_order_number"])
	assert.Equal(t, "2025-01-12", records[0]["actual_ship_date"])
	assert.Equal(t, "12.50", records[0]["shipping_cost"])
	assert.Equal(t, float64(250), records[0]["order_total"])

	v, ok := records[1]["actual_ship_date"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.False(t, records[1].Has("actual_ship_date"))
	assert.Nil(t, records[1]["shipping_cost"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(testQuery)).WillReturnRows(sqlmock.NewRows([]string{"transaction_id"}))

	records, err := NewSource(db, testQuery, 0).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(testQuery)).WillReturnError(errors.New("warehouse suspended"))

	records, err := NewSource(db, testQuery, time.Minute).Fetch(context.Background())
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Contains(t, err.Error(), "warehouse suspended")
}

func TestFetchRowError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"transaction_id"}).
		AddRow(int64(1)).
		AddRow(int64(2)).
		RowError(1, errors.New("connection reset"))
	mock.ExpectQuery(regexp.QuoteMeta(testQuery)).WillReturnRows(rows)

	records, err := NewSource(db, testQuery, time.Minute).Fetch(context.Background())
	require.Error(t, err)
	assert.Nil(t, records)
}

func TestSourceName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	src := NewSource(db, testQuery, 0)
	assert.Equal(t, "warehouse", src.Name())
	assert.NoError(t, src.Close())
}
