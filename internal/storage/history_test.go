package storage

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/netsuite-kpi/internal/kpi"
)

// fakeDynamo keeps items per partition and answers descending queries.
type fakeDynamo struct {
	items   []map[string]types.AttributeValue
	lastPut *dynamodb.PutItemInput
	err     error
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastPut = params
	for i, existing := range f.items {
		if sameKey(existing, params.Item) {
			f.items[i] = params.Item
			return &dynamodb.PutItemOutput{}, nil
		}
	}
	f.items = append(f.items, params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func sameKey(a, b map[string]types.AttributeValue) bool {
	for _, k := range []string{"PK", "SK"} {
		av, aok := a[k].(*types.AttributeValueMemberS)
		bv, bok := b[k].(*types.AttributeValueMemberS)
		if !aok || !bok || av.Value != bv.Value {
			return false
		}
	}
	return true
}

func (f *fakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	pk := params.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value

	var matched []DynamoDBItem
	for _, av := range f.items {
		var item DynamoDBItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return nil, err
		}
		if item.PK == pk {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if params.ScanIndexForward != nil && !*params.ScanIndexForward {
			return matched[i].SK > matched[j].SK
		}
		return matched[i].SK < matched[j].SK
	})
	if params.Limit != nil && int(*params.Limit) < len(matched) {
		matched = matched[:*params.Limit]
	}

	out := &dynamodb.QueryOutput{}
	for _, item := range matched {
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, av)
	}
	return out, nil
}

func run(id string, finished time.Time, records int) Run {
	return Run{
		RunID:       id,
		Source:      "netsuite",
		LastUpdated: finished.Format("2006-01-02 15:04:05"),
		Finished:    finished,
		DurationMs:  1200,
		Summary:     kpi.Summary{Records: records, OnTime: records - 1, Pending: 1},
	}
}

func TestSaveRunWritesItem(t *testing.T) {
	db := &fakeDynamo{}
	h := NewHistory(db, "kpi-runs", "netsuite_kpi_refresh", 90*24*time.Hour)

	finished := time.Date(2025, 3, 4, 15, 6, 7, 0, time.UTC)
	require.NoError(t, h.SaveRun(context.Background(), run("r1", finished, 42)))

	require.NotNil(t, db.lastPut)
	assert.Equal(t, "kpi-runs", *db.lastPut.TableName)

	var item DynamoDBItem
	require.NoError(t, attributevalue.UnmarshalMap(db.lastPut.Item, &item))
	assert.Equal(t, "KPI_RUN#netsuite_kpi_refresh", item.PK)
	assert.Equal(t, "2025-03-04T15:06:07.000Z#r1", item.SK)
	assert.Equal(t, finished.Add(90*24*time.Hour).Unix(), item.TTL)
	assert.Contains(t, item.Data, `"run_id":"r1"`)
	assert.Contains(t, item.Data, `"records":42`)
}

func TestRunsFinishingTogetherAreKept(t *testing.T) {
	db := &fakeDynamo{}
	h := NewHistory(db, "kpi-runs", "job", 0)
	ctx := context.Background()

	finished := time.Date(2025, 3, 4, 15, 6, 7, 0, time.UTC)
	require.NoError(t, h.SaveRun(ctx, run("r1", finished, 1)))
	require.NoError(t, h.SaveRun(ctx, run("r2", finished, 2)))
	require.NoError(t, h.SaveRun(ctx, run("r3", finished.Add(250*time.Millisecond), 3)))

	runs, err := h.RecentRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "r3", runs[0].RunID)
	assert.ElementsMatch(t, []string{"r1", "r2"}, []string{runs[1].RunID, runs[2].RunID})
}

func TestSaveRunWithoutTTL(t *testing.T) {
	db := &fakeDynamo{}
	h := NewHistory(db, "kpi-runs", "job", 0)
	require.NoError(t, h.SaveRun(context.Background(), run("r1", time.Now(), 1)))

	_, hasTTL := db.lastPut.Item["TTL"]
	assert.False(t, hasTTL)
}

func TestRecentRunsNewestFirst(t *testing.T) {
	db := &fakeDynamo{}
	h := NewHistory(db, "kpi-runs", "job", time.Hour)
	other := NewHistory(db, "kpi-runs", "other-job", time.Hour)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, h.SaveRun(ctx, run(id, base.Add(time.Duration(i)*24*time.Hour), 10+i)))
	}
	require.NoError(t, other.SaveRun(ctx, run("x", base.Add(72*time.Hour), 99)))

	runs, err := h.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
	assert.Equal(t, 12, runs[0].Summary.Records)
	assert.True(t, runs[0].Finished.Equal(base.Add(48*time.Hour)))

	all, err := h.RecentRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHistoryErrors(t *testing.T) {
	db := &fakeDynamo{err: errors.New("ResourceNotFoundException")}
	h := NewHistory(db, "missing", "job", time.Hour)

	err := h.SaveRun(context.Background(), run("r1", time.Now(), 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ResourceNotFoundException")

	_, err = h.RecentRuns(context.Background(), 5)
	assert.Error(t, err)
}
