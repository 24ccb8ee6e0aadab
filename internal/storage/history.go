package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignite/netsuite-kpi/internal/kpi"
)

// Fixed-width milliseconds keep sort keys in lexical time order.
const sortKeyLayout = "2006-01-02T15:04:05.000Z"

// DynamoAPI is the part of the DynamoDB client the history store uses.
// *dynamodb.Client satisfies it.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoDBItem represents an item stored in DynamoDB
type DynamoDBItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// Run is one successful refresh as kept in the history table.
type Run struct {
	RunID       string      `json:"run_id"`
	Source      string      `json:"source"`
	LastUpdated string      `json:"last_updated"`
	Finished    time.Time   `json:"finished"`
	DurationMs  int64       `json:"duration_ms"`
	Summary     kpi.Summary `json:"summary"`
}

// History keeps a time-ordered log of refresh runs per job in DynamoDB.
type History struct {
	client DynamoAPI
	table  string
	job    string
	ttl    time.Duration
}

// NewHistory creates a history store. A zero ttl keeps items forever.
func NewHistory(client DynamoAPI, table, job string, ttl time.Duration) *History {
	return &History{client: client, table: table, job: job, ttl: ttl}
}

// NewHistoryFromConfig builds a store with a DynamoDB client from awsCfg.
func NewHistoryFromConfig(awsCfg aws.Config, table, job string, ttl time.Duration) *History {
	return NewHistory(dynamodb.NewFromConfig(awsCfg), table, job, ttl)
}

func (h *History) partitionKey() string {
	return fmt.Sprintf("KPI_RUN#%s", h.job)
}

// sortKey orders runs by finish time; the run id suffix keeps runs finishing
// in the same millisecond apart.
func sortKey(run Run) string {
	return run.Finished.UTC().Format(sortKeyLayout) + "#" + run.RunID
}

// SaveRun appends a run to the history.
func (h *History) SaveRun(ctx context.Context, run Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshaling run: %w", err)
	}

	item := DynamoDBItem{
		PK:        h.partitionKey(),
		SK:        sortKey(run),
		Data:      string(data),
		Timestamp: run.Finished.UTC().Format(time.RFC3339),
	}
	if h.ttl > 0 {
		item.TTL = run.Finished.Add(h.ttl).Unix()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}

	_, err = h.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(h.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (h *History) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(h.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: h.partitionKey()},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := h.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("querying DynamoDB: %w", err)
	}

	runs := make([]Run, 0, len(result.Items))
	for _, item := range result.Items {
		var dbItem DynamoDBItem
		if err := attributevalue.UnmarshalMap(item, &dbItem); err != nil {
			continue
		}
		var run Run
		if err := json.Unmarshal([]byte(dbItem.Data), &run); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}
