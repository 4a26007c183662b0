package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
)

const sessionPartition = "session"

// tableClient is the subset of *aztables.Client used by Table.
type tableClient interface {
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

// Table keeps the session as one entity of an Azure Storage table, keyed by
// profile name. One entity holds both keys, so a save is a single upsert.
type Table struct {
	client  tableClient
	profile string
}

type sessionEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Token        string `json:"Token"`
	User         string `json:"User"`
}

// NewTable connects to tableName using an account connection string.
func NewTable(connStr, tableName, profile string) (*Table, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Second * 30,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return newTable(svc.NewClient(tableName), profile), nil
}

func newTable(client tableClient, profile string) *Table {
	if profile == "" {
		profile = "default"
	}
	return &Table{client: client, profile: profile}
}

// EnsureTable creates the table if it does not exist yet.
func (t *Table) EnsureTable(ctx context.Context) error {
	_, err := t.client.CreateTable(ctx, nil)
	if err == nil || statusCode(err) == http.StatusConflict {
		return nil
	}
	return fmt.Errorf("create session table: %w", err)
}

func (t *Table) Load(ctx context.Context) (Record, error) {
	resp, err := t.client.GetEntity(ctx, sessionPartition, t.profile, nil)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("table session load: %w", err)
	}
	return decodeSessionEntity(resp.Value)
}

func decodeSessionEntity(data []byte) (Record, error) {
	var ent sessionEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return Record{}, fmt.Errorf("table session decode: %w", err)
	}
	rec := Record{Token: ent.Token}
	if ent.User != "" {
		rec.User = []byte(ent.User)
	}
	return rec, nil
}

func (t *Table) Save(ctx context.Context, rec Record) error {
	payload, err := sonic.Marshal(sessionEntity{
		PartitionKey: sessionPartition,
		RowKey:       t.profile,
		Token:        rec.Token,
		User:         string(rec.User),
	})
	if err != nil {
		return err
	}
	if _, err := t.client.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
		return fmt.Errorf("table session save: %w", err)
	}
	return nil
}

func (t *Table) Clear(ctx context.Context) error {
	_, err := t.client.DeleteEntity(ctx, sessionPartition, t.profile, nil)
	if err != nil && statusCode(err) != http.StatusNotFound {
		return fmt.Errorf("table session clear: %w", err)
	}
	return nil
}

func statusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}
