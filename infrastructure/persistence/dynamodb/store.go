// Package dynamodb is the single-table DynamoDB store used by the Lambda
// deployment.
package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"cosmos-backend/application/ports"
)

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config names the table and its secondary indexes.
type Config struct {
	TableName     string
	GSI1IndexName string
	GSI2IndexName string
}

// Store is a ports.Store backed by one DynamoDB table.
type Store struct {
	repositories
	client Client
	cfg    Config
	logger *zap.Logger
}

var _ ports.Store = (*Store)(nil)

// NewStore creates a store. Writes made outside a unit of work are applied
// immediately, one item at a time.
func NewStore(client Client, cfg Config, logger *zap.Logger) *Store {
	if cfg.GSI1IndexName == "" {
		cfg.GSI1IndexName = "GSI1"
	}
	if cfg.GSI2IndexName == "" {
		cfg.GSI2IndexName = "GSI2"
	}
	s := &Store{client: client, cfg: cfg, logger: logger}
	s.repositories = repositories{client: client, cfg: cfg, w: directWriter{client: client}}
	return s
}

// Ping checks that the table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.cfg.TableName)})
	if err != nil {
		return classify("describe table", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

// NewUnitOfWork creates a unit of work that buffers writes into a single
// TransactWriteItems call.
func (s *Store) NewUnitOfWork() ports.UnitOfWork {
	uow := &unitOfWork{client: s.client, logger: s.logger}
	uow.repositories = repositories{client: s.client, cfg: s.cfg, w: uow}
	return uow
}

// repositories hands out repositories sharing one writer.
type repositories struct {
	client Client
	cfg    Config
	w      writer
}

func (r repositories) Worlds() ports.WorldRepository       { return &worldRepository{r} }
func (r repositories) Timelines() ports.TimelineRepository { return &timelineRepository{r} }
func (r repositories) Archive() ports.ArchiveRepository    { return &archiveRepository{r} }
func (r repositories) Shares() ports.ShareLedger           { return &shareLedger{r} }
func (r repositories) Blobs() ports.PackageBlobStore       { return &blobStore{r} }
func (r repositories) Merges() ports.MergeRepository       { return &mergeRepository{r} }
