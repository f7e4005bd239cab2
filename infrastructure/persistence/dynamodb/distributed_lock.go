package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

var errLockHeld = errors.New("lock already held")

// WorldLock serialises writers of a world across Lambda instances with a
// lease item per world. Readers are not excluded: every read sees the last
// committed transaction.
type WorldLock struct {
	client  Client
	table   string
	owner   string
	lease   time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

var _ ports.WorldLocker = (*WorldLock)(nil)

// NewWorldLock creates a lock. lease bounds how long a crashed holder blocks
// others; timeout bounds how long Lock waits.
func NewWorldLock(client Client, table string, lease, timeout time.Duration, logger *zap.Logger) *WorldLock {
	return &WorldLock{
		client:  client,
		table:   table,
		owner:   uuid.NewString(),
		lease:   lease,
		timeout: timeout,
		logger:  logger,
	}
}

// Lock acquires the world's lease, polling until the timeout elapses.
func (l *WorldLock) Lock(ctx context.Context, worldID valueobjects.WorldID) (ports.Unlock, error) {
	resource := "WORLD#" + worldID.String()
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	retryInterval := 25 * time.Millisecond
	for {
		lockID, err := l.acquire(ctx, resource)
		if err == nil {
			return func() { l.release(resource, lockID) }, nil
		}
		if !errors.Is(err, errLockHeld) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, pkgerrors.NewTimeoutError("acquire world lock").WithDetail("world_id", worldID.String())
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
}

// RLock does not touch the table.
func (l *WorldLock) RLock(ctx context.Context, worldID valueobjects.WorldID) (ports.Unlock, error) {
	return func() {}, nil
}

func (l *WorldLock) acquire(ctx context.Context, resource string) (string, error) {
	now := time.Now()
	expiresAt := now.Add(l.lease)
	lockID := fmt.Sprintf("%s_%d", l.owner, now.UnixNano())

	cond := expression.Name("PK").AttributeNotExists().
		Or(expression.Name("ExpiresAt").LessThan(expression.Value(now.UnixNano())))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return "", pkgerrors.Wrap(err, "build lock condition")
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item: item{
			"PK":         &types.AttributeValueMemberS{Value: lockPK(resource)},
			"SK":         &types.AttributeValueMemberS{Value: skLock},
			"LockID":     &types.AttributeValueMemberS{Value: lockID},
			"Owner":      &types.AttributeValueMemberS{Value: l.owner},
			"AcquiredAt": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixNano(), 10)},
			"ExpiresAt":  &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.UnixNano(), 10)},
			"TTL":        &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.Unix(), 10)},
		},
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return "", errLockHeld
		}
		return "", classify("acquire lock", err)
	}

	l.logger.Debug("Lock acquired", zap.String("resource", resource), zap.String("lockID", lockID))
	return lockID, nil
}

// release deletes the lease if it is still ours. A lease that expired and was
// taken over is left alone.
func (l *WorldLock) release(resource, lockID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("LockID").Equal(expression.Value(lockID))).
		Build()
	if err != nil {
		l.logger.Error("Failed to build release condition", zap.Error(err))
		return
	}

	_, err = l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(l.table),
		Key:                       keyOf(lockPK(resource), skLock),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			l.logger.Warn("Lock already released or taken over", zap.String("resource", resource))
			return
		}
		l.logger.Error("Failed to release lock", zap.String("resource", resource), zap.Error(err))
		return
	}
	l.logger.Debug("Lock released", zap.String("resource", resource))
}
