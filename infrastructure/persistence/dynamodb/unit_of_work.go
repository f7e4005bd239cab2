package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	pkgerrors "cosmos-backend/pkg/errors"
)

// maxTransactItems is the TransactWriteItems limit.
const maxTransactItems = 100

// writeOp is one buffered write. onConflict produces the error reported when
// the item's condition fails.
type writeOp struct {
	item       types.TransactWriteItem
	onConflict func() error
}

type writer interface {
	write(ctx context.Context, op writeOp) error
}

// directWriter applies each write on its own.
type directWriter struct {
	client Client
}

func (w directWriter) write(ctx context.Context, op writeOp) error {
	_, err := w.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{op.item},
	})
	if err != nil {
		return classifyWrite("write item", err, []writeOp{op})
	}
	return nil
}

// unitOfWork buffers writes and commits them atomically. Reads go straight to
// the table and do not see buffered writes.
type unitOfWork struct {
	repositories
	client Client
	logger *zap.Logger

	ops           []writeOp
	inTransaction bool
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.inTransaction {
		return pkgerrors.NewInternalError("transaction already in progress")
	}
	u.inTransaction = true
	u.ops = nil
	return nil
}

func (u *unitOfWork) write(ctx context.Context, op writeOp) error {
	if !u.inTransaction {
		return directWriter{client: u.client}.write(ctx, op)
	}
	u.ops = append(u.ops, op)
	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if !u.inTransaction {
		return pkgerrors.NewInternalError("no transaction in progress")
	}
	defer func() {
		u.inTransaction = false
		u.ops = nil
	}()

	if len(u.ops) == 0 {
		return nil
	}
	if len(u.ops) > maxTransactItems {
		return pkgerrors.NewStorageError("commit transaction", nil).
			WithCode(pkgerrors.CodeTransactionTooLarge).
			WithDetail("items", len(u.ops)).
			WithDetail("limit", maxTransactItems)
	}

	items := make([]types.TransactWriteItem, len(u.ops))
	for i, op := range u.ops {
		items[i] = op.item
	}
	if _, err := u.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return classifyWrite("commit transaction", err, u.ops)
	}

	u.logger.Debug("Transaction committed", zap.Int("items", len(items)))
	return nil
}

// Rollback discards buffered writes. Nothing reached the table, so there is
// nothing to undo.
func (u *unitOfWork) Rollback() error {
	u.inTransaction = false
	u.ops = nil
	return nil
}
