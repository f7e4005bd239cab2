package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	pkgerrors "cosmos-backend/pkg/errors"
)

type item = map[string]types.AttributeValue

func keyOf(pk, sk string) item {
	return item{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// putNew builds a put that fails if the key already exists.
func (r repositories) putNew(v any, onConflict func() error) (writeOp, error) {
	av, err := attributevalue.MarshalMap(v)
	if err != nil {
		return writeOp{}, pkgerrors.Wrap(err, "marshal item")
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return writeOp{}, pkgerrors.Wrap(err, "build condition")
	}
	return writeOp{
		item: types.TransactWriteItem{Put: &types.Put{
			TableName:                 aws.String(r.cfg.TableName),
			Item:                      av,
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}},
		onConflict: onConflict,
	}, nil
}

// updateExisting builds an update that fails if the key is missing.
func (r repositories) updateExisting(key item, update expression.UpdateBuilder, onMissing func() error) (writeOp, error) {
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return writeOp{}, pkgerrors.Wrap(err, "build update")
	}
	return writeOp{
		item: types.TransactWriteItem{Update: &types.Update{
			TableName:                 aws.String(r.cfg.TableName),
			Key:                       key,
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}},
		onConflict: onMissing,
	}, nil
}

// getItem loads one item into out and reports whether it exists.
func (r repositories) getItem(ctx context.Context, operation string, key item, out any) (bool, error) {
	res, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.cfg.TableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, classify(operation, err)
	}
	if res.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, pkgerrors.NewStorageError(operation, err)
	}
	return true, nil
}

// indexQuery describes a paginated query over the table or an index.
type indexQuery struct {
	index   string
	key     expression.KeyConditionBuilder
	filter  *expression.ConditionBuilder
	forward bool
}

// query pages through a query, calling each for every item until each
// returns false.
func (r repositories) query(ctx context.Context, operation string, q indexQuery, each func(item) (bool, error)) error {
	builder := expression.NewBuilder().WithKeyCondition(q.key)
	if q.filter != nil {
		builder = builder.WithFilter(*q.filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return pkgerrors.Wrap(err, "build query")
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.cfg.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(q.forward),
	}
	if q.index != "" {
		input.IndexName = aws.String(q.index)
	}

	for {
		res, err := r.client.Query(ctx, input)
		if err != nil {
			return classify(operation, err)
		}
		for _, it := range res.Items {
			more, err := each(it)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		if res.LastEvaluatedKey == nil {
			return nil
		}
		input.ExclusiveStartKey = res.LastEvaluatedKey
	}
}

// count returns how many items a GSI1 partition holds.
func (r repositories) count(ctx context.Context, operation, partition string) (int, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(partition))).
		Build()
	if err != nil {
		return 0, pkgerrors.Wrap(err, "build count")
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.cfg.TableName),
		IndexName:                 aws.String(r.cfg.GSI1IndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
	}

	total := 0
	for {
		res, err := r.client.Query(ctx, input)
		if err != nil {
			return 0, classify(operation, err)
		}
		total += int(res.Count)
		if res.LastEvaluatedKey == nil {
			return total, nil
		}
		input.ExclusiveStartKey = res.LastEvaluatedKey
	}
}

func gsi1(partition string) expression.KeyConditionBuilder {
	return expression.Key("GSI1PK").Equal(expression.Value(partition))
}
