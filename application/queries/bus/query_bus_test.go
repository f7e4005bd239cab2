package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "cosmos-backend/pkg/errors"
)

type echoQuery struct {
	Value string
}

func (q echoQuery) Validate() error {
	if q.Value == "" {
		return pkgerrors.NewValidationError("value is required")
	}
	return nil
}

func TestQueryBus_Ask(t *testing.T) {
	b := NewQueryBus(LoggingMiddleware(zap.NewNop()), TracingMiddleware())
	require.NoError(t, b.Register(echoQuery{}, QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		return q.(echoQuery).Value + "!", nil
	})))

	result, err := b.Ask(context.Background(), echoQuery{Value: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi!", result)
}

func TestQueryBus_Errors(t *testing.T) {
	b := NewQueryBus()
	require.NoError(t, b.Register(echoQuery{}, QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		return nil, pkgerrors.NewNotFoundError("world")
	})))

	_, err := b.Ask(context.Background(), echoQuery{})
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = b.Ask(context.Background(), echoQuery{Value: "x"})
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = NewQueryBus().Ask(context.Background(), echoQuery{Value: "x"})
	assert.True(t, errors.Is(err, ErrHandlerNotFound))
}
