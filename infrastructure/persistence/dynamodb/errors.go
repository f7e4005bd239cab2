package dynamodb

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	pkgerrors "cosmos-backend/pkg/errors"
)

// retryableCodes are API error codes worth another attempt.
var retryableCodes = map[string]bool{
	"ThrottlingException":                    true,
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"TransactionConflictException":           true,
	"TransactionInProgressException":         true,
	"InternalServerError":                    true,
}

// classify maps an SDK error onto a storage AppError.
func classify(operation string, err error) error {
	appErr := pkgerrors.NewStorageError(operation, err)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && retryableCodes[apiErr.ErrorCode()] {
		return appErr.AsRetryable()
	}
	return appErr
}

// classifyWrite maps a write failure. A failed condition on ops[i] becomes
// that op's conflict error; a transaction cancelled by a concurrent writer
// is retryable.
func classifyWrite(operation string, err error, ops []writeOp) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) && len(ops) == 1 && ops[0].onConflict != nil {
		return ops[0].onConflict()
	}

	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for i, reason := range canceled.CancellationReasons {
			switch aws.ToString(reason.Code) {
			case "ConditionalCheckFailed":
				if i < len(ops) && ops[i].onConflict != nil {
					return ops[i].onConflict()
				}
				return pkgerrors.NewConflictError("conditional write failed")
			case "TransactionConflict", "ThrottlingError", "ProvisionedThroughputExceeded":
				return pkgerrors.NewStorageError(operation, err).AsRetryable()
			}
		}
	}
	return classify(operation, err)
}
