package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/workflow"
)

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, common.ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, common.ErrorNotFound):
		return codes.NotFound
	case errors.Is(err, common.ErrStateConflict):
		return codes.FailedPrecondition
	case errors.Is(err, common.ErrAuthorization):
		return codes.PermissionDenied
	case errors.Is(err, common.ErrUnknownOutcome):
		return codes.Unavailable
	case errors.Is(err, common.ErrLedgerRejected):
		return codes.Aborted
	case errors.Is(err, common.ErrConfiguration):
		return codes.FailedPrecondition
	}
	return codes.Internal
}

// toStatus converts err to a gRPC status. A *workflow.StageError travels as
// a Struct detail so the caller can resume or reconcile the run.
func toStatus(err error) error {
	st := status.New(codeOf(err), err.Error())
	var se *workflow.StageError
	if !errors.As(err, &se) {
		return st.Err()
	}
	detail, derr := structpb.NewStruct(stageErrorFields(se))
	if derr != nil {
		return st.Err()
	}
	if withDetail, derr := st.WithDetails(detail); derr == nil {
		st = withDetail
	}
	return st.Err()
}

func stageErrorFields(se *workflow.StageError) map[string]any {
	return map[string]any{
		"stage":         string(se.Stage),
		"entityId":      se.EntityID,
		"outcome":       string(se.Outcome),
		"lastConfirmed": string(se.LastConfirmed),
		"message":       se.Err.Error(),
	}
}
