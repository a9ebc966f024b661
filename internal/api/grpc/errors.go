package grpc

import (
	"context"
	"errors"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ErrorCodeTrailer carries the EventSphere error code of a failed call.
const ErrorCodeTrailer = "x-error-code"

// codeFor maps an error to a gRPC status code.
func codeFor(err error) codes.Code {
	switch apperrors.GetCategory(err) {
	case apperrors.ErrCategoryValidation:
		return codes.InvalidArgument
	case apperrors.ErrCategoryNotFound:
		return codes.NotFound
	case apperrors.ErrCategoryUnauthorized:
		if apperrors.GetCode(err) == apperrors.CodeInsufficientPrivileges {
			return codes.PermissionDenied
		}
		return codes.Unauthenticated
	case apperrors.ErrCategoryConflict:
		return codes.AlreadyExists
	case apperrors.ErrCategoryInventory:
		return codes.FailedPrecondition
	}
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Internal
}

// toStatus converts err into a gRPC status error and records its code in
// the call trailer.
func toStatus(ctx context.Context, err error) error {
	code := codeFor(err)
	if appCode := apperrors.GetCode(err); appCode != "" {
		_ = grpc.SetTrailer(ctx, metadata.Pairs(ErrorCodeTrailer, appCode))
	}

	msg := err.Error()
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if code == codes.Internal {
		msg = "internal error"
	}
	return status.Error(code, msg)
}
