package errors

import (
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain is reported in the ErrorInfo detail of every converted error
const ErrorDomain = "arena.rpg-arena"

// ToGRPCError converts an error to a gRPC status error. The code's reason
// and metadata are attached as an errdetails.ErrorInfo.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	var customErr *Error
	if !As(err, &customErr) {
		return status.Error(codes.Internal, err.Error())
	}

	st := status.New(customErr.Code.GRPCCode(), customErr.Message)
	if len(customErr.Meta) == 0 {
		return st.Err()
	}

	info := &errdetails.ErrorInfo{
		Reason:   string(customErr.Code),
		Domain:   ErrorDomain,
		Metadata: make(map[string]string, len(customErr.Meta)),
	}
	for k, v := range customErr.Meta {
		if k == MetaReason {
			info.Reason = fmt.Sprint(v)
			continue
		}
		info.Metadata[k] = fmt.Sprint(v)
	}

	if withDetails, detailErr := st.WithDetails(info); detailErr == nil {
		st = withDetails
	}
	return st.Err()
}

// FromGRPCError converts a gRPC error back into an *Error, restoring the
// reason and metadata carried by ErrorInfo.
func FromGRPCError(err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	customErr := &Error{
		Code:    codeFromGRPC(st.Code()),
		Message: st.Message(),
	}

	for _, detail := range st.Details() {
		info, ok := detail.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		if info.GetReason() != string(customErr.Code) {
			customErr.WithMeta(MetaReason, info.GetReason())
		}
		for k, v := range info.GetMetadata() {
			customErr.WithMeta(k, v)
		}
		break
	}

	return customErr
}
