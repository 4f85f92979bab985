// Package errors provides the structured error type shared by the arena
// and room engines.
//
// Every error carries a Code that maps onto gRPC and HTTP statuses. The
// engine taxonomy is expressed as codes plus a Reason stored in Meta:
//
//	validation failures     CodeInvalidArgument       (ValidationBuilder)
//	state conflicts         CodeFailedPrecondition    ReasonStateConflict, ReasonOutOfAttempts
//	capacity limits         CodeResourceExhausted     ReasonRoomFull, ReasonPoolSaturated
//	faults in a tick or sim CodeInternal              ReasonInternalFault
//
// Typical use in a repository or orchestrator:
//
//	if input.PlayerID == "" {
//		return nil, errors.InvalidArgument("player ID cannot be empty")
//	}
//	profile, err := r.client.Get(ctx, key).Result()
//	if err == redis.Nil {
//		return nil, errors.NotFoundf("arena profile %s not found", input.PlayerID)
//	}
//
// Handlers convert at the edge with ToGRPCError, which attaches the reason
// and metadata as an errdetails.ErrorInfo so clients can branch on
// OUT_OF_ATTEMPTS without parsing messages.
package errors
