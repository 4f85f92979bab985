package v1alpha1

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "arena.v1alpha1.ArenaService"

// ArenaServiceServer is the server side of the arena service
type ArenaServiceServer interface {
	GetOpponents(context.Context, *GetOpponentsRequest) (*GetOpponentsResponse, error)
	Challenge(context.Context, *ChallengeRequest) (*ChallengeResponse, error)
	SetDefense(context.Context, *SetDefenseRequest) (*SetDefenseResponse, error)
	GetProfile(context.Context, *GetProfileRequest) (*GetProfileResponse, error)
	GetBattle(context.Context, *GetBattleRequest) (*GetBattleResponse, error)
	ListHistory(context.Context, *ListHistoryRequest) (*ListHistoryResponse, error)
}

// ArenaServiceDesc describes the service for grpc.Server.RegisterService
var ArenaServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ArenaServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetOpponents", ArenaServiceServer.GetOpponents),
		unary("Challenge", ArenaServiceServer.Challenge),
		unary("SetDefense", ArenaServiceServer.SetDefense),
		unary("GetProfile", ArenaServiceServer.GetProfile),
		unary("GetBattle", ArenaServiceServer.GetBattle),
		unary("ListHistory", ArenaServiceServer.ListHistory),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterArenaServiceServer registers srv on s
func RegisterArenaServiceServer(s grpc.ServiceRegistrar, srv ArenaServiceServer) {
	s.RegisterService(&ArenaServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(ArenaServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ArenaServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ArenaServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls the arena service over a connection. Every call uses the
// JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOpponents calls ArenaService.GetOpponents
func (c *Client) GetOpponents(ctx context.Context, in *GetOpponentsRequest, opts ...grpc.CallOption) (*GetOpponentsResponse, error) {
	return invoke[GetOpponentsResponse](ctx, c, "GetOpponents", in, opts)
}

// Challenge calls ArenaService.Challenge
func (c *Client) Challenge(ctx context.Context, in *ChallengeRequest, opts ...grpc.CallOption) (*ChallengeResponse, error) {
	return invoke[ChallengeResponse](ctx, c, "Challenge", in, opts)
}

// SetDefense calls ArenaService.SetDefense
func (c *Client) SetDefense(ctx context.Context, in *SetDefenseRequest, opts ...grpc.CallOption) (*SetDefenseResponse, error) {
	return invoke[SetDefenseResponse](ctx, c, "SetDefense", in, opts)
}

// GetProfile calls ArenaService.GetProfile
func (c *Client) GetProfile(ctx context.Context, in *GetProfileRequest, opts ...grpc.CallOption) (*GetProfileResponse, error) {
	return invoke[GetProfileResponse](ctx, c, "GetProfile", in, opts)
}

// GetBattle calls ArenaService.GetBattle
func (c *Client) GetBattle(ctx context.Context, in *GetBattleRequest, opts ...grpc.CallOption) (*GetBattleResponse, error) {
	return invoke[GetBattleResponse](ctx, c, "GetBattle", in, opts)
}

// ListHistory calls ArenaService.ListHistory
func (c *Client) ListHistory(ctx context.Context, in *ListHistoryRequest, opts ...grpc.CallOption) (*ListHistoryResponse, error) {
	return invoke[ListHistoryResponse](ctx, c, "ListHistory", in, opts)
}
