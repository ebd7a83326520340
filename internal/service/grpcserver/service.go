// Package grpcserver exposes wallet scoring over gRPC. Requests and responses
// are google.protobuf.Struct documents with the same shape as the HTTP API.
package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "walletscore.v1.WalletScoring"

const scoreWalletMethod = "/" + ServiceName + "/ScoreWallet"

// WalletScoringServer is the server API of the scoring service.
type WalletScoringServer interface {
	ScoreWallet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterWalletScoringServer registers srv on s.
func RegisterWalletScoringServer(s grpc.ServiceRegistrar, srv WalletScoringServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WalletScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ScoreWallet",
			Handler:    scoreWalletHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "walletscore/v1/scoring.proto",
}

func scoreWalletHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletScoringServer).ScoreWallet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: scoreWalletMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WalletScoringServer).ScoreWallet(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the scoring service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ScoreWallet scores one wallet document.
func (c *Client) ScoreWallet(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, scoreWalletMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
