package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "transferflow.v1.TransferService"

const (
	methodScheduleTransfer         = "ScheduleTransfer"
	methodTransferFunds            = "TransferFunds"
	methodGetTransactionsByAccount = "GetTransactionsByAccount"
)

// TransferServiceServer is the server API for the TransferService service.
// Requests and responses are google.protobuf.Struct messages whose fields are
// described on each Server method.
type TransferServiceServer interface {
	ScheduleTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TransferFunds(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransactionsByAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(TransferServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(TransferServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// TransferServiceDesc describes the TransferService for grpc.Server.RegisterService
var TransferServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransferServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(methodScheduleTransfer, TransferServiceServer.ScheduleTransfer),
		unaryMethod(methodTransferFunds, TransferServiceServer.TransferFunds),
		unaryMethod(methodGetTransactionsByAccount, TransferServiceServer.GetTransactionsByAccount),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "transferflow/v1/transfer.proto",
}

// RegisterTransferServiceServer registers srv on s
func RegisterTransferServiceServer(s grpc.ServiceRegistrar, srv TransferServiceServer) {
	s.RegisterService(&TransferServiceDesc, srv)
}

// TransferServiceClient calls the TransferService over a client connection
type TransferServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTransferServiceClient creates a client bound to cc
func NewTransferServiceClient(cc grpc.ClientConnInterface) *TransferServiceClient {
	return &TransferServiceClient{cc: cc}
}

func (c *TransferServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ScheduleTransfer calls TransferService.ScheduleTransfer
func (c *TransferServiceClient) ScheduleTransfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodScheduleTransfer, in, opts...)
}

// TransferFunds calls TransferService.TransferFunds
func (c *TransferServiceClient) TransferFunds(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodTransferFunds, in, opts...)
}

// GetTransactionsByAccount calls TransferService.GetTransactionsByAccount
func (c *TransferServiceClient) GetTransactionsByAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetTransactionsByAccount, in, opts...)
}
