package controlboard

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the control board gRPC service.
const ServiceName = "viam.fakemotor.v1.ControlBoardService"

const (
	streamStateMethod    = "/" + ServiceName + "/StreamState"
	streamCommandsMethod = "/" + ServiceName + "/StreamCommands"
	requestMethod        = "/" + ServiceName + "/Request"
)

// controlBoardServiceServer is the server API of the control board service. Payloads are
// protobuf well known types:
//   - StreamState: Empty in, a stream of Struct{seq, time, positions} out.
//   - StreamCommands: a stream of ListValue[axis, value] in, Empty out when the client closes.
//   - Request: Struct{vocab, axis, value} in, Struct{ack, axes, min, max, seq, code, error} out.
type controlBoardServiceServer interface {
	StreamState(*emptypb.Empty, grpc.ServerStream) error
	StreamCommands(grpc.ServerStream) error
	Request(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var stateStreamDesc = grpc.StreamDesc{
	StreamName:    "StreamState",
	Handler:       streamStateHandler,
	ServerStreams: true,
}

var commandStreamDesc = grpc.StreamDesc{
	StreamName:    "StreamCommands",
	Handler:       streamCommandsHandler,
	ClientStreams: true,
}

// controlBoardServiceDesc is registered with the rpc server in place of generated code.
var controlBoardServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*controlBoardServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Request", Handler: requestHandler},
	},
	Streams:  []grpc.StreamDesc{stateStreamDesc, commandStreamDesc},
	Metadata: "fakemotor/v1/controlboard",
}

func requestHandler(
	srv interface{},
	ctx context.Context,
	dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controlBoardServiceServer).Request(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: requestMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(controlBoardServiceServer).Request(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func streamStateHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(controlBoardServiceServer).StreamState(in, stream)
}

func streamCommandsHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(controlBoardServiceServer).StreamCommands(stream)
}
