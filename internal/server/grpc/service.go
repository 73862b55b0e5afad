package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sic.v1.SIC"

// SICServer is the RPC surface served under ServiceName.
type SICServer interface {
	Ping(context.Context, *Empty) (*PingResponse, error)
	RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RegisterDevice(context.Context, *RegisterDeviceRequest) (*DeviceResponse, error)
	ListDevices(context.Context, *Empty) (*ListDevicesResponse, error)

	LockSite(context.Context, *ConfirmRequest) (*Empty, error)
	UnlockSite(context.Context, *ConfirmRequest) (*Empty, error)
	RequestShutdown(context.Context, *ConfirmRequest) (*Empty, error)
	SiteStatus(context.Context, *Empty) (*SiteStatusResponse, error)
	BlockDevice(context.Context, *DeviceIDRequest) (*DeviceResponse, error)
	UnblockDevice(context.Context, *DeviceIDRequest) (*DeviceResponse, error)
	BlockUser(context.Context, *BlockUserRequest) (*SanctionResponse, error)
	PermanentBan(context.Context, *UserIDRequest) (*SanctionResponse, error)
	RevokeSessions(context.Context, *UserIDRequest) (*Empty, error)
	SubmitAppeal(context.Context, *SubmitAppealRequest) (*AppealResponse, error)
	ListPendingAppeals(context.Context, *Empty) (*ListPendingAppealsResponse, error)
	ResolveAppeal(context.Context, *ResolveAppealRequest) (*AppealResponse, error)
}

// FullMethod returns "/<service>/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryMethod builds a MethodDesc that decodes Req, runs the interceptor
// chain and dispatches to call.
func unaryMethod[Req, Resp any](name string, call func(SICServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(SICServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the SIC service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SICServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Ping", SICServer.Ping),
		unaryMethod("RegisterUser", SICServer.RegisterUser),
		unaryMethod("Login", SICServer.Login),
		unaryMethod("RegisterDevice", SICServer.RegisterDevice),
		unaryMethod("ListDevices", SICServer.ListDevices),
		unaryMethod("LockSite", SICServer.LockSite),
		unaryMethod("UnlockSite", SICServer.UnlockSite),
		unaryMethod("RequestShutdown", SICServer.RequestShutdown),
		unaryMethod("SiteStatus", SICServer.SiteStatus),
		unaryMethod("BlockDevice", SICServer.BlockDevice),
		unaryMethod("UnblockDevice", SICServer.UnblockDevice),
		unaryMethod("BlockUser", SICServer.BlockUser),
		unaryMethod("PermanentBan", SICServer.PermanentBan),
		unaryMethod("RevokeSessions", SICServer.RevokeSessions),
		unaryMethod("SubmitAppeal", SICServer.SubmitAppeal),
		unaryMethod("ListPendingAppeals", SICServer.ListPendingAppeals),
		unaryMethod("ResolveAppeal", SICServer.ResolveAppeal),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sic/v1/sic.json",
}
