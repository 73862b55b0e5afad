package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/sic/internal/logging"
	"github.com/dmitrijs2005/sic/internal/server/models"
	"github.com/dmitrijs2005/sic/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// AccountService is the account side of the service layer.
type AccountService interface {
	RegisterUser(ctx context.Context, in services.RegisterUserInput) (*models.User, error)
	Login(ctx context.Context, userName, password string) (string, error)
	RegisterDevice(ctx context.Context, token, name string, publicKey *string) (*models.Device, error)
	ListDevices(ctx context.Context, token string) ([]models.Device, error)
}

// ModerationService is the WatcherDog side of the service layer.
type ModerationService interface {
	LockSite(ctx context.Context, token, phrase string) error
	UnlockSite(ctx context.Context, token, phrase string) error
	RequestShutdown(ctx context.Context, token, phrase string) error
	SiteStatus(ctx context.Context, token string) (models.SiteState, error)
	BlockDevice(ctx context.Context, token string, deviceID int64) (*models.Device, error)
	UnblockDevice(ctx context.Context, token string, deviceID int64) (*models.Device, error)
	BlockUserTiered(ctx context.Context, token string, userID int64, tier int) (*services.SanctionResult, error)
	PermanentBan(ctx context.Context, token string, userID int64) (*services.SanctionResult, error)
	RevokeSessions(ctx context.Context, token string, userID int64) error
	SubmitAppeal(ctx context.Context, token, reason string) (*models.Appeal, error)
	ListPendingAppeals(ctx context.Context, token string) ([]models.PendingAppeal, error)
	ResolveAppeal(ctx context.Context, token string, appealID int64, approve bool) (*models.Appeal, error)
}

type GRPCServer struct {
	address    string
	accounts   AccountService
	moderation ModerationService
	logger     logging.Logger
}

func NewGRPCServer(address string, l logging.Logger, accounts AccountService, moderation ModerationService) *GRPCServer {
	return &GRPCServer{
		address:    address,
		logger:     l.With("module", "grpc_server"),
		accounts:   accounts,
		moderation: moderation,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	srv.RegisterService(&ServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
