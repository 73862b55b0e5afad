package grpc

import (
	"context"

	"github.com/dmitrijs2005/sic/internal/server/services"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *Empty) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) RegisterUser(ctx context.Context, req *RegisterUserRequest) (*RegisterUserResponse, error) {
	u, err := s.accounts.RegisterUser(ctx, services.RegisterUserInput{
		UserName: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Birthday: req.Birthday,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Registered", "user_id", u.ID)
	return &RegisterUserResponse{UserID: u.ID, Username: u.UserName}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	token, err := s.accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return &LoginResponse{AccessToken: token}, nil
}

func (s *GRPCServer) RegisterDevice(ctx context.Context, req *RegisterDeviceRequest) (*DeviceResponse, error) {
	d, err := s.accounts.RegisterDevice(ctx, tokenFromContext(ctx), req.Name, req.PublicKey)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DeviceResponse{Device: deviceFromModel(d)}, nil
}

func (s *GRPCServer) ListDevices(ctx context.Context, _ *Empty) (*ListDevicesResponse, error) {
	list, err := s.accounts.ListDevices(ctx, tokenFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &ListDevicesResponse{Devices: make([]Device, 0, len(list))}
	for i := range list {
		resp.Devices = append(resp.Devices, deviceFromModel(&list[i]))
	}
	return resp, nil
}

func (s *GRPCServer) LockSite(ctx context.Context, req *ConfirmRequest) (*Empty, error) {
	if err := s.moderation.LockSite(ctx, tokenFromContext(ctx), req.Confirmation); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) UnlockSite(ctx context.Context, req *ConfirmRequest) (*Empty, error) {
	if err := s.moderation.UnlockSite(ctx, tokenFromContext(ctx), req.Confirmation); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) RequestShutdown(ctx context.Context, req *ConfirmRequest) (*Empty, error) {
	if err := s.moderation.RequestShutdown(ctx, tokenFromContext(ctx), req.Confirmation); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) SiteStatus(ctx context.Context, _ *Empty) (*SiteStatusResponse, error) {
	st, err := s.moderation.SiteStatus(ctx, tokenFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &SiteStatusResponse{
		Locked:            st.Locked,
		ShutdownRequested: st.ShutdownRequested,
		ChangedBy:         st.ChangedBy,
	}
	if !st.ChangedAt.IsZero() {
		at := st.ChangedAt
		resp.ChangedAt = &at
	}
	return resp, nil
}

func (s *GRPCServer) BlockDevice(ctx context.Context, req *DeviceIDRequest) (*DeviceResponse, error) {
	d, err := s.moderation.BlockDevice(ctx, tokenFromContext(ctx), req.DeviceID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DeviceResponse{Device: deviceFromModel(d)}, nil
}

func (s *GRPCServer) UnblockDevice(ctx context.Context, req *DeviceIDRequest) (*DeviceResponse, error) {
	d, err := s.moderation.UnblockDevice(ctx, tokenFromContext(ctx), req.DeviceID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DeviceResponse{Device: deviceFromModel(d)}, nil
}

func (s *GRPCServer) BlockUser(ctx context.Context, req *BlockUserRequest) (*SanctionResponse, error) {
	res, err := s.moderation.BlockUserTiered(ctx, tokenFromContext(ctx), req.UserID, req.Tier)
	if err != nil {
		return nil, toStatus(err)
	}
	return sanctionFromResult(res), nil
}

func (s *GRPCServer) PermanentBan(ctx context.Context, req *UserIDRequest) (*SanctionResponse, error) {
	res, err := s.moderation.PermanentBan(ctx, tokenFromContext(ctx), req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return sanctionFromResult(res), nil
}

func (s *GRPCServer) RevokeSessions(ctx context.Context, req *UserIDRequest) (*Empty, error) {
	if err := s.moderation.RevokeSessions(ctx, tokenFromContext(ctx), req.UserID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) SubmitAppeal(ctx context.Context, req *SubmitAppealRequest) (*AppealResponse, error) {
	a, err := s.moderation.SubmitAppeal(ctx, tokenFromContext(ctx), req.Reason)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AppealResponse{Appeal: appealFromModel(a)}, nil
}

func (s *GRPCServer) ListPendingAppeals(ctx context.Context, _ *Empty) (*ListPendingAppealsResponse, error) {
	list, err := s.moderation.ListPendingAppeals(ctx, tokenFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &ListPendingAppealsResponse{Appeals: make([]PendingAppeal, 0, len(list))}
	for _, p := range list {
		resp.Appeals = append(resp.Appeals, PendingAppeal{
			AppealID:    p.AppealID,
			UserID:      p.UserID,
			Username:    p.UserName,
			Email:       p.Email,
			Reason:      p.Reason,
			BlockedCode: p.BlockedCode,
			CreatedAt:   p.CreatedAt,
		})
	}
	return resp, nil
}

func (s *GRPCServer) ResolveAppeal(ctx context.Context, req *ResolveAppealRequest) (*AppealResponse, error) {
	a, err := s.moderation.ResolveAppeal(ctx, tokenFromContext(ctx), req.AppealID, req.Approve)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AppealResponse{Appeal: appealFromModel(a)}, nil
}
