package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const accessTokenKey ctxKey = "access_token"

// tokenFromContext returns the bearer token placed by accessTokenInterceptor.
func tokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(accessTokenKey).(string)
	return tok
}

// tokenFromMetadata reads the access_token header, falling back to
// "authorization: Bearer <token>".
func tokenFromMetadata(md metadata.MD) string {
	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 && values[0] != "" {
		return values[0]
	}
	for _, v := range md.Get(common.AuthorizationHeaderName) {
		scheme, tok, ok := strings.Cut(v, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(tok)
		}
	}
	return ""
}

// accessTokenInterceptor copies the caller's token into the context.
// Verification happens in the services, which know what each call needs.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if tok := tokenFromMetadata(md); tok != "" {
			ctx = context.WithValue(ctx, accessTokenKey, tok)
		}
	}
	return handler(ctx, req)
}

// loggingInterceptor logs every call with its status code and duration.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	requestID := uuid.NewString()

	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"method", info.FullMethod, "code", code.String(), "duration", time.Since(start), "request_id", requestID}
	if err != nil {
		s.logger.Warn(ctx, "rpc failed", args...)
	} else {
		s.logger.Debug(ctx, "rpc", args...)
	}
	return resp, err
}
