package grpc

import (
	"context"
	"time"

	"terminal-terrace/foodgram/internal/logging"
	"terminal-terrace/foodgram/pkg/authsdk"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// loggingInterceptor 记录方法、耗时、状态码与调用者
// 没有 token 或解析失败时 user_id 为 0
func loggingInterceptor(secret string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		user := authsdk.GetUserFromContext(ctx, secret)

		resp, err := handler(ctx, req)

		logging.Ctx(ctx).Info().
			Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("latency", time.Since(start)).
			Uint("user_id", user.UserID).
			Msg("gRPC 请求")
		return resp, err
	}
}
