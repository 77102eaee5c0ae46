package breaker

import (
	"context"

	"google.golang.org/grpc"

	"github.com/GameOverStudios/deeperhub/clog"
)

// unaryClientInterceptor 为每个 gRPC 一元调用提供熔断保护
func unaryClientInterceptor(cb *circuitBreaker, opts ...InterceptorOption) grpc.UnaryClientInterceptor {
	cfg := applyInterceptorOptions(opts...)

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		key := cfg.keyFunc(ctx, method, cc)

		cb.logger.Debug("unary call with circuit breaker",
			clog.String("service", key),
			clog.String("method", method))

		_, err := cb.Execute(ctx, key, func(ctx context.Context) (any, error) {
			return nil, invoker(ctx, method, req, reply, cc, callOpts...)
		})
		return err
	}
}

// streamClientInterceptor 为 gRPC 流式调用的建流阶段提供熔断保护
// 建流成功后流上的消息收发不再经过熔断器。
func streamClientInterceptor(cb *circuitBreaker, opts ...InterceptorOption) grpc.StreamClientInterceptor {
	cfg := applyInterceptorOptions(opts...)

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, callOpts ...grpc.CallOption) (grpc.ClientStream, error) {
		key := cfg.keyFunc(ctx, method, cc)

		cb.logger.Debug("stream call with circuit breaker",
			clog.String("service", key),
			clog.String("method", method))

		// 建流后流的生命周期由调用方控制，不能套用 CallTimeout 的上下文取消
		result, err := cb.Execute(ctx, key, func(ctx context.Context) (any, error) {
			return streamer(ctx, desc, cc, method, callOpts...)
		}, WithCallTimeout(0))
		if err != nil {
			return nil, err
		}
		return result.(grpc.ClientStream), nil
	}
}
