// Package grpcbuf runs gRPC services over an in-memory bufconn listener for
// tests.
package grpcbuf

import (
	"context"
	"net"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

// MetaCapture captures incoming metadata on the server side for later inspection in tests.
type MetaCapture struct {
	last  atomic.Value // stores metadata.MD
	calls atomic.Int64
}

// Interceptor records incoming metadata and forwards the request to the next handler.
func (m *MetaCapture) Interceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	m.calls.Add(1)
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		m.last.Store(md)
	}
	return handler(ctx, req)
}

// Last returns the most recently captured metadata or nil if none.
func (m *MetaCapture) Last() metadata.MD {
	if v := m.last.Load(); v != nil {
		return v.(metadata.MD)
	}
	return nil
}

// Calls returns the number of unary calls served.
func (m *MetaCapture) Calls() int64 {
	return m.calls.Load()
}

// StartServer registers impl under desc on a bufconn-backed gRPC server with
// metadata capture enabled and starts serving.
func StartServer(desc *grpc.ServiceDesc, impl interface{}) (*grpc.Server, *bufconn.Listener, *MetaCapture) {
	lis := bufconn.Listen(bufSize)
	capture := &MetaCapture{}
	srv := grpc.NewServer(grpc.UnaryInterceptor(capture.Interceptor))
	srv.RegisterService(desc, impl)
	go func() { _ = srv.Serve(lis) }()
	return srv, lis, capture
}

// Dial connects to the provided bufconn listener using the standard gRPC client stack.
func Dial(_ context.Context, lis *bufconn.Listener, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	dialer := func(dctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(dctx) }
	// bufconn has no TLS; the passthrough target keeps the custom dialer in use.
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dialer),
	}
	base = append(base, opts...)
	return grpc.NewClient("passthrough://bufnet", base...)
}
