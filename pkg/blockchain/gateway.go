package blockchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// LedgerServiceName is the gRPC service exposed by ledger gateways.
const LedgerServiceName = "shdw.ledger.v1.Ledger"

// RequestIDHeader carries a per-call id to the gateway.
const RequestIDHeader = "x-request-id"

// LedgerServer is the server side of the ledger gateway. Messages are
// protobuf well-known types so no generated code is needed.
type LedgerServer interface {
	GetLatestBlockhash(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	SendTransaction(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	GetTransactionStatus(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	GetAccountInfo(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

func unaryHandler[Req any, Resp any](method string, call func(LedgerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + LedgerServiceName + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(LedgerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// LedgerServiceDesc describes the ledger gateway for grpc.Server.RegisterService.
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: LedgerServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetLatestBlockhash", LedgerServer.GetLatestBlockhash),
		unaryHandler("SendTransaction", LedgerServer.SendTransaction),
		unaryHandler("GetTransactionStatus", LedgerServer.GetTransactionStatus),
		unaryHandler("GetAccountInfo", LedgerServer.GetAccountInfo),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shdw/ledger/v1/ledger.proto",
}

// GRPCLedger is a Ledger over a gRPC gateway.
type GRPCLedger struct {
	conn *grpc.ClientConn
}

// DialGRPC opens a connection to a ledger gateway. "https://" targets use
// TLS with the system roots; "http://" and bare host:port targets are
// plaintext. Later opts override the derived credentials.
func DialGRPC(target string, opts ...grpc.DialOption) (*GRPCLedger, error) {
	addr, creds := credsFromTarget(target)
	conn, err := grpc.NewClient(addr, append([]grpc.DialOption{creds}, opts...)...)
	if err != nil {
		zap.L().Error("Failed to dial ledger gateway", zap.String("target", target), zap.Error(err))
		return nil, err
	}
	return NewGRPCLedger(conn), nil
}

func credsFromTarget(target string) (string, grpc.DialOption) {
	if strings.HasPrefix(target, "https://") {
		return strings.TrimPrefix(target, "https://"), grpc.WithTransportCredentials(credentials.NewTLS(nil))
	}
	return strings.TrimPrefix(target, "http://"), grpc.WithTransportCredentials(insecure.NewCredentials())
}

// NewGRPCLedger wraps an existing connection.
func NewGRPCLedger(conn *grpc.ClientConn) *GRPCLedger {
	return &GRPCLedger{conn: conn}
}

// Conn returns the underlying connection.
func (l *GRPCLedger) Conn() *grpc.ClientConn { return l.conn }

func (l *GRPCLedger) invoke(ctx context.Context, method string, in, out interface{}) error {
	ctx = metadata.AppendToOutgoingContext(ctx, RequestIDHeader, uuid.NewString())
	return l.conn.Invoke(ctx, "/"+LedgerServiceName+"/"+method, in, out)
}

// RecentBlockhash implements Ledger.
func (l *GRPCLedger) RecentBlockhash(ctx context.Context) (common.Hash, error) {
	out := new(wrapperspb.BytesValue)
	if err := l.invoke(ctx, "GetLatestBlockhash", &emptypb.Empty{}, out); err != nil {
		return common.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return common.BytesToHash(out.GetValue()), nil
}

// SendTransaction implements Ledger. InvalidArgument and FailedPrecondition
// are rejections.
func (l *GRPCLedger) SendTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	out := new(wrapperspb.BytesValue)
	if err := l.invoke(ctx, "SendTransaction", wrapperspb.Bytes(raw), out); err != nil {
		switch status.Code(err) {
		case codes.InvalidArgument, codes.FailedPrecondition:
			return common.Hash{}, fmt.Errorf("%w: %s", ErrLedgerRejected, status.Convert(err).Message())
		}
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	return common.BytesToHash(out.GetValue()), nil
}

// TransactionStatus implements Ledger. NotFound reads as pending.
func (l *GRPCLedger) TransactionStatus(ctx context.Context, hash common.Hash) (TxStatus, error) {
	out := new(structpb.Struct)
	if err := l.invoke(ctx, "GetTransactionStatus", wrapperspb.Bytes(hash.Bytes()), out); err != nil {
		if status.Code(err) == codes.NotFound {
			return TxStatus{Status: StatusPending}, nil
		}
		return TxStatus{}, fmt.Errorf("get transaction status: %w", err)
	}
	fields := out.GetFields()
	return parseStatus(fields["status"].GetStringValue(), fields["err"].GetStringValue()), nil
}

// AccountInfo implements Ledger.
func (l *GRPCLedger) AccountInfo(ctx context.Context, addr common.Address) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := l.invoke(ctx, "GetAccountInfo", wrapperspb.Bytes(addr.Bytes()), out); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr.Hex())
		}
		return nil, fmt.Errorf("get account info: %w", err)
	}
	return out.GetValue(), nil
}

// Close releases the connection.
func (l *GRPCLedger) Close() error {
	return l.conn.Close()
}
