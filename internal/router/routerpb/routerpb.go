// Package routerpb is the wire contract C12 forwards requests over: one
// gRPC service, Forward, whose request and response are the same
// JSON-codable Request API envelope internal/session already speaks,
// carried verbatim rather than re-encoded into a generated protobuf
// schema (see jsonCodec below for why).
package routerpb

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// SessionRequest/SessionResponse wrap an opaque JSON payload: the same
// bytes internal/session.Session.Dispatch accepts and returns. Forwarding a
// request is therefore "read the envelope, write the envelope" end to
// end, exactly proxy.rs's "forward the raw command, read the raw
// response" contract, just over gRPC's framed transport instead of a raw
// TCP byte stream.
type SessionRequest struct {
	Payload []byte `json:"payload"`
}

type SessionResponse struct {
	Payload []byte `json:"payload"`
}

const jsonContentSubtype = "routerjson"

// jsonCodec lets this package's messages ride gRPC's HTTP/2 framing
// without protobuf code generation: grpc-go dispatches Marshal/Unmarshal
// to whatever codec is registered for the negotiated content-subtype, and
// neither method requires its argument to implement proto.Message. This
// is the documented extension point grpc-go itself uses for non-protobuf
// encodings (see google.golang.org/grpc/encoding); protoc is unavailable
// in this environment, so the service is hand-authored in the same shape
// protoc-gen-go-grpc would produce, with this codec taking codegen's
// place for the wire format.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string { return jsonContentSubtype }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// RouterServer is the service Forward dispatches into; internal/router
// implements it and registers against a *grpc.Server with RegisterRouterServer.
type RouterServer interface {
	Forward(context.Context, *SessionRequest) (*SessionResponse, error)
}

func RegisterRouterServer(s *grpc.Server, srv RouterServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "routerpb.Router",
	HandlerType: (*RouterServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Forward",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(SessionRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(RouterServer).Forward(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/routerpb.Router/Forward"}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(RouterServer).Forward(ctx, req.(*SessionRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/router/routerpb/routerpb.go",
}

// RouterClient is the client stub Forward's caller uses.
type RouterClient interface {
	Forward(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionResponse, error)
}

type routerClient struct {
	cc *grpc.ClientConn
}

func NewRouterClient(cc *grpc.ClientConn) RouterClient {
	return &routerClient{cc: cc}
}

func (c *routerClient) Forward(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	opts = append(opts, grpc.CallContentSubtype(jsonContentSubtype))
	out := new(SessionResponse)
	if err := c.cc.Invoke(ctx, "/routerpb.Router/Forward", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
