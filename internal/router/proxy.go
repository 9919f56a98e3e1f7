package router

import (
	"context"
	"sync"
	"time"

	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/log"
	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/metrics"
	"github.com/samyama-ai/samyama-graph-sub001/internal/router/routerpb"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Proxy forwards a Request API envelope to a remote node and returns its
// reply, the networking half of routing. It keeps one lazily-dialed
// *grpc.ClientConn per node address rather than dialing per call.
type Proxy struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

func NewProxy() *Proxy {
	return &Proxy{conns: make(map[string]*grpc.ClientConn)}
}

func (p *Proxy) conn(addr string) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.conns[addr]; ok {
		return c, nil
	}
	c, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, samerr.Wrap(samerr.CodeIoError, err, "dialing shard owner %s", addr)
	}
	p.conns[addr] = c
	return c, nil
}

// Forward sends payload (a session.Envelope, JSON-encoded) to addr and
// returns the remote reply bytes verbatim.
func (p *Proxy) Forward(ctx context.Context, addr string, payload []byte) ([]byte, error) {
	conn, err := p.conn(addr)
	if err != nil {
		metrics.RouterForwardsTotal.WithLabelValues("dial_error").Inc()
		return nil, err
	}
	client := routerpb.NewRouterClient(conn)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := client.Forward(ctx, &routerpb.SessionRequest{Payload: payload})
	if err != nil {
		metrics.RouterForwardsTotal.WithLabelValues("error").Inc()
		log.Logger.Warn().Str("addr", addr).Err(err).Msg("forward failed")
		return nil, samerr.Wrap(samerr.CodeIoError, err, "forwarding to %s", addr)
	}
	metrics.RouterForwardsTotal.WithLabelValues("ok").Inc()
	return resp.Payload, nil
}

func (p *Proxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, c := range p.conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Dispatcher is the local handler a Server forwards into: internal/
// session.Session satisfies this with its Dispatch method.
type Dispatcher interface {
	Dispatch(payload []byte) []byte
}

// Server implements routerpb.RouterServer by handing a forwarded
// envelope straight to the local Dispatcher, the receiving half of
// proxy.rs's contract.
type Server struct {
	Local Dispatcher
}

func (s *Server) Forward(ctx context.Context, req *routerpb.SessionRequest) (*routerpb.SessionResponse, error) {
	return &routerpb.SessionResponse{Payload: s.Local.Dispatch(req.Payload)}, nil
}

var _ routerpb.RouterServer = (*Server)(nil)
