// Package health provides a minimal built-in Health RPC that reports the
// live state of registered circuit breakers. It uses [grpc.ServiceDesc]
// registration so that no protobuf code generation is required.
//
// Because the request/response types are plain Go structs (not generated
// protobuf messages), the package registers a thin codec wrapper that
// JSON-encodes health types while delegating all other messages to the
// standard proto codec. Import this package (or call [Register]) to
// activate the codec automatically.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Keksclan/goFuseSquirrel/breaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcEncoding "google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto" // ensure default proto codec is registered first
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// CheckRequest is the input for the Check method. An empty Breaker name
// requests the status of every registered breaker.
type CheckRequest struct {
	Breaker string `json:"breaker"`
}

// BreakerStatus describes one breaker at the time of the check.
type BreakerStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Open  bool   `json:"open"`
}

// CheckResponse is the output of the Check method.
type CheckResponse struct {
	Statuses       []BreakerStatus `json:"statuses"`
	ServerTimeUnix int64           `json:"server_time_unix"`
}

// healthMsg is a marker interface satisfied by CheckRequest and
// CheckResponse.
type healthMsg interface {
	isHealthMsg()
}

func (*CheckRequest) isHealthMsg()  {}
func (*CheckResponse) isHealthMsg() {}

// Handler is the interface that a Health service implementation must
// satisfy.
type Handler interface {
	Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error)
}

// Registry is a Handler backed by a named set of breakers. Checking a
// breaker performs a passive state poll, so an open breaker whose closing
// interval has elapsed closes during the health check, exactly as it
// would on the next guarded request.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]breaker.Breaker
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]breaker.Breaker)}
}

// Add registers b under name, replacing any previous entry.
func (r *Registry) Add(name string, b breaker.Breaker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers[name] = b
}

// Check reports the state of the requested breaker, or of all registered
// breakers when the request names none. Unknown names yield NotFound.
func (r *Registry) Check(_ context.Context, req *CheckRequest) (*CheckResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resp := &CheckResponse{ServerTimeUnix: time.Now().Unix()}

	if req.Breaker != "" {
		b, ok := r.breakers[req.Breaker]
		if !ok {
			return nil, status.Errorf(codes.NotFound, "unknown breaker %q", req.Breaker)
		}
		resp.Statuses = append(resp.Statuses, statusOf(req.Breaker, b))
		return resp, nil
	}

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		resp.Statuses = append(resp.Statuses, statusOf(name, r.breakers[name]))
	}
	return resp, nil
}

func statusOf(name string, b breaker.Breaker) BreakerStatus {
	allowed := b.CheckState()
	st := breaker.Closed
	if !allowed {
		st = breaker.Open
	}
	return BreakerStatus{Name: name, State: st.String(), Open: !allowed}
}

// ServiceDesc is the grpc.ServiceDesc for the fuse.Health service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "fuse.Health",
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Check",
			Handler:    checkHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fuse/health.proto",
}

func checkHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(CheckRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handler).Check(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/fuse.Health/Check",
	}
	handler := func(ctx context.Context, r any) (any, error) {
		return srv.(Handler).Check(ctx, r.(*CheckRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// Register registers a Health service implementation on the given gRPC
// server.
func Register(s *grpc.Server, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}

// ---------- codec wrapper ----------

func init() {
	// Replace the default proto codec with a thin wrapper that
	// JSON-encodes health types and delegates all other (protobuf)
	// messages to proto.Marshal.
	grpcEncoding.RegisterCodec(healthCodec{})
}

// healthCodec wraps the default proto codec. It handles CheckRequest and
// CheckResponse via JSON, and delegates all other types to
// proto.Marshal/Unmarshal.
type healthCodec struct{}

func (healthCodec) Name() string { return "proto" }

func (healthCodec) Marshal(v any) ([]byte, error) {
	if _, ok := v.(healthMsg); ok {
		return json.Marshal(v)
	}
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("health codec: unsupported message type %T", v)
}

func (healthCodec) Unmarshal(data []byte, v any) error {
	if _, ok := v.(healthMsg); ok {
		return json.Unmarshal(data, v)
	}
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("health codec: unsupported message type %T", v)
}
