// Package grpcapi implements the boolexpr.v1.Expressions gRPC service.
//
// The service has no generated stubs: every method takes and returns a
// google.protobuf.Struct, and the service descriptor is registered by hand.
// Request fields:
//
//	source    string   expression text
//	ast       object   record form, used when source is empty
//	name      string   stored expression, used when source and ast are empty
//	env       object   variable -> bool (Evaluate)
//	optimize  bool     fold constants before evaluating (Evaluate)
//	case      string   upper | lower | mixed
//	parens    string   minimal | always | never
//	indent    number   spaces per level, 0 for one line
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/boolexpr/pkg/expr"
	"github.com/lemonberrylabs/boolexpr/pkg/store"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "boolexpr.v1.Expressions"

// ExpressionsServer is the server API for the Expressions service.
type ExpressionsServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Optimize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Format(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the Expressions service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExpressionsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Parse", ExpressionsServer.Parse),
		unary("Evaluate", ExpressionsServer.Evaluate),
		unary("Optimize", ExpressionsServer.Optimize),
		unary("Format", ExpressionsServer.Format),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "boolexpr/v1/expressions.proto",
}

type method func(ExpressionsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call method) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ExpressionsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ExpressionsServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Server implements the Expressions service.
type Server struct {
	store  *store.Store
	format expr.PrintOptions
	grpc   *grpc.Server
}

// New creates a new gRPC server wrapping the given store.
func New(s *store.Store, format expr.PrintOptions) *Server {
	srv := &Server{
		store:  s,
		format: format,
	}

	gs := grpc.NewServer(grpc.UnaryInterceptor(logCalls))
	gs.RegisterService(&ServiceDesc, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

func logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	slog.Debug("grpc call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

// --- Expressions Service ---

func (s *Server) Parse(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	node, _, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	opts, err := s.printOptions(req)
	if err != nil {
		return nil, err
	}
	return newStruct(map[string]any{
		"ast":       expr.ToRecord(node),
		"formatted": expr.PrettyPrint(node, opts),
	})
}

func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	node, stored, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	env, err := envFromStruct(req.GetFields()["env"])
	if err != nil {
		return nil, err
	}
	if req.GetFields()["optimize"].GetBoolValue() {
		node = expr.Optimize(node)
	}

	result, evalErr := expr.Evaluate(node, env)
	if stored != nil {
		s.store.RecordEvaluation(stored, env, result, evalErr)
	}
	if evalErr != nil {
		return nil, languageStatus(evalErr)
	}

	out := map[string]any{"result": result}
	if stored != nil {
		out["expression"] = stored.Name
		out["revision"] = stored.Revision
	}
	return newStruct(out)
}

func (s *Server) Optimize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	node, _, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	opts, err := s.printOptions(req)
	if err != nil {
		return nil, err
	}
	optimized := expr.Optimize(node)
	return newStruct(map[string]any{
		"ast":       expr.ToRecord(optimized),
		"formatted": expr.PrettyPrint(optimized, opts),
	})
}

func (s *Server) Format(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	node, _, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	opts, err := s.printOptions(req)
	if err != nil {
		return nil, err
	}
	return newStruct(map[string]any{"formatted": expr.PrettyPrint(node, opts)})
}

// --- Helpers ---

// resolve builds the request's tree from source, ast or a stored name, in
// that order of preference. The stored expression is returned when used.
func (s *Server) resolve(req *structpb.Struct) (expr.Node, *store.Expression, error) {
	fields := req.GetFields()

	if source := fields["source"].GetStringValue(); source != "" {
		node, err := expr.Parse(source)
		if err != nil {
			return nil, nil, languageStatus(err)
		}
		return node, nil, nil
	}

	if ast := fields["ast"].GetStructValue(); ast != nil {
		node, err := expr.FromRecord(ast.AsMap())
		if err != nil {
			return nil, nil, languageStatus(err)
		}
		return node, nil, nil
	}

	if name := fields["name"].GetStringValue(); name != "" {
		e, err := s.store.Get(name)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, status.Error(codes.NotFound, err.Error())
		}
		if err != nil {
			return nil, nil, status.Error(codes.Internal, err.Error())
		}
		return e.Node(), e, nil
	}

	return nil, nil, status.Error(codes.InvalidArgument, "one of source, ast or name is required")
}

func (s *Server) printOptions(req *structpb.Struct) (expr.PrintOptions, error) {
	opts := s.format
	fields := req.GetFields()

	if v := fields["case"].GetStringValue(); v != "" {
		cs, err := expr.ParseCaseStyle(v)
		if err != nil {
			return opts, status.Error(codes.InvalidArgument, err.Error())
		}
		opts.Case = cs
	}
	if v := fields["parens"].GetStringValue(); v != "" {
		pm, err := expr.ParseParenMode(v)
		if err != nil {
			return opts, status.Error(codes.InvalidArgument, err.Error())
		}
		opts.Parens = pm
	}
	if v, ok := fields["indent"]; ok {
		n := v.GetNumberValue()
		if n < 0 || n != float64(int(n)) {
			return opts, status.Errorf(codes.InvalidArgument, "indent must be a non-negative integer, got %v", n)
		}
		opts.Indent = int(n)
	}
	return opts, nil
}

// envFromStruct converts an env object. Struct fields are unordered, so
// variables are added in sorted name order.
func envFromStruct(v *structpb.Value) (*expr.Env, error) {
	env := expr.NewEnv()
	switch v.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return env, nil
	case *structpb.Value_StructValue:
	default:
		return nil, status.Error(codes.InvalidArgument, "env must be an object of booleans")
	}
	st := v.GetStructValue()

	names := make([]string, 0, len(st.GetFields()))
	for name := range st.GetFields() {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b, ok := st.GetFields()[name].GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "env variable '%s' must be a boolean", name)
		}
		env.Set(name, b.BoolValue)
	}
	return env, nil
}

func languageStatus(err error) error {
	return status.Errorf(codes.InvalidArgument, "%s: %v", expr.KindOf(err), err)
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return st, nil
}
