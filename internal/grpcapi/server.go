// Package grpcapi exposes slot availability over gRPC for internal consumers.
//
// Messages are google.protobuf.Struct values so no generated stubs are needed:
//
//	AvailableSlots {date, serviceId?, durationHours?} -> {date, timeSlots, service?}
//	DefaultSlots   {date}                             -> {date, timeSlots}
package grpcapi

import (
	"context"
	"errors"
	"net"
	"strings"

	"heyu/internal/models"
	"heyu/internal/service"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "heyu.availability.v1.Availability"

// AvailabilityServer is the server API for the Availability service.
type AvailabilityServer interface {
	AvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DefaultSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func availableSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).AvailableSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/AvailableSlots"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).AvailableSlots(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func defaultSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).DefaultSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/DefaultSlots"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).DefaultSlots(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AvailableSlots", Handler: availableSlotsHandler},
		{MethodName: "DefaultSlots", Handler: defaultSlotsHandler},
	},
	Metadata: "heyu/availability/v1/availability.proto",
}

func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&serviceDesc, srv)
}

type server struct {
	avail  *service.AvailabilityService
	logger *zerolog.Logger
}

func (s *server) AvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	date, err := requireDate(req)
	if err != nil {
		return nil, err
	}
	fields := req.GetFields()

	var (
		slots []string
		svc   *models.Service
	)
	switch {
	case fields["serviceId"].GetNumberValue() > 0:
		id := int64(fields["serviceId"].GetNumberValue())
		slots, svc, err = s.avail.AvailableSlotsForService(ctx, date, id)
		if errors.Is(err, models.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "service %d not found", id)
		}
	case fields["durationHours"].GetNumberValue() > 0:
		svc = &models.Service{DurationHours: int(fields["durationHours"].GetNumberValue())}
		slots, err = s.avail.AvailableSlots(ctx, date, svc)
	default:
		return nil, status.Error(codes.InvalidArgument, "serviceId or durationHours is required")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("gRPC availability failed")
		return nil, status.Error(codes.Internal, err.Error())
	}

	out := map[string]any{"date": date, "timeSlots": toAnySlice(slots)}
	if svc != nil && svc.ID != 0 {
		out["service"] = map[string]any{
			"id":            float64(svc.ID),
			"nameCn":        svc.NameCn,
			"nameEn":        svc.NameEn,
			"durationHours": float64(svc.Hours()),
		}
	}
	return newStruct(out)
}

func (s *server) DefaultSlots(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	date, err := requireDate(req)
	if err != nil {
		return nil, err
	}
	return newStruct(map[string]any{
		"date":      date,
		"timeSlots": toAnySlice(s.avail.DefaultSlots(date)),
	})
}

func requireDate(req *structpb.Struct) (string, error) {
	date := strings.TrimSpace(req.GetFields()["date"].GetStringValue())
	if date == "" {
		return "", status.Error(codes.InvalidArgument, "date is required")
	}
	return date, nil
}

func toAnySlice(slots []string) []any {
	out := make([]any, len(slots))
	for i, v := range slots {
		out[i] = v
	}
	return out
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

// Server owns the gRPC listener, the availability service and the health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *zerolog.Logger
}

func NewServer(avail *service.AvailabilityService, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		UnaryServerRequestIDInterceptor(),
		unaryLoggingInterceptor(logger),
	))
	RegisterAvailabilityServer(gs, &server{avail: avail, logger: logger})

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{grpc: gs, health: hs, logger: logger}
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info().Str("address", lis.Addr().String()).Msg("gRPC server listening")
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop marks the service not serving and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
