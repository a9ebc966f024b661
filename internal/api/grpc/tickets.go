package grpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/eventsphere/eventsphere/internal/auth"
	"github.com/eventsphere/eventsphere/internal/service"
	"github.com/eventsphere/eventsphere/pkg/types"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified name of the Tickets service.
const ServiceName = "eventsphere.v1.Tickets"

// Credential metadata keys.
const (
	MetadataUsername  = "x-username"
	MetadataPassword  = "x-password"
	MetadataRequestID = "x-request-id"
)

// GetEventRequest asks for one event.
type GetEventRequest struct {
	EventID uint64 `json:"event_id"`
}

// AvailableRequest asks for the unsold seats of one event and type.
type AvailableRequest struct {
	EventID    uint64           `json:"event_id"`
	TicketType types.TicketType `json:"ticket_type"`
}

// AvailableResponse reports unsold seats.
type AvailableResponse struct {
	Available uint64 `json:"available"`
}

// GenerateTicketsRequest asks for NumTickets new single-seat batches.
type GenerateTicketsRequest struct {
	EventID     uint64           `json:"event_id"`
	TicketType  types.TicketType `json:"ticket_type"`
	TicketPrice uint64           `json:"ticket_price"`
	NumTickets  uint32           `json:"num_tickets"`
}

// GenerateTicketsResponse lists the created batches.
type GenerateTicketsResponse struct {
	Tickets []types.Ticket `json:"tickets"`
}

// PurchaseTicketRequest buys NumTickets seats for AttendeeName.
type PurchaseTicketRequest struct {
	EventID      uint64           `json:"event_id"`
	TicketType   types.TicketType `json:"ticket_type"`
	AttendeeName string           `json:"attendee_name"`
	NumTickets   uint32           `json:"num_tickets"`
}

// TicketsServer serves the Tickets service over a Service.
type TicketsServer struct {
	svc *service.Service
}

// NewTicketsServer creates a Tickets server.
func NewTicketsServer(svc *service.Service) *TicketsServer {
	return &TicketsServer{svc: svc}
}

// GetEvent returns one event.
func (s *TicketsServer) GetEvent(ctx context.Context, req *GetEventRequest) (*types.Event, error) {
	e, err := s.svc.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return e, nil
}

// GetAvailableTicketsCount returns unsold seats of one type.
func (s *TicketsServer) GetAvailableTicketsCount(ctx context.Context, req *AvailableRequest) (*AvailableResponse, error) {
	n, err := s.svc.GetAvailableTicketsCount(ctx, req.EventID, req.TicketType)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &AvailableResponse{Available: n}, nil
}

// GenerateTickets creates seats. Requires Admin credentials in metadata.
func (s *TicketsServer) GenerateTickets(ctx context.Context, req *GenerateTicketsRequest) (*GenerateTicketsResponse, error) {
	tickets, err := s.svc.GenerateTickets(ctx, service.GenerateTicketsInput{
		EventID: req.EventID,
		Type:    req.TicketType,
		Price:   req.TicketPrice,
		Count:   req.NumTickets,
	}, credentials(ctx))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &GenerateTicketsResponse{Tickets: tickets}, nil
}

// PurchaseTicket buys seats. Requires User credentials in metadata.
func (s *TicketsServer) PurchaseTicket(ctx context.Context, req *PurchaseTicketRequest) (*service.PurchaseResult, error) {
	result, err := s.svc.PurchaseTicket(ctx, service.PurchaseInput{
		EventID:      req.EventID,
		Type:         req.TicketType,
		AttendeeName: req.AttendeeName,
		Count:        req.NumTickets,
	}, credentials(ctx))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return result, nil
}

func credentials(ctx context.Context) auth.Credentials {
	var creds auth.Credentials
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(MetadataUsername); len(v) > 0 {
			creds.Username = v[0]
		}
		if v := md.Get(MetadataPassword); len(v) > 0 {
			creds.Password = v[0]
		}
	}
	return creds
}

func extractRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(MetadataRequestID); len(ids) > 0 {
			return ids[0]
		}
	}
	return uuid.New().String()
}

func unaryHandler[Req any, Resp any](call func(*TicketsServer, context.Context, *Req) (*Resp, error), method string) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
		}
		if interceptor == nil {
			return call(srv.(*TicketsServer), ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(*TicketsServer), ctx, req.(*Req))
		})
	}
}

// TicketsServiceDesc describes the Tickets service to grpc.Server.
var TicketsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetEvent", Handler: unaryHandler((*TicketsServer).GetEvent, "GetEvent")},
		{MethodName: "GetAvailableTicketsCount", Handler: unaryHandler((*TicketsServer).GetAvailableTicketsCount, "GetAvailableTicketsCount")},
		{MethodName: "GenerateTickets", Handler: unaryHandler((*TicketsServer).GenerateTickets, "GenerateTickets")},
		{MethodName: "PurchaseTicket", Handler: unaryHandler((*TicketsServer).PurchaseTicket, "PurchaseTicket")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventsphere/v1/tickets",
}

// loggingInterceptor tags each call with a request id and logs it.
func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		requestID := extractRequestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(MetadataRequestID, requestID))

		resp, err := handler(ctx, req)
		logger.DebugContext(ctx, "grpc request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
			"request_id", requestID,
		)
		return resp, err
	}
}

// NewServer creates a gRPC server serving the Tickets and health services.
func NewServer(svc *service.Service, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "grpc")

	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	s := grpc.NewServer(opts...)
	s.RegisterService(&TicketsServiceDesc, NewTicketsServer(svc))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return s, hs
}

// TicketsClient calls the Tickets service.
type TicketsClient struct {
	cc grpc.ClientConnInterface
}

// NewTicketsClient wraps a client connection.
func NewTicketsClient(cc grpc.ClientConnInterface) *TicketsClient {
	return &TicketsClient{cc: cc}
}

func (c *TicketsClient) invoke(ctx context.Context, method string, req, resp interface{}, opts ...grpc.CallOption) error {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp, opts...)
}

func (c *TicketsClient) GetEvent(ctx context.Context, req *GetEventRequest, opts ...grpc.CallOption) (*types.Event, error) {
	out := new(types.Event)
	if err := c.invoke(ctx, "GetEvent", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TicketsClient) GetAvailableTicketsCount(ctx context.Context, req *AvailableRequest, opts ...grpc.CallOption) (*AvailableResponse, error) {
	out := new(AvailableResponse)
	if err := c.invoke(ctx, "GetAvailableTicketsCount", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TicketsClient) GenerateTickets(ctx context.Context, req *GenerateTicketsRequest, opts ...grpc.CallOption) (*GenerateTicketsResponse, error) {
	out := new(GenerateTicketsResponse)
	if err := c.invoke(ctx, "GenerateTickets", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TicketsClient) PurchaseTicket(ctx context.Context, req *PurchaseTicketRequest, opts ...grpc.CallOption) (*service.PurchaseResult, error) {
	out := new(service.PurchaseResult)
	if err := c.invoke(ctx, "PurchaseTicket", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WithCredentials attaches a username and password to an outgoing context.
func WithCredentials(ctx context.Context, username, password string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, MetadataUsername, username, MetadataPassword, password)
}
