package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tair/movie-review/internal/review/usecase/query"
	"github.com/tair/movie-review/pkg/apperror"
	"github.com/tair/movie-review/pkg/auth"
)

// Service and method names of the read-only review API
const (
	ServiceName             = "review.v1.ReviewQueryService"
	MethodGetReview         = "/" + ServiceName + "/GetReview"
	MethodGetContentSummary = "/" + ServiceName + "/GetContentSummary"
	MethodHasReviewed       = "/" + ServiceName + "/HasReviewed"
)

// ReviewQueryServer is the server API of review.v1.ReviewQueryService.
// Requests and responses are google.protobuf.Struct values carrying the
// same fields as the HTTP API.
type ReviewQueryServer interface {
	GetReview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetContentSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HasReviewed(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ReviewQueryServiceDesc describes the service for grpc.Server.RegisterService
var ReviewQueryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReviewQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetReview", Handler: unaryHandler(MethodGetReview, ReviewQueryServer.GetReview)},
		{MethodName: "GetContentSummary", Handler: unaryHandler(MethodGetContentSummary, ReviewQueryServer.GetContentSummary)},
		{MethodName: "HasReviewed", Handler: unaryHandler(MethodHasReviewed, ReviewQueryServer.HasReviewed)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "review/v1/review_query.proto",
}

type unaryMethod func(ReviewQueryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReviewQueryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ReviewQueryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterReviewQueryServer registers srv on s
func RegisterReviewQueryServer(s grpc.ServiceRegistrar, srv ReviewQueryServer) {
	s.RegisterService(&ReviewQueryServiceDesc, srv)
}

// ReviewServer implements ReviewQueryServer on the query handlers
type ReviewServer struct {
	getHandler         *query.GetReviewHandler
	contentHandler     *query.GetContentReviewsHandler
	hasReviewedHandler *query.HasReviewedHandler
}

// NewReviewServer creates a new gRPC review server
func NewReviewServer(
	getHandler *query.GetReviewHandler,
	contentHandler *query.GetContentReviewsHandler,
	hasReviewedHandler *query.HasReviewedHandler,
) *ReviewServer {
	return &ReviewServer{
		getHandler:         getHandler,
		contentHandler:     contentHandler,
		hasReviewedHandler: hasReviewedHandler,
	}
}

// GetReview returns one review. Request: {"id": number}
func (s *ReviewServer) GetReview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	idValue, ok := req.GetFields()["id"]
	if !ok {
		return nil, toStatus(apperror.Validation("id is required"))
	}
	id := idValue.GetNumberValue()
	if id < 1 || id != float64(uint(id)) {
		return nil, toStatus(apperror.Validation("id must be a positive integer"))
	}

	review, err := s.getHandler.Handle(ctx, query.GetReviewQuery{ReviewID: uint(id)})
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(review)
}

// GetContentSummary returns the review summary of a piece of content.
// Request: {"externalContentId": string, "contentType": string}
func (s *ReviewServer) GetContentSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	summary, err := s.contentHandler.Handle(ctx, query.GetContentReviewsQuery{
		ExternalContentID: fields["externalContentId"].GetStringValue(),
		ContentType:       fields["contentType"].GetStringValue(),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(summary)
}

// HasReviewed reports whether the authenticated caller reviewed a piece of content
func (s *ReviewServer) HasReviewed(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, toStatus(auth.ErrInvalidToken)
	}

	fields := req.GetFields()
	reviewed, err := s.hasReviewedHandler.Handle(ctx, query.HasReviewedQuery{
		Caller:            id,
		ExternalContentID: fields["externalContentId"].GetStringValue(),
		ContentType:       fields["contentType"].GetStringValue(),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]interface{}{"hasReviewed": reviewed})
}

func toStatus(err error) error {
	return status.Error(apperror.GRPCCode(err), apperror.PublicMessage(err))
}

// toStruct converts a response through its JSON form so field names match the HTTP API
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return structpb.NewStruct(m)
}
