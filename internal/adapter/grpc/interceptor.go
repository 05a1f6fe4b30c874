package grpc

import (
	"context"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	headerAuthorization = "authorization"
	headerCustomerID    = "x-customer-id"
)

type customerIDKey struct{}

// WithCustomerID returns a context carrying the authenticated customer id
func WithCustomerID(ctx context.Context, customerID int64) context.Context {
	return context.WithValue(ctx, customerIDKey{}, customerID)
}

// CustomerIDFromContext returns the customer id set by AuthInterceptor
func CustomerIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(customerIDKey{}).(int64)
	return id, ok
}

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata.
// If the token is missing or invalid, it returns status.Unauthenticated.
// If valid, the optional x-customer-id header is attached to the context
// before the handler is called.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get(headerAuthorization)
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		if authHeaders[0] != validToken {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		if ids := md.Get(headerCustomerID); len(ids) > 0 {
			customerID, err := strconv.ParseInt(ids[0], 10, 64)
			if err != nil || customerID <= 0 {
				return nil, status.Error(codes.Unauthenticated, "invalid customer id")
			}
			ctx = WithCustomerID(ctx, customerID)
		}

		return handler(ctx, req)
	}
}
