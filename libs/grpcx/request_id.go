package grpcx

import (
	"context"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/clinicdesk/libs/httpx"
	"google.golang.org/grpc/metadata"
)

// RequestIDMetadataKey is the gRPC metadata twin of the X-Request-Id HTTP header.
const RequestIDMetadataKey = "x-request-id"

// RequestIDFromContext shares storage with httpx so HTTP and gRPC logs carry one id.
func RequestIDFromContext(ctx context.Context) string {
	return httpx.RequestIDFromContext(ctx)
}

func incomingRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(RequestIDMetadataKey); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return uuid.NewString()
}
