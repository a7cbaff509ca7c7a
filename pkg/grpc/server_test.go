package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("db down") }

	tests := []struct {
		name   string
		checks []Checker
		want   grpc_health_v1.HealthCheckResponse_ServingStatus
	}{
		{"no checks", nil, grpc_health_v1.HealthCheckResponse_SERVING},
		{"all healthy", []Checker{ok, ok}, grpc_health_v1.HealthCheckResponse_SERVING},
		{"one failing", []Checker{ok, down}, grpc_health_v1.HealthCheckResponse_NOT_SERVING},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &healthServer{checks: tt.checks}
			resp, err := h.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}
