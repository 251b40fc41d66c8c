package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func testBreaker() *Breaker {
	return New(Config{
		Name:                "test",
		MaxRequests:         1,
		Timeout:             time.Hour,
		ConsecutiveFailures: 3,
	})
}

func TestCall_PassesResult(t *testing.T) {
	b := testBreaker()

	got, err := Call(b, func() (int, error) { return 42, nil })

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestCall_TripsOnTransportFailures(t *testing.T) {
	b := testBreaker()
	unavailable := status.Error(codes.Unavailable, "connection refused")

	for i := 0; i < 3; i++ {
		_, err := Call(b, func() (string, error) { return "", unavailable })
		require.Error(t, err)
		assert.False(t, IsOpen(err))
	}

	calls := 0
	_, err := Call(b, func() (string, error) {
		calls++
		return "ok", nil
	})
	require.Error(t, err)
	assert.True(t, IsOpen(err))
	assert.Zero(t, calls)
	assert.Equal(t, "open", b.State())
}

func TestCall_BusinessErrorsDoNotTrip(t *testing.T) {
	b := testBreaker()
	notFound := status.Error(codes.NotFound, "product not found")

	for i := 0; i < 10; i++ {
		_, err := Call(b, func() (*struct{}, error) { return nil, notFound })
		require.Error(t, err)
		assert.Equal(t, codes.NotFound, status.Code(err))
	}

	assert.Equal(t, "closed", b.State())
}

func TestCall_NilBreaker(t *testing.T) {
	got, err := Call(nil, func() (string, error) { return "direct", nil })

	require.NoError(t, err)
	assert.Equal(t, "direct", got)
}

func TestIsSuccessful(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"not found", status.Error(codes.NotFound, "x"), true},
		{"failed precondition", status.Error(codes.FailedPrecondition, "x"), true},
		{"invalid argument", status.Error(codes.InvalidArgument, "x"), true},
		{"caller canceled", fmt.Errorf("wrapped: %w", context.Canceled), true},
		{"unavailable", status.Error(codes.Unavailable, "x"), false},
		{"deadline", status.Error(codes.DeadlineExceeded, "x"), false},
		{"internal", status.Error(codes.Internal, "x"), false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSuccessful(tt.err))
		})
	}
}
