package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gemdeck/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type fakeProber struct {
	fail atomic.Bool
}

func (f *fakeProber) Probe(context.Context) error {
	if f.fail.Load() {
		return errors.New("storage down")
	}
	return nil
}

type upRecorder struct {
	up atomic.Int32
}

func (*upRecorder) APICall(string, string)   {}
func (*upRecorder) ObjectStored(string, int) {}
func (*upRecorder) ImagesCascaded(int)       {}
func (r *upRecorder) StorageUp(up bool) {
	if up {
		r.up.Store(1)
	} else {
		r.up.Store(-1)
	}
}

func TestCheck_TracksProbe(t *testing.T) {
	p := &fakeProber{}
	rec := &upRecorder{}
	s := NewHealthServer("", p, time.Second, rec, logging.Discard())

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, s.check(context.Background()))
	assert.Equal(t, int32(1), rec.up.Load())

	p.fail.Store(true)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, s.check(context.Background()))
	assert.Equal(t, int32(-1), rec.up.Load())
}

func TestServe_HealthOverBufconn(t *testing.T) {
	p := &fakeProber{}
	s := NewHealthServer("", p, time.Hour, nil, logging.Discard())

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	p.fail.Store(true)
	s.check(ctx)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	s := NewHealthServer("127.0.0.1:99999", &fakeProber{}, time.Second, nil, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	s := NewHealthServer("127.0.0.1:0", &fakeProber{}, time.Hour, nil, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}
