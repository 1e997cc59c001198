package grpcapi

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"heyu/internal/database"
	"heyu/internal/models"
	"heyu/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func startServer(t *testing.T) (*Client, *grpc.ClientConn) {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "heyu.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.SaveService(ctx, &models.Service{ID: 1, NameEn: "Gel Manicure", Duration: "3小时"}))
	require.NoError(t, db.CreateBooking(ctx, &models.Booking{
		BookingID: "BK1", SelectedDate: "2025-03-04", SelectedTime: "09:00", DurationHours: 3, Status: models.StatusConfirmed,
	}))

	avail := service.NewAvailabilityService(nil, db, db, db, nil, &logger)
	srv := NewServer(avail, &logger)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	client, err := Dial("passthrough:///bufnet", dialer)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, client.conn
}

func TestAvailableSlots(t *testing.T) {
	client, _ := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slots, err := client.AvailableSlots(ctx, "2025-03-04", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"12:00", "15:00", "18:00"}, slots)

	slots, err = client.AvailableSlotsForDuration(ctx, "2025-03-04", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"12:00", "15:00"}, slots)
}

func TestAvailableSlots_Errors(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"UnknownService", func() error { _, err := client.AvailableSlots(ctx, "2025-03-04", 42); return err }, codes.NotFound},
		{"MissingDate", func() error { _, err := client.AvailableSlots(ctx, "", 1); return err }, codes.InvalidArgument},
		{"MissingService", func() error { _, err := client.AvailableSlots(ctx, "2025-03-04", 0); return err }, codes.InvalidArgument},
		{"DefaultMissingDate", func() error { _, err := client.DefaultSlots(ctx, " "); return err }, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(tt.call()))
		})
	}
}

func TestDefaultSlots(t *testing.T) {
	client, _ := startServer(t)

	slots, err := client.DefaultSlots(context.Background(), "2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "12:00", "15:00"}, slots)
}

func TestRequestIDEcho(t *testing.T) {
	_, conn := startServer(t)

	req, err := newStruct(map[string]any{"date": "2025-03-03"})
	require.NoError(t, err)

	var header metadata.MD
	ctx := WithRequestID(context.Background(), "req-7")
	out := new(structpb.Struct)
	require.NoError(t, conn.Invoke(ctx, "/"+ServiceName+"/DefaultSlots", req, out, grpc.Header(&header)))

	assert.Equal(t, []string{"req-7"}, header.Get(RequestIDMetadataKey))
	assert.Len(t, out.GetFields()["timeSlots"].GetListValue().GetValues(), 3)
}

func TestHealth(t *testing.T) {
	_, conn := startServer(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
