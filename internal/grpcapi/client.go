package grpcapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the Availability service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects without TLS; the service is meant for the internal network.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(UnaryClientRequestIDInterceptor()),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// AvailableSlots returns the open start times of serviceID on date.
func (c *Client) AvailableSlots(ctx context.Context, date string, serviceID int64) ([]string, error) {
	req, err := structpb.NewStruct(map[string]any{"date": date, "serviceId": float64(serviceID)})
	if err != nil {
		return nil, err
	}
	return c.slots(ctx, "AvailableSlots", req)
}

// AvailableSlotsForDuration is AvailableSlots for an ad-hoc service length.
func (c *Client) AvailableSlotsForDuration(ctx context.Context, date string, hours int) ([]string, error) {
	req, err := structpb.NewStruct(map[string]any{"date": date, "durationHours": float64(hours)})
	if err != nil {
		return nil, err
	}
	return c.slots(ctx, "AvailableSlots", req)
}

func (c *Client) DefaultSlots(ctx context.Context, date string) ([]string, error) {
	req, err := structpb.NewStruct(map[string]any{"date": date})
	if err != nil {
		return nil, err
	}
	return c.slots(ctx, "DefaultSlots", req)
}

func (c *Client) slots(ctx context.Context, method string, req *structpb.Struct) ([]string, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, out); err != nil {
		return nil, err
	}
	values := out.GetFields()["timeSlots"].GetListValue().GetValues()
	slots := make([]string, 0, len(values))
	for _, v := range values {
		slots = append(slots, v.GetStringValue())
	}
	return slots, nil
}
