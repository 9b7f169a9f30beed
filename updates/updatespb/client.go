package updatespb

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

const subscribeMethod = "/waves.events.grpc.BlockchainUpdatesApi/Subscribe"

// jsonCodec lets this client speak the BlockchainUpdatesApi service over
// grpc-go's transport without a protoc-generated codec: no .proto source
// for waves.events accompanied this spec's retrieval pack, so the wire
// messages are (de)serialized as JSON through grpc's pluggable Codec
// interface instead of binary protobuf. The streaming/flow-control
// semantics this pipeline depends on (backpressure, Recv() blocking,
// context cancellation) are unaffected by the choice of codec.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Client is a thin wrapper around a grpc.ClientConn dialed to the
// upstream BlockchainUpdatesApi service.
type Client struct {
	conn *grpc.ClientConn
}

// Connect dials the blockchain-updates gRPC endpoint. The dial does not
// block (no grpc.WithBlock): Connect returns once the client is set up,
// without waiting for the connection, so an unreachable endpoint surfaces
// as an error from the first Subscribe call rather than from Connect.
func Connect(ctx context.Context, url string) (*Client, error) {
	conn, err := grpc.DialContext(ctx, url,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodec{}.Name())),
	)
	if err != nil {
		return nil, fmt.Errorf("dial blockchain-updates at %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Stream is a server-streaming RPC handle yielding one SubscribeEvent per
// Recv call until the stream ends or ctx is canceled.
type Stream interface {
	Recv() (*SubscribeEvent, error)
}

// Subscribe opens the Subscribe(from_height, to_height=0) stream.
func (c *Client) Subscribe(ctx context.Context, fromHeight int32) (Stream, error) {
	desc := &grpc.StreamDesc{StreamName: "Subscribe", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, subscribeMethod)
	if err != nil {
		return nil, fmt.Errorf("open Subscribe stream: %w", err)
	}
	req := &SubscribeRequest{FromHeight: fromHeight, ToHeight: 0}
	if err := stream.SendMsg(req); err != nil {
		return nil, fmt.Errorf("send SubscribeRequest: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("close SubscribeRequest send side: %w", err)
	}
	return &clientStream{stream}, nil
}

type clientStream struct {
	grpc.ClientStream
}

func (s *clientStream) Recv() (*SubscribeEvent, error) {
	var event SubscribeEvent
	if err := s.ClientStream.RecvMsg(&event); err != nil {
		return nil, err
	}
	return &event, nil
}
