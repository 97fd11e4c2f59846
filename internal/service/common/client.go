//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/sam-phinizy/beer-hall/internal/api/grpc/registry"
	"github.com/sam-phinizy/beer-hall/internal/config"
	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	repository "github.com/sam-phinizy/beer-hall/internal/repository/registry"
)

// Client wraps a gRPC connection to the registry server with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the registry server.
	conn *grpc.ClientConn

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errNameRequired is returned when no package name is given.
	errNameRequired = errors.New("package name must be provided")
	// errNotConnected is returned when a call is made on a client without a connection.
	errNotConnected = errors.New("client is not connected")
)

// Dial establishes a gRPC connection to the registry server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial registry server: %w", err)
	}

	client := &Client{
		conn:        conn,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Resolve asks the server for the artifact of name@version on target.
// An empty version selects the latest one.
func (c *Client) Resolve(ctx context.Context, name, version string, target formula.Target) (*formula.Selection, error) {
	if name == "" {
		return nil, errNameRequired
	}

	if c.conn == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request := api.NewResolveRequest(&api.ResolveRequest{
		Name:    name,
		Version: version,
		Target:  target,
	})

	response := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, api.ResolveMethod, request, response); err != nil {
		return nil, fromStatus(err, name, version, target)
	}

	return api.SelectionFromStruct(response), nil
}

// ListFormulas returns a summary of every package known to the server.
func (c *Client) ListFormulas(ctx context.Context) ([]formula.Summary, error) {
	if c.conn == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, api.ListFormulasMethod, new(structpb.Struct), response); err != nil {
		return nil, fmt.Errorf("list formulas: %w", err)
	}

	return api.SummariesFromStruct(response)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// fromStatus restores domain errors from gRPC status codes.
func fromStatus(err error, name, version string, target formula.Target) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", name, repository.ErrNotFound)
	case codes.FailedPrecondition:
		return &formula.UnsupportedPlatformError{Package: name, Version: version, Target: target}
	default:
		return fmt.Errorf("resolve %s: %w", name, err)
	}
}
