// Package client is the operator-side wrapper over the Mintflow gRPC API.
package client

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/api"
	"github.com/dmitrijs2005/mintflow/internal/certifier"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/dmitrijs2005/mintflow/internal/workflow"
)

type GRPCClient struct {
	conn        *grpc.ClientConn
	client      api.MintflowClient
	accessToken string
}

// RemoteStageError is a failed run as reported by the server.
type RemoteStageError struct {
	Stage         string `json:"stage"`
	EntityID      string `json:"entityId"`
	Outcome       string `json:"outcome"`
	LastConfirmed string `json:"lastConfirmed"`
	Message       string `json:"message"`
}

func (e *RemoteStageError) Error() string {
	return fmt.Sprintf("%s %s: %s (last confirmed %s): %s", e.Stage, e.EntityID, e.Outcome, e.LastConfirmed, e.Message)
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(ctx context.Context, method string, req, reply any,
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	if c.accessToken != "" {
		ctx = withAccessToken(ctx, c.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// New connects lazily to addr. Extra dial options are appended after the
// defaults, so tests can supply their own dialer.
func New(addr, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{accessToken: accessToken}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewMintflowClient(conn)
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// mapError turns a status carrying a stage detail into *RemoteStageError.
func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		s, ok := d.(*structpb.Struct)
		if !ok {
			continue
		}
		var se RemoteStageError
		if api.FromStruct(s, &se) == nil && se.Stage != "" {
			return &se
		}
	}
	return err
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	_, err := c.client.Ping(ctx, &emptypb.Empty{})
	return err
}

func (c *GRPCClient) StartTransfer(ctx context.Context, t workflow.Transfer) (*workflow.Result, error) {
	req, err := api.ToStruct(t)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.StartTransfer(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	var res workflow.Result
	if err := api.FromStruct(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BatchItem is one transfer of a batch as reported by the server.
type BatchItem struct {
	ExternalRef string            `json:"externalRef"`
	Result      *workflow.Result  `json:"result,omitempty"`
	Error       *RemoteStageError `json:"error,omitempty"`
}

func (c *GRPCClient) StartBatch(ctx context.Context, transfers []workflow.Transfer) ([]BatchItem, error) {
	req, err := api.ToStruct(map[string]any{"transfers": transfers})
	if err != nil {
		return nil, err
	}
	resp, err := c.client.StartBatch(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	var out struct {
		Items []BatchItem `json:"items"`
	}
	if err := api.FromStruct(resp, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func get[T any](ctx context.Context, call func(context.Context, *wrapperspb.StringValue, ...grpc.CallOption) (*structpb.Struct, error), key string) (*T, error) {
	resp, err := call(ctx, wrapperspb.String(key))
	if err != nil {
		return nil, err
	}
	var v T
	if err := api.FromStruct(resp, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *GRPCClient) GetInjection(ctx context.Context, id string) (*models.Injection, error) {
	return get[models.Injection](ctx, c.client.GetInjection, id)
}

func (c *GRPCClient) GetLock(ctx context.Context, id string) (*models.Lock, error) {
	return get[models.Lock](ctx, c.client.GetLock, id)
}

func (c *GRPCClient) GetCertificate(ctx context.Context, id string) (*models.Certificate, error) {
	return get[models.Certificate](ctx, c.client.GetCertificate, id)
}

func (c *GRPCClient) GetBackingProof(ctx context.Context, settlementRef string) (*models.Certificate, error) {
	return get[models.Certificate](ctx, c.client.GetBackingProof, settlementRef)
}

func (c *GRPCClient) VerifyBackedSignature(ctx context.Context, stage3 string) (*certifier.Verification, error) {
	return get[certifier.Verification](ctx, c.client.VerifyBackedSignature, stage3)
}

func (c *GRPCClient) GetBalance(ctx context.Context, address string) (amount.Amount, error) {
	resp, err := c.client.GetBalance(ctx, wrapperspb.String(address))
	if err != nil {
		return 0, err
	}
	return amount.Parse(resp.GetValue())
}

func (c *GRPCClient) GetPrices(ctx context.Context) ([]models.Price, error) {
	resp, err := c.client.GetPrices(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	var out struct {
		Prices []models.Price `json:"prices"`
	}
	if err := api.FromStruct(resp, &out); err != nil {
		return nil, err
	}
	return out.Prices, nil
}

func (c *GRPCClient) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	resp, err := c.client.GetStatistics(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	var st models.Statistics
	if err := api.FromStruct(resp, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// IsStageError reports whether err is a failed run returned by the server.
func IsStageError(err error) bool {
	var se *RemoteStageError
	return errors.As(err, &se)
}
