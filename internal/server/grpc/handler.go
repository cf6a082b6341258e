package grpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/mintflow/internal/api"
	"github.com/dmitrijs2005/mintflow/internal/workflow"
)

// BatchRequest is the body of StartBatch.
type BatchRequest struct {
	Transfers []workflow.Transfer `json:"transfers"`
}

// BatchItem is one entry of the StartBatch response.
type BatchItem struct {
	ExternalRef string           `json:"externalRef"`
	Result      *workflow.Result `json:"result,omitempty"`
	Error       map[string]any   `json:"error,omitempty"`
}

type BatchResponse struct {
	Items []BatchItem `json:"items"`
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("OK"), nil
}

func (s *GRPCServer) StartTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var t workflow.Transfer
	if err := api.FromStruct(req, &t); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.logger.Info(ctx, "Transfer requested", "operator", operatorFrom(ctx), "external_ref", t.ExternalRef)

	res, err := s.deps.Workflow.Run(ctx, t)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(res)
}

func (s *GRPCServer) StartBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var b BatchRequest
	if err := api.FromStruct(req, &b); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if len(b.Transfers) == 0 {
		return nil, status.Error(codes.InvalidArgument, "no transfers")
	}

	s.logger.Info(ctx, "Batch requested", "operator", operatorFrom(ctx), "size", len(b.Transfers))

	out := BatchResponse{Items: make([]BatchItem, 0, len(b.Transfers))}
	for _, r := range s.deps.Workflow.RunBatch(ctx, b.Transfers) {
		item := BatchItem{ExternalRef: r.Transfer.ExternalRef, Result: r.Result}
		if r.Err != nil {
			item.Error = errorFields(r.Err)
		}
		out.Items = append(out.Items, item)
	}
	return encode(out)
}

func errorFields(err error) map[string]any {
	var se *workflow.StageError
	if errors.As(err, &se) {
		return stageErrorFields(se)
	}
	return map[string]any{"message": err.Error()}
}

func (s *GRPCServer) GetInjection(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := required(req, "injection id")
	if err != nil {
		return nil, err
	}
	inj, err := s.deps.Injections.GetInjection(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(inj)
}

func (s *GRPCServer) GetLock(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := required(req, "lock id")
	if err != nil {
		return nil, err
	}
	l, err := s.deps.Locks.GetLock(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(l)
}

func (s *GRPCServer) GetCertificate(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := required(req, "certificate id")
	if err != nil {
		return nil, err
	}
	c, err := s.deps.Certificates.GetCertificate(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(c)
}

func (s *GRPCServer) GetBackingProof(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ref, err := required(req, "settlement reference")
	if err != nil {
		return nil, err
	}
	c, err := s.deps.Certificates.GetBackingProof(ctx, ref)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(c)
}

func (s *GRPCServer) VerifyBackedSignature(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	sig, err := required(req, "signature")
	if err != nil {
		return nil, err
	}
	v, err := s.deps.Certificates.VerifyBackedSignature(ctx, sig)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(v)
}

func (s *GRPCServer) GetBalance(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	addr, err := required(req, "address")
	if err != nil {
		return nil, err
	}
	bal, err := s.deps.Certificates.BalanceOf(ctx, addr)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(bal.String()), nil
}

func (s *GRPCServer) GetPrices(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	prices, err := s.deps.Prices.Prices(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"prices": prices})
}

func (s *GRPCServer) GetStatistics(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.deps.Statistics.Statistics(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(st)
}

func required(req *wrapperspb.StringValue, what string) (string, error) {
	v := strings.TrimSpace(req.GetValue())
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", what)
	}
	return v, nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := api.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
