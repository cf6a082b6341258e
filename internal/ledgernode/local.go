package ledgernode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/signer"
)

// LocalGateway is an in-process ledger.Gateway over a Node. Execution is
// synchronous, so Submit never yields an unknown outcome of its own.
type LocalGateway struct {
	node *Node
}

var _ ledger.Gateway = (*LocalGateway)(nil)

func NewLocalGateway(n *Node) *LocalGateway {
	return &LocalGateway{node: n}
}

func (g *LocalGateway) Call(ctx context.Context, target, method string, args, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: encode %s.%s args: %v", common.ErrValidation, target, method, err)
	}
	res, err := g.node.Call(ctx, target, method, raw)
	if err != nil {
		return withCallSite(err, target, method)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res, out); err != nil {
		return fmt.Errorf("decode %s.%s result: %w", target, method, err)
	}
	return nil
}

func (g *LocalGateway) Submit(ctx context.Context, s signer.Signer, target, method string, args any) (*ledger.Receipt, error) {
	var nonce abi.NonceResult
	if err := g.Call(ctx, abi.TargetLedger, abi.MethodNonce, abi.AddressArgs{Address: s.Address()}, &nonce); err != nil {
		return nil, err
	}
	tx, err := ledger.NewTransaction(s.Address(), nonce.Nonce, target, method, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if err := tx.Sign(s); err != nil {
		return nil, err
	}

	hash, err := g.node.Submit(ctx, tx)
	if err != nil {
		return nil, withCallSite(err, target, method)
	}
	r, err := g.node.Receipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	return r, r.Err()
}

func withCallSite(err error, target, method string) error {
	var re *ledger.RevertError
	if errors.As(err, &re) {
		re.Target, re.Method = target, method
	}
	return err
}
