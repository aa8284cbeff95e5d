package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/AlexZinkM/joint-wallet/internal/address"
	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/quorum"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
)

const chainService = "chain"

// ContractCaller performs read-only contract calls. *ethclient.Client
// satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainClient reads shared-account state from the chain.
type ChainClient struct {
	caller ContractCaller
}

// NewChainClient creates a client for the given caller.
func NewChainClient(caller ContractCaller) *ChainClient {
	return &ChainClient{caller: caller}
}

// DialChainClient connects to an RPC endpoint.
func DialChainClient(ctx context.Context, rpcURL string) (*ChainClient, *ethclient.Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial RPC: %w", err)
	}
	return NewChainClient(ec), ec, nil
}

// AccountState reads owners, threshold and nonce at the latest block.
// The three reads run concurrently.
func (c *ChainClient) AccountState(ctx context.Context, account common.Address) (*quorum.AccountState, error) {
	var (
		owners    []common.Address
		threshold *big.Int
		nonce     *big.Int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := c.call(gctx, account, "getOwners")
		if err != nil {
			return err
		}
		var ok bool
		if owners, ok = out[0].([]common.Address); !ok {
			return fmt.Errorf("getOwners returned %T", out[0])
		}
		return nil
	})
	g.Go(func() error {
		out, err := c.call(gctx, account, "getThreshold")
		if err != nil {
			return err
		}
		var ok bool
		if threshold, ok = out[0].(*big.Int); !ok {
			return fmt.Errorf("getThreshold returned %T", out[0])
		}
		return nil
	})
	g.Go(func() error {
		out, err := c.call(gctx, account, "nonce")
		if err != nil {
			return err
		}
		var ok bool
		if nonce, ok = out[0].(*big.Int); !ok {
			return fmt.Errorf("nonce returned %T", out[0])
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !threshold.IsInt64() || threshold.Int64() < 1 || threshold.Int64() > int64(len(owners)) {
		return nil, apperr.Unavailable(chainService, fmt.Errorf("account %s reports threshold %s for %d owners",
			address.String(account), threshold, len(owners)))
	}
	return &quorum.AccountState{
		Owners:    owners,
		Threshold: int(threshold.Int64()),
		Nonce:     nonce,
	}, nil
}

func (c *ChainClient) call(ctx context.Context, account common.Address, method string) ([]any, error) {
	data, err := safeABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	raw, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &account, Data: data}, nil)
	if err != nil {
		return nil, apperr.Unavailable(chainService, err)
	}
	if len(raw) == 0 {
		return nil, apperr.Unavailable(chainService, fmt.Errorf("%s: empty result, %s is not a shared account", method, address.String(account)))
	}
	out, err := safeABI.Unpack(method, raw)
	if err != nil {
		return nil, apperr.Unavailable(chainService, fmt.Errorf("failed to unpack %s: %w", method, err))
	}
	if len(out) != 1 {
		return nil, apperr.Unavailable(chainService, fmt.Errorf("%s returned %d values", method, len(out)))
	}
	return out, nil
}
