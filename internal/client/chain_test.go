package client

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/AlexZinkM/joint-wallet/internal/apperr"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	owners    []common.Address
	threshold int64
	nonce     int64
	err       error
	empty     bool
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return nil, nil
	}
	for name, m := range safeABI.Methods {
		if !bytes.Equal(msg.Data[:4], m.ID) {
			continue
		}
		switch name {
		case "getOwners":
			return m.Outputs.Pack(f.owners)
		case "getThreshold":
			return m.Outputs.Pack(big.NewInt(f.threshold))
		case "nonce":
			return m.Outputs.Pack(big.NewInt(f.nonce))
		}
	}
	return nil, errors.New("unexpected call")
}

func TestChainAccountState(t *testing.T) {
	owners := []common.Address{testAccount, testTo}
	c := NewChainClient(&fakeCaller{owners: owners, threshold: 2, nonce: 9})

	state, err := c.AccountState(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, owners, state.Owners)
	assert.Equal(t, 2, state.Threshold)
	assert.Equal(t, int64(9), state.Nonce.Int64())
	assert.True(t, state.IsOwner(testTo))
}

func TestChainAccountStateRejectsImpossibleThreshold(t *testing.T) {
	c := NewChainClient(&fakeCaller{owners: []common.Address{testTo}, threshold: 2})

	_, err := c.AccountState(context.Background(), testAccount)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrServiceUnavailable))
}

func TestChainAccountStateRPCFailure(t *testing.T) {
	c := NewChainClient(&fakeCaller{err: errors.New("connection refused")})

	_, err := c.AccountState(context.Background(), testAccount)
	require.Error(t, err)
	assert.Equal(t, "connection refused", err.Error())
	assert.True(t, errors.Is(err, apperr.ErrServiceUnavailable))
}

func TestChainAccountStateNotAContract(t *testing.T) {
	c := NewChainClient(&fakeCaller{empty: true})

	_, err := c.AccountState(context.Background(), testAccount)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a shared account")
}
