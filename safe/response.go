package safe

import (
	"github.com/AlexZinkM/joint-wallet/internal/address"
	"github.com/AlexZinkM/joint-wallet/internal/common"
	"github.com/AlexZinkM/joint-wallet/internal/model"
	"github.com/AlexZinkM/joint-wallet/internal/quorum"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Response renders a snapshot for the API.
func Response(snap *quorum.Snapshot) model.TransactionResponse {
	tx := snap.Tx
	resp := model.TransactionResponse{
		SafeTxHash:     snap.Hash.Hex(),
		ChainID:        model.NewUint256(tx.ChainID).String(),
		Safe:           address.String(tx.Account),
		To:             address.String(tx.To),
		Value:          model.NewUint256(tx.Value).String(),
		ValueEth:       common.WeiToEther(tx.Value),
		Data:           hexutil.Encode(tx.Data),
		Operation:      uint8(tx.Operation),
		SafeTxGas:      model.NewUint256(tx.SafeTxGas).String(),
		BaseGas:        model.NewUint256(tx.BaseGas).String(),
		GasPrice:       model.NewUint256(tx.GasPrice).String(),
		GasPriceGwei:   common.FormatUnits(tx.GasPrice, common.GweiDecimals),
		GasToken:       address.String(tx.GasToken),
		RefundReceiver: address.String(tx.RefundReceiver),
		Nonce:          model.NewUint256(tx.Nonce).String(),
		State:          snap.State.String(),
		Threshold:      snap.Threshold,
		Confirmations:  make([]model.ConfirmationResponse, 0, len(snap.Confirmations)),
		ExecutionID:    snap.ExecutionID,
		Failure:        snap.Failure,
	}
	for _, conf := range snap.Confirmations {
		resp.Confirmations = append(resp.Confirmations, model.ConfirmationResponse{
			Owner:       address.String(conf.Owner),
			Signature:   hexutil.Encode(conf.Signature),
			SubmittedAt: conf.SubmittedAt,
		})
	}
	return resp
}

// ResultResponse renders a propose/confirm result.
func ResultResponse(res *quorum.Result) model.TransactionResponse {
	resp := Response(&res.Snapshot)
	resp.BecameExecutable = res.BecameExecutable
	return resp
}
