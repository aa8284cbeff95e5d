package model

import (
	"fmt"
	"time"
)

// ProposeRequest represents request for POST /safes/{account}/transactions.
// Numeric fields are decimal (or 0x hex) strings in wei/gas units; empty means zero.
// ValueEth is an alternative to Value written in ETH, e.g. "0.25".
type ProposeRequest struct {
	To             string `json:"to"`
	Value          string `json:"value"`
	ValueEth       string `json:"valueEth,omitempty"`
	Data           string `json:"data"`
	Operation      uint8  `json:"operation"`
	SafeTxGas      string `json:"safeTxGas"`
	BaseGas        string `json:"baseGas"`
	GasPrice       string `json:"gasPrice"`
	GasToken       string `json:"gasToken"`
	RefundReceiver string `json:"refundReceiver"`
	Nonce          string `json:"nonce"`
	Sender         string `json:"sender"`
	Signature      string `json:"signature"`
	Origin         string `json:"origin,omitempty"`
}

// Validate validates ProposeRequest fields that do not need parsing.
func (r *ProposeRequest) Validate() error {
	if r.To == "" {
		return fmt.Errorf("to is required")
	}
	if r.Nonce == "" {
		return fmt.Errorf("nonce is required")
	}
	if r.Sender == "" {
		return fmt.Errorf("sender is required")
	}
	if r.Signature == "" {
		return fmt.Errorf("signature is required")
	}
	if r.Operation > 1 {
		return fmt.Errorf("operation must be 0 (call) or 1 (delegatecall)")
	}
	if r.Value != "" && r.ValueEth != "" {
		return fmt.Errorf("only one of value and valueEth may be set")
	}
	return nil
}

// ConfirmRequest represents request for POST /transactions/{hash}/confirmations
type ConfirmRequest struct {
	Owner     string `json:"owner"`
	Signature string `json:"signature"`
}

// Validate validates ConfirmRequest.
func (r *ConfirmRequest) Validate() error {
	if r.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if r.Signature == "" {
		return fmt.Errorf("signature is required")
	}
	return nil
}

// ConfirmationResponse is one owner confirmation.
type ConfirmationResponse struct {
	Owner       string    `json:"owner"`
	Signature   string    `json:"signature"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// TransactionResponse represents a transaction and its quorum state.
type TransactionResponse struct {
	SafeTxHash       string                 `json:"safeTxHash"`
	ChainID          string                 `json:"chainId"`
	Safe             string                 `json:"safe"`
	To               string                 `json:"to"`
	Value            string                 `json:"value"`
	ValueEth         string                 `json:"valueEth"`
	Data             string                 `json:"data"`
	Operation        uint8                  `json:"operation"`
	SafeTxGas        string                 `json:"safeTxGas"`
	BaseGas          string                 `json:"baseGas"`
	GasPrice         string                 `json:"gasPrice"`
	GasPriceGwei     string                 `json:"gasPriceGwei"`
	GasToken         string                 `json:"gasToken"`
	RefundReceiver   string                 `json:"refundReceiver"`
	Nonce            string                 `json:"nonce"`
	State            string                 `json:"state"`
	Threshold        int                    `json:"threshold"`
	Confirmations    []ConfirmationResponse `json:"confirmations"`
	BecameExecutable bool                   `json:"becameExecutable,omitempty"`
	ExecutionID      string                 `json:"executionId,omitempty"`
	Failure          string                 `json:"failure,omitempty"`
}

// TransactionListResponse represents response for GET /safes/{account}/transactions
type TransactionListResponse struct {
	Count   int                   `json:"count"`
	Results []TransactionResponse `json:"results"`
}

// ExecuteResponse represents response for POST /transactions/{hash}/execute
type ExecuteResponse struct {
	SafeTxHash  string `json:"safeTxHash"`
	State       string `json:"state"`
	ExecutionID string `json:"executionId"`
}

// QRResponse represents response for GET /transactions/{hash}/qr?format=base64
type QRResponse struct {
	SafeTxHash string `json:"safeTxHash"`
	QR         string `json:"QR"`
}
