package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/AlexZinkM/joint-wallet/internal/common"
)

var (
	hexHashPattern  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	hexBytesPattern = regexp.MustCompile(`^0x([0-9a-fA-F]{2})*$`)
)

// Uint256 is a non-negative integer that the relay writes either as a JSON
// number or as a decimal string. It is always written back as a string.
type Uint256 struct {
	Int *big.Int
}

// NewUint256 wraps v; nil means zero.
func NewUint256(v *big.Int) Uint256 {
	if v == nil {
		v = new(big.Int)
	}
	return Uint256{Int: new(big.Int).Set(v)}
}

func (u Uint256) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *Uint256) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	n, err := common.ParseUint256(raw)
	if err != nil {
		return err
	}
	u.Int = n
	return nil
}

func (u Uint256) String() string {
	if u.Int == nil {
		return "0"
	}
	return u.Int.String()
}

// RelayProposeRequest is the body of POST /api/v1/safes/{account}/multisig-transactions/.
// Addresses are checksummed before they are placed here.
type RelayProposeRequest struct {
	To                      string  `json:"to"`
	Value                   Uint256 `json:"value"`
	Data                    *string `json:"data"`
	Operation               uint8   `json:"operation"`
	SafeTxGas               Uint256 `json:"safeTxGas"`
	BaseGas                 Uint256 `json:"baseGas"`
	GasPrice                Uint256 `json:"gasPrice"`
	GasToken                string  `json:"gasToken"`
	RefundReceiver          string  `json:"refundReceiver"`
	Nonce                   Uint256 `json:"nonce"`
	ContractTransactionHash string  `json:"contractTransactionHash"`
	Sender                  string  `json:"sender"`
	Signature               string  `json:"signature"`
	Origin                  *string `json:"origin,omitempty"`
}

// RelayConfirmRequest is the body of POST /api/v1/multisig-transactions/{hash}/confirmations/.
type RelayConfirmRequest struct {
	Signature string `json:"signature"`
}

// RelayTransactionList is a page of multisig transactions.
type RelayTransactionList struct {
	Count            int                `json:"count"`
	CountUniqueNonce *int               `json:"countUniqueNonce,omitempty"`
	Next             *string            `json:"next"`
	Previous         *string            `json:"previous"`
	Results          []RelayTransaction `json:"results"`
}

// Validate validates every transaction in the page.
func (l *RelayTransactionList) Validate() error {
	if l.Count < 0 {
		return fmt.Errorf("negative count")
	}
	for i := range l.Results {
		if err := l.Results[i].Validate(); err != nil {
			return fmt.Errorf("results[%d]: %w", i, err)
		}
	}
	return nil
}

// RelayTransaction is a multisig transaction as the relay reports it.
// Every field the relay is known to send is declared so that decoding can
// reject anything else.
type RelayTransaction struct {
	Safe                  string              `json:"safe"`
	To                    string              `json:"to"`
	Value                 Uint256             `json:"value"`
	Data                  *string             `json:"data"`
	Operation             int                 `json:"operation"`
	GasToken              *string             `json:"gasToken"`
	SafeTxGas             Uint256             `json:"safeTxGas"`
	BaseGas               Uint256             `json:"baseGas"`
	GasPrice              Uint256             `json:"gasPrice"`
	RefundReceiver        *string             `json:"refundReceiver"`
	Nonce                 Uint256             `json:"nonce"`
	ExecutionDate         *time.Time          `json:"executionDate"`
	SubmissionDate        time.Time           `json:"submissionDate"`
	Modified              *time.Time          `json:"modified"`
	BlockNumber           *int64              `json:"blockNumber"`
	TransactionHash       *string             `json:"transactionHash"`
	SafeTxHash            string              `json:"safeTxHash"`
	Proposer              *string             `json:"proposer"`
	ProposedByDelegate    *string             `json:"proposedByDelegate"`
	Executor              *string             `json:"executor"`
	IsExecuted            bool                `json:"isExecuted"`
	IsSuccessful          *bool               `json:"isSuccessful"`
	EthGasPrice           *string             `json:"ethGasPrice"`
	MaxFeePerGas          *string             `json:"maxFeePerGas"`
	MaxPriorityFeePerGas  *string             `json:"maxPriorityFeePerGas"`
	GasUsed               *int64              `json:"gasUsed"`
	Fee                   *string             `json:"fee"`
	Origin                json.RawMessage     `json:"origin"`
	DataDecoded           json.RawMessage     `json:"dataDecoded"`
	ConfirmationsRequired int                 `json:"confirmationsRequired"`
	Confirmations         []RelayConfirmation `json:"confirmations"`
	Trusted               bool                `json:"trusted"`
	Signatures            *string             `json:"signatures"`
	TxType                *string             `json:"txType,omitempty"`
}

// Validate checks the shape of the transaction. Address checksums and the
// identity hash itself are checked when the transaction is converted.
func (t *RelayTransaction) Validate() error {
	if t.Safe == "" || t.To == "" {
		return fmt.Errorf("safe and to are required")
	}
	if !hexHashPattern.MatchString(t.SafeTxHash) {
		return fmt.Errorf("safeTxHash %q is not a 32-byte hex string", t.SafeTxHash)
	}
	if t.Operation != 0 && t.Operation != 1 {
		return fmt.Errorf("unknown operation %d", t.Operation)
	}
	if t.Value.Int == nil || t.Nonce.Int == nil {
		return fmt.Errorf("value and nonce are required")
	}
	if t.Data != nil && !hexBytesPattern.MatchString(*t.Data) {
		return fmt.Errorf("data is not hex encoded")
	}
	if t.TxType != nil && *t.TxType != "MULTISIG_TRANSACTION" {
		return fmt.Errorf("unexpected txType %q", *t.TxType)
	}
	if t.ConfirmationsRequired < 0 {
		return fmt.Errorf("negative confirmationsRequired")
	}
	for i := range t.Confirmations {
		if err := t.Confirmations[i].Validate(); err != nil {
			return fmt.Errorf("confirmations[%d]: %w", i, err)
		}
	}
	return nil
}

// Signature types the relay reports for a confirmation.
const (
	SignatureTypeEOA               = "EOA"
	SignatureTypeEthSign           = "ETH_SIGN"
	SignatureTypeApprovedHash      = "APPROVED_HASH"
	SignatureTypeContractSignature = "CONTRACT_SIGNATURE"
)

// RelayConfirmation is one owner's confirmation as the relay reports it.
type RelayConfirmation struct {
	Owner           string    `json:"owner"`
	SubmissionDate  time.Time `json:"submissionDate"`
	TransactionHash *string   `json:"transactionHash"`
	Signature       *string   `json:"signature"`
	SignatureType   string    `json:"signatureType"`
}

// Validate validates the confirmation shape.
func (c *RelayConfirmation) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	switch c.SignatureType {
	case SignatureTypeEOA, SignatureTypeEthSign, SignatureTypeApprovedHash, SignatureTypeContractSignature:
	default:
		return fmt.Errorf("unknown signatureType %q", c.SignatureType)
	}
	if c.Signature != nil && !hexBytesPattern.MatchString(*c.Signature) {
		return fmt.Errorf("signature is not hex encoded")
	}
	return nil
}

// Offchain reports whether the confirmation carries an ECDSA signature over
// the identity hash that can be verified locally.
func (c *RelayConfirmation) Offchain() bool {
	return c.Signature != nil && (c.SignatureType == SignatureTypeEOA || c.SignatureType == SignatureTypeEthSign)
}
