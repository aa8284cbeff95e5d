package client

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// safeABIJSON is the subset of the shared-account contract interface used
// for owner reads and execution.
const safeABIJSON = `[
  {"type":"function","name":"getOwners","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"getThreshold","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"nonce","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"execTransaction","stateMutability":"payable","inputs":[
    {"name":"to","type":"address"},
    {"name":"value","type":"uint256"},
    {"name":"data","type":"bytes"},
    {"name":"operation","type":"uint8"},
    {"name":"safeTxGas","type":"uint256"},
    {"name":"baseGas","type":"uint256"},
    {"name":"gasPrice","type":"uint256"},
    {"name":"gasToken","type":"address"},
    {"name":"refundReceiver","type":"address"},
    {"name":"signatures","type":"bytes"}],
   "outputs":[{"name":"success","type":"bool"}]}
]`

var safeABI = mustParseABI(safeABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
