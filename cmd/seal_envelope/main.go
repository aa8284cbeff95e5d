// Dev helper: seal a share and API key for the delegation key and print a
// signed wallet.delegation.created webhook, ready to replay with curl.
// Usage: go run ./cmd/seal_envelope -pub delegation.pub.pem -secret dev -wallet w1 -owner u1 -delegate u2 -key 0x...
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/AlexZinkM/joint-wallet/delegation"
	"github.com/AlexZinkM/joint-wallet/internal/crypto"
	"github.com/AlexZinkM/joint-wallet/internal/model"

	"github.com/google/uuid"
)

func main() {
	pubPath := flag.String("pub", "", "PEM public key of the delegation key pair")
	keyID := flag.String("kid", "", "key id to put in the envelopes")
	secret := flag.String("secret", "", "webhook secret")
	walletID := flag.String("wallet", "", "wallet id")
	owner := flag.String("owner", "", "owner user id")
	delegate := flag.String("delegate", "", "delegate user id")
	chain := flag.String("chain", model.ChainEVM, "EVM or SOL")
	publicKey := flag.String("key", "", "wallet public key or address")
	share := flag.String("share", `{"share":"dev"}`, "delegated share JSON")
	apiKey := flag.String("apikey", "dev-api-key", "wallet API key")
	flag.Parse()

	if *pubPath == "" || *secret == "" || *walletID == "" || *owner == "" || *delegate == "" || *publicKey == "" {
		flag.Usage()
		os.Exit(2)
	}
	if !json.Valid([]byte(*share)) {
		fmt.Fprintln(os.Stderr, "share must be valid JSON")
		os.Exit(1)
	}

	pemBytes, err := os.ReadFile(*pubPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	pub, err := crypto.ParsePublicKey(pemBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	shareEnv, err := crypto.Encrypt(pub, []byte(*share), *keyID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	apiKeyEnv, err := crypto.Encrypt(pub, []byte(*apiKey), *keyID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	shareJSON, err := json.Marshal(shareEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	apiKeyJSON, err := json.Marshal(apiKeyEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	data, err := json.Marshal(model.DelegationCreatedData{
		Chain:                   *chain,
		EncryptedDelegatedShare: shareJSON,
		EncryptedWalletAPIKey:   apiKeyJSON,
		PublicKey:               *publicKey,
		UserID:                  *delegate,
		WalletID:                *walletID,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	body, err := json.Marshal(model.DelegationWebhook{
		MessageID: uuid.NewString(),
		EventID:   uuid.NewString(),
		EventName: model.EventDelegationCreated,
		Timestamp: time.Now().UTC(),
		UserID:    *owner,
		Data:      data,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "%s: %s\n", delegation.SignatureHeader, delegation.Sign([]byte(*secret), body))
	fmt.Println(string(body))
}
