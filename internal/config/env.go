package config

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/AlexZinkM/joint-wallet/internal/crypto"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Ledger backends for delegated access records.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config contains all configuration parameters for the application.
// Note: the store passphrase may be prompted at runtime and kept in memory - use GetStorePassphraseBytes()
type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	ChainID            int64         `envconfig:"CHAIN_ID" required:"true"`
	RelayURL           string        `envconfig:"RELAY_URL" required:"true"`
	RelayAPIKey        string        `envconfig:"RELAY_API_KEY"`
	RelayRatePerSecond float64       `envconfig:"RELAY_RATE_PER_SECOND" default:"5"`
	RPCURL             string        `envconfig:"RPC_URL" required:"true"`
	ExecutorURL        string        `envconfig:"EXECUTOR_URL" required:"true"`
	ExecutorAPIKey     string        `envconfig:"EXECUTOR_API_KEY"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`

	DelegationPrivateKeyFile string `envconfig:"DELEGATION_PRIVATE_KEY_FILE"`
	DelegationPrivateKey     string `envconfig:"DELEGATION_PRIVATE_KEY"`
	WebhookSecret            string `envconfig:"WEBHOOK_SECRET" required:"true"`

	LedgerBackend   string `envconfig:"LEDGER_BACKEND" default:"memory"`
	SQLitePath      string `envconfig:"SQLITE_PATH" default:"delegations.db"`
	RedisAddr       string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string `envconfig:"REDIS_PASSWORD"`
	RedisDB         int    `envconfig:"REDIS_DB" default:"0"`
	StorePassphrase string `envconfig:"STORE_PASSPHRASE"`
	ScryptN         int    `envconfig:"SCRYPT_N" default:"262144"`

	ProvisioningURL   string `envconfig:"PROVISIONING_URL"`
	ProvisioningToken string `envconfig:"PROVISIONING_TOKEN"`
	EnvironmentID     string `envconfig:"ENVIRONMENT_ID"`
}

// Validate checks combinations that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("invalid LEDGER_BACKEND %q", c.LedgerBackend)
	}
	if c.ChainID <= 0 {
		return errors.New("CHAIN_ID must be positive")
	}
	if c.DelegationPrivateKeyFile == "" && c.DelegationPrivateKey == "" {
		return errors.New("one of DELEGATION_PRIVATE_KEY_FILE or DELEGATION_PRIVATE_KEY is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.RelayRatePerSecond <= 0 {
		return errors.New("RELAY_RATE_PER_SECOND must be positive")
	}
	if c.ScryptN < 2 || c.ScryptN&(c.ScryptN-1) != 0 {
		return errors.New("SCRYPT_N must be a power of two")
	}
	return nil
}

// Persistent reports whether the ledger backend outlives the process.
func (c *Config) Persistent() bool {
	return c.LedgerBackend != BackendMemory
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cfg = c
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetPort returns port from configuration
func GetPort() string {
	return Get().Port
}

// GetChainID returns the chain id the shared accounts live on
func GetChainID() int64 {
	return Get().ChainID
}

// GetRequestTimeout returns the bound applied to every collaborator call
func GetRequestTimeout() time.Duration {
	return Get().RequestTimeout
}

// GetLedgerBackend returns the configured delegated access store
func GetLedgerBackend() string {
	return Get().LedgerBackend
}

// GetWebhookSecret returns the shared secret for inbound webhook signatures
func GetWebhookSecret() []byte {
	return []byte(Get().WebhookSecret)
}

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
	keyErr  error
)

// GetDelegationPrivateKey loads the envelope private key once per process.
// The inline PEM wins over the file path when both are set.
func GetDelegationPrivateKey() (*rsa.PrivateKey, error) {
	keyOnce.Do(func() {
		c := Get()
		if c.DelegationPrivateKey != "" {
			key, keyErr = crypto.ParsePrivateKey([]byte(c.DelegationPrivateKey))
			return
		}
		key, keyErr = crypto.ReadPrivateKey(c.DelegationPrivateKeyFile)
	})
	return key, keyErr
}

var passphraseBytes []byte

// PromptForPassphrase prompts for the ledger store passphrase in the terminal.
// The passphrase is read without echoing (hidden input) and stored in memory.
// Call this at startup before the server begins handling requests.
func PromptForPassphrase() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("stdin is not a terminal: set STORE_PASSPHRASE or run the app interactively")
	}
	fmt.Fprint(os.Stderr, "Enter ledger store passphrase: ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("passphrase cannot be empty")
	}

	passphraseBytes = make([]byte, len(raw))
	copy(passphraseBytes, raw)
	clear(raw)
	return nil
}

// GetStorePassphraseBytes returns STORE_PASSPHRASE, or the passphrase entered via PromptForPassphrase.
// Caller must zero the returned slice after use.
func GetStorePassphraseBytes() ([]byte, error) {
	if p := Get().StorePassphrase; p != "" {
		return []byte(p), nil
	}
	if len(passphraseBytes) == 0 {
		return nil, errors.New("passphrase not set: set STORE_PASSPHRASE or call PromptForPassphrase at startup")
	}
	out := make([]byte, len(passphraseBytes))
	copy(out, passphraseBytes)
	return out, nil
}
