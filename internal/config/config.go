// Package config provides configuration management for linkbridge.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/linkbridge/internal/chain"
	"github.com/mrz1836/linkbridge/internal/fileutil"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Home     string         `yaml:"home" json:"home"`
	Link     LinkConfig     `yaml:"link" json:"link"`
	Networks NetworksConfig `yaml:"networks" json:"networks"`
	Wallets  []WalletConfig `yaml:"wallets,omitempty" json:"wallets,omitempty"`
	Output   OutputConfig   `yaml:"output" json:"output"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// LinkConfig defines how link sessions are opened.
type LinkConfig struct {
	ClientID string `yaml:"client_id" json:"client_id"`
	Language string `yaml:"language" json:"language"`
	Theme    string `yaml:"theme,omitempty" json:"theme,omitempty"`
	// Origin is the host's own origin. Messages from it are trusted
	// alongside the link origin.
	Origin string `yaml:"origin,omitempty" json:"origin,omitempty"`
}

// NetworksConfig defines per-family network settings.
type NetworksConfig struct {
	EVM    EVMNetworkConfig    `yaml:"evm" json:"evm"`
	Solana SolanaNetworkConfig `yaml:"solana" json:"solana"`
}

// EVMNetworkConfig defines EVM network settings.
type EVMNetworkConfig struct {
	ConfirmationTimeoutSeconds int `yaml:"confirmation_timeout_seconds" json:"confirmation_timeout_seconds"`
}

// SolanaNetworkConfig defines Solana network settings.
type SolanaNetworkConfig struct {
	RPC string `yaml:"rpc" json:"rpc"`
}

// Wallet types.
const (
	WalletTypeKeypair = "keypair"
	WalletTypeRPC     = "rpc"
)

// WalletConfig declares a host-side wallet injected into the environment.
// Keypair wallets hold an age-encrypted Solana key; rpc wallets forward EIP-1193
// requests to a JSON-RPC endpoint that manages its own accounts.
type WalletConfig struct {
	Name    string `yaml:"name" json:"name"`
	Family  string `yaml:"family" json:"family"`
	Type    string `yaml:"type" json:"type"`
	KeyFile string `yaml:"key_file,omitempty" json:"key_file,omitempty"`
	RPC     string `yaml:"rpc,omitempty" json:"rpc,omitempty"`
	// Slot is the Solana injection point; the generic slot when empty.
	Slot string `yaml:"slot,omitempty" json:"slot,omitempty"`
	// Brand sets the brand flags the wallet announces, such as "phantom" or "metamask".
	Brand string `yaml:"brand,omitempty" json:"brand,omitempty"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"`
	Color         string `yaml:"color" json:"color"`
	Verbose       bool   `yaml:"verbose" json:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, linkerr.WithDetails(linkerr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, linkerr.WithCause(linkerr.ErrConfigInvalid, err)
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default linkbridge home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".linkbridge"
	}
	return filepath.Join(home, ".linkbridge")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

// Validate checks the settings that would otherwise fail late, when a
// session is already open.
func (c *Config) Validate() error {
	if c.Networks.Solana.RPC != "" {
		if err := validateURL(c.Networks.Solana.RPC); err != nil {
			return invalid("networks.solana.rpc", err.Error())
		}
	}
	if c.Link.Origin != "" {
		if err := validateURL(c.Link.Origin); err != nil {
			return invalid("link.origin", err.Error())
		}
	}
	if c.Networks.EVM.ConfirmationTimeoutSeconds < 0 {
		return invalid("networks.evm.confirmation_timeout_seconds", "must not be negative")
	}

	seen := make(map[string]bool, len(c.Wallets))
	for i, w := range c.Wallets {
		field := fmt.Sprintf("wallets[%d]", i)
		name := strings.ToLower(strings.TrimSpace(w.Name))
		if name == "" {
			return invalid(field+".name", "required")
		}
		if seen[name] {
			return invalid(field+".name", "duplicate wallet "+w.Name)
		}
		seen[name] = true

		if err := w.validate(field); err != nil {
			return err
		}
	}
	return nil
}

func (w WalletConfig) validate(field string) error {
	family, err := chain.ParseFamily(w.Family)
	if err != nil {
		return invalid(field+".family", "must be evm or solana")
	}

	switch w.Type {
	case WalletTypeKeypair:
		if family != chain.Solana {
			return invalid(field+".type", "keypair wallets are Solana only")
		}
		if w.KeyFile == "" {
			return invalid(field+".key_file", "required for keypair wallets")
		}
	case WalletTypeRPC:
		if family != chain.EVM {
			return invalid(field+".type", "rpc wallets are EVM only")
		}
		if err := validateURL(w.RPC); err != nil {
			return invalid(field+".rpc", err.Error())
		}
	default:
		return invalid(field+".type", "must be keypair or rpc")
	}

	switch w.Slot {
	case "", "solana", "phantom.solana", "solflare", "trustwallet.solana", "exodus.solana":
	default:
		return invalid(field+".slot", "unknown Solana slot "+w.Slot)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw) //nolint:err113 // message only
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw) //nolint:err113 // message only
	}
	return nil
}

func invalid(field, reason string) error {
	return linkerr.WithDetails(linkerr.ErrConfigInvalid, map[string]string{"field": field, "reason": reason})
}
