package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/linkbridge/internal/config"
	"github.com/mrz1836/linkbridge/internal/output"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage configuration",
	Long:    `View and modify linkbridge configuration settings.`,
	GroupID: groupConfig,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.linkbridge/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  linkbridge config init
  linkbridge config init --force`,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the current configuration settings, including declared wallets.
Endpoint credentials are masked.`,
	Example: `  linkbridge config show
  linkbridge config show -o json`,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree.`,
	Example: `  linkbridge config get networks.solana.rpc
  linkbridge config get link.language
  linkbridge config get logging.level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree.
The configuration file will be updated immediately. Wallets are declared
by editing the file.`,
	Example: `  linkbridge config set networks.solana.rpc https://api.devnet.solana.com
  linkbridge config set link.client_id my-client
  linkbridge config set metrics.addr :9464`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

// configKey reads and writes one scalar setting.
type configKey struct {
	get func(c *config.Config) string
	set func(c *config.Config, value string) error
}

//nolint:gochecknoglobals // static lookup table
var configKeys = map[string]configKey{
	"home": {
		get: func(c *config.Config) string { return c.Home },
		set: func(c *config.Config, v string) error { c.Home = v; return nil },
	},
	"link.client_id": {
		get: func(c *config.Config) string { return c.Link.ClientID },
		set: func(c *config.Config, v string) error { c.Link.ClientID = v; return nil },
	},
	"link.language": {
		get: func(c *config.Config) string { return c.Link.Language },
		set: func(c *config.Config, v string) error { c.Link.Language = v; return nil },
	},
	"link.theme": {
		get: func(c *config.Config) string { return c.Link.Theme },
		set: func(c *config.Config, v string) error {
			if err := oneOf(v, "", "light", "dark", "system"); err != nil {
				return err
			}
			c.Link.Theme = v
			return nil
		},
	},
	"link.origin": {
		get: func(c *config.Config) string { return c.Link.Origin },
		set: func(c *config.Config, v string) error { c.Link.Origin = v; return nil },
	},
	"networks.evm.confirmation_timeout_seconds": {
		get: func(c *config.Config) string { return strconv.Itoa(c.Networks.EVM.ConfirmationTimeoutSeconds) },
		set: func(c *config.Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return linkerr.WithDetails(
					linkerr.ErrInvalidFormat,
					map[string]string{"value": v, "valid": "a non-negative number of seconds"},
				)
			}
			c.Networks.EVM.ConfirmationTimeoutSeconds = n
			return nil
		},
	},
	"networks.solana.rpc": {
		get: func(c *config.Config) string { return c.Networks.Solana.RPC },
		set: func(c *config.Config, v string) error { c.Networks.Solana.RPC = v; return nil },
	},
	"output.default_format": {
		get: func(c *config.Config) string { return c.Output.DefaultFormat },
		set: func(c *config.Config, v string) error {
			if err := oneOf(v, "text", "json", "auto"); err != nil {
				return err
			}
			c.Output.DefaultFormat = v
			return nil
		},
	},
	"output.verbose": {
		get: func(c *config.Config) string { return strconv.FormatBool(c.Output.Verbose) },
		set: func(c *config.Config, v string) error { c.Output.Verbose = v == "true"; return nil },
	},
	"output.color": {
		get: func(c *config.Config) string { return c.Output.Color },
		set: func(c *config.Config, v string) error {
			if err := oneOf(v, "auto", "always", "never"); err != nil {
				return err
			}
			c.Output.Color = v
			return nil
		},
	},
	"logging.level": {
		get: func(c *config.Config) string { return c.Logging.Level },
		set: func(c *config.Config, v string) error {
			if err := oneOf(v, "off", "error", "warn", "info", "debug"); err != nil {
				return err
			}
			c.Logging.Level = v
			return nil
		},
	},
	"logging.file": {
		get: func(c *config.Config) string { return c.Logging.File },
		set: func(c *config.Config, v string) error { c.Logging.File = v; return nil },
	},
	"metrics.addr": {
		get: func(c *config.Config) string { return c.Metrics.Addr },
		set: func(c *config.Config, v string) error { c.Metrics.Addr = v; return nil },
	},
}

func oneOf(value string, valid ...string) error {
	if slices.Contains(valid, value) {
		return nil
	}
	return linkerr.WithDetails(
		linkerr.ErrInvalidFormat,
		map[string]string{"value": value, "valid": fmt.Sprint(valid)},
	)
}

func lookupKey(path string) (configKey, error) {
	key, ok := configKeys[path]
	if !ok {
		return configKey{}, linkerr.WithSuggestion(
			linkerr.WithDetails(linkerr.ErrUnknownConfigKey, map[string]string{"path": path}),
			fmt.Sprintf("configuration path '%s' not found", path),
		)
	}
	return key, nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	configPath := config.Path(cc.Cfg.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return linkerr.WithSuggestion(
			linkerr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cc.Cfg.Home

	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - link.client_id: Your link client id")
	outln(w, "  - networks.solana.rpc: Solana JSON-RPC endpoint")
	outln(w, "  - wallets: EVM rpc wallets and Solana keypair wallets")
	outln(w, "  - logging.level: Log level (off/error/warn/info/debug)")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()

	if cc.Fmt.Format() == output.FormatJSON {
		return displayConfigJSON(w, cc.Cfg)
	}
	return displayConfigText(w, cc.Cfg)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)

	key, err := lookupKey(args[0])
	if err != nil {
		return err
	}
	outln(cmd.OutOrStdout(), key.get(cc.Cfg))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	path, value := args[0], args[1]

	key, err := lookupKey(path)
	if err != nil {
		return err
	}

	configPath := config.Path(cc.Cfg.Home)
	currentCfg, err := config.Load(configPath)
	if err != nil {
		if !linkerr.Is(err, linkerr.ErrConfigNotFound) {
			return err
		}
		currentCfg = config.Defaults()
		currentCfg.Home = cc.Cfg.Home
	}

	if err := key.set(currentCfg, value); err != nil {
		return err
	}
	if err := currentCfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(currentCfg, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(not configured)"
	}
	return s
}

// displayConfigText shows the config in text format.
func displayConfigText(w io.Writer, c *config.Config) error {
	outln(w, "Configuration:")
	outln(w)
	out(w, "  Home: %s\n", c.Home)
	outln(w)
	outln(w, "  Link:")
	out(w, "    client_id: %s\n", orUnset(c.Link.ClientID))
	out(w, "    language: %s\n", c.Link.Language)
	out(w, "    theme: %s\n", orUnset(c.Link.Theme))
	out(w, "    origin: %s\n", orUnset(c.Link.Origin))
	outln(w)
	outln(w, "  Networks:")
	out(w, "    evm.confirmation_timeout_seconds: %d\n", c.Networks.EVM.ConfirmationTimeoutSeconds)
	out(w, "    solana.rpc: %s\n", orUnset(maskEndpoint(c.Networks.Solana.RPC)))
	outln(w)
	outln(w, "  Wallets:")
	if len(c.Wallets) == 0 {
		outln(w, "    (none)")
	}
	for _, wc := range c.Wallets {
		out(w, "    - %s (%s %s)\n", wc.Name, wc.Family, wc.Type)
		if wc.RPC != "" {
			out(w, "      rpc: %s\n", maskEndpoint(wc.RPC))
		}
	}
	outln(w)
	outln(w, "  Output:")
	out(w, "    default_format: %s\n", c.Output.DefaultFormat)
	out(w, "    verbose: %t\n", c.Output.Verbose)
	out(w, "    color: %s\n", c.Output.Color)
	outln(w)
	outln(w, "  Logging:")
	out(w, "    level: %s\n", c.Logging.Level)
	out(w, "    file: %s\n", c.Logging.File)
	outln(w)
	outln(w, "  Metrics:")
	out(w, "    addr: %s\n", orUnset(c.Metrics.Addr))

	return nil
}

const redacted = "redacted"

// maskEndpoint hides the user info and query values of an endpoint URL,
// where providers put API keys.
func maskEndpoint(raw string) string {
	u, err := url.Parse(config.SanitizeURL(raw))
	if err != nil || u.Host == "" {
		return raw
	}
	if u.User != nil {
		u.User = url.User(redacted)
	}
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			q.Set(k, redacted)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// displayConfigJSON shows the config in JSON format with endpoints masked.
func displayConfigJSON(w io.Writer, c *config.Config) error {
	shown := *c
	shown.Networks.Solana.RPC = maskEndpoint(c.Networks.Solana.RPC)
	shown.Wallets = make([]config.WalletConfig, len(c.Wallets))
	for i, wc := range c.Wallets {
		wc.RPC = maskEndpoint(wc.RPC)
		shown.Wallets[i] = wc
	}
	return writeJSON(w, shown)
}
