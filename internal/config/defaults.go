package config

// DefaultSolanaRPCURL is the public Solana mainnet endpoint.
const DefaultSolanaRPCURL = "https://api.mainnet-beta.solana.com"

// DefaultConfirmationTimeoutSeconds bounds EVM receipt polling.
const DefaultConfirmationTimeoutSeconds = 120

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.linkbridge",
		Link: LinkConfig{
			Language: "en",
		},
		Networks: NetworksConfig{
			EVM: EVMNetworkConfig{
				ConfirmationTimeoutSeconds: DefaultConfirmationTimeoutSeconds,
			},
			Solana: SolanaNetworkConfig{
				RPC: DefaultSolanaRPCURL,
			},
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "",
		},
	}
}
