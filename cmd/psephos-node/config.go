package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultAPIHost         = "0.0.0.0"
	defaultAPIPort         = 9090
	defaultLogLevel        = "info"
	defaultLogOutput       = "stdout"
	defaultDatadir         = ".psephos" // Will be prefixed with user's home directory
	defaultMonitorInterval = time.Minute
)

// Version is the build version, set at build time with -ldflags
var Version = "dev"

// Config holds the application configuration
type Config struct {
	API       APIConfig
	Web3      Web3Config
	Finalizer FinalizerConfig
	Log       LogConfig
	VKey      string `mapstructure:"vkey"`
	Datadir   string
}

// APIConfig holds the API-specific configuration
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Web3Config holds the Ethereum RPC configuration for the credential
// balance source
type Web3Config struct {
	Rpc string `mapstructure:"rpc"`
}

// FinalizerConfig holds the creator-side auto-finalizer configuration
type FinalizerConfig struct {
	Authority string        `mapstructure:"authority"`
	Interval  time.Duration `mapstructure:"interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	// Get user's home directory for default datadir
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)

	v.SetDefault("api.host", defaultAPIHost)
	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("web3.rpc", "")
	v.SetDefault("finalizer.authority", "")
	v.SetDefault("finalizer.interval", defaultMonitorInterval)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("datadir", defaultDatadirPath)

	flag.StringP("api.host", "a", defaultAPIHost, "API host")
	flag.IntP("api.port", "p", defaultAPIPort, "API port")
	flag.StringP("web3.rpc", "w", "", "web3 rpc endpoint for the ERC-20 credential balance source")
	flag.String("finalizer.authority", "", "creator address to auto-finalize ended proposals for")
	flag.Duration("finalizer.interval", defaultMonitorInterval, "auto-finalizer scan interval")
	flag.StringP("vkey", "k", "", "path to the Groth16 verification key of the eligibility circuit (required)")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for database files")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "psephos-node v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: psephos-node [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dashes (-) and dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, PSEPHOS_API_PORT or PSEPHOS_WEB3_RPC\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Start with an in-memory balance source\n")
		fmt.Fprintf(os.Stderr, "  psephos-node --vkey=circuit.vk\n\n")
		fmt.Fprintf(os.Stderr, "  # Check credential balances against an ERC-20 token on-chain\n")
		fmt.Fprintf(os.Stderr, "  psephos-node --vkey=circuit.vk --web3.rpc=https://rpc.sepolia.org\n")
	}

	flag.CommandLine.SortFlags = false
	flag.Parse()

	v.SetEnvPrefix("PSEPHOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.VKey == "" {
		return fmt.Errorf("verification key is required (use --vkey flag or PSEPHOS_VKEY environment variable)")
	}
	if cfg.Finalizer.Authority != "" && !common.IsHexAddress(cfg.Finalizer.Authority) {
		return fmt.Errorf("invalid finalizer authority address %q", cfg.Finalizer.Authority)
	}
	return nil
}
