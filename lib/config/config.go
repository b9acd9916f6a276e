// Package config provides helper functionality to read the scanner configuration from a JSON config file and OS ENV
// variables. The default configuration is overridden first by:
//
// - a valid JSON config file (see cmd/scanner/settings.json for a sample) and then by
//
// - OS ENV variables: prefixed with SCAN_ (ie. SCAN_WORKERS, SCAN_OUTPUT, ...). All OS ENV variables should be valid
// strings, except for SCAN_NETWORKS which should be a string with a valid JSON format. For example:
// # export SCAN_NETWORKS='[{"name":"ethereum","node":"https://eth.llamarpc.com"}]'
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"

	"github.com/tarancss/adpscan/lib/util"
)

// Default configuration variables
var (
	OutputDefault         = "with_balance.txt"
	KeyGenDefault         = KeyGenRaw
	RPCTimeoutDefault     = 10 * time.Second
	SinkRetriesDefault    = uint(5)
	SinkRetryDelayDefault = 200 * time.Millisecond
	DecimalsDefault       = uint8(18)
	DriverDefault         = DriverEthereum
	LogLevelDefault       = "info"
)

// Key generator kinds.
const (
	KeyGenRaw = "raw"
	KeyGenHD  = "hd"
)

// Chain client drivers.
const (
	DriverEthereum = "ethereum"
	DriverJSONRPC  = "jsonrpc"
)

// envPrefix is prepended to every OS ENV variable read by ExtractConfiguration.
const envPrefix = "SCAN_"

// Errors returned by Validate and ParseWorkers.
var (
	ErrNoNetworks    = errors.New("no networks configured")
	ErrNetworkName   = errors.New("network name is empty or duplicated")
	ErrNetworkNode   = errors.New("network node url is empty")
	ErrDriver        = errors.New("unknown chain client driver")
	ErrKeyGen        = errors.New("unknown key generator")
	ErrWorkers       = errors.New("worker count must be a positive integer")
	ErrRPCTimeout    = errors.New("rpc timeout must be positive")
	ErrSinkRetries   = errors.New("sink retries must be at least 1")
	ErrMissingOutput = errors.New("output file is required")
)

// NetworkConfig defines the required fields for blockchain/network connection configuration. Node contains the url
// (ie. https://localhost:8545) and Secret is an optional field when Basic Authentication is required by the node.
// Decimals is the number of decimals of the network's native unit (18 when the key is omitted, 0 is kept).
type NetworkConfig struct {
	Name     string `json:"name"`
	Node     string `json:"node"`
	Secret   string `json:"secret"`
	Decimals uint8  `json:"decimals"`
	Driver   string `json:"driver"`
}

// UnmarshalJSON decodes a network, defaulting Decimals only when the key is absent.
func (n *NetworkConfig) UnmarshalJSON(b []byte) error {
	type plain NetworkConfig

	p := plain{Decimals: DecimalsDefault}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	*n = NetworkConfig(p)

	return nil
}

// ScanConfig contains the fields required by the scanner: workers, output artifact, key generator, rpc timeout,
// sink retry policy, optional discovery index and message broker, metrics endpoint, log level and the networks.
type ScanConfig struct {
	Workers        int             `json:"workers"`
	Output         string          `json:"output"`
	KeyGen         string          `json:"keygen"`
	RPCTimeout     Duration        `json:"rpcTimeout"`
	SinkRetries    uint            `json:"sinkRetries"`
	SinkRetryDelay Duration        `json:"sinkRetryDelay"`
	Quiet          bool            `json:"quiet"`
	DBType         string          `json:"dbtype"`
	DBConn         string          `json:"dbconn"`
	MbType         string          `json:"mbtype"`
	MbConn         string          `json:"mbconn"`
	Metrics        string          `json:"metrics"`
	LogLevel       string          `json:"logLevel"`
	Networks       []NetworkConfig `json:"networks"`

	// flat node keys of older settings.json files, expanded into Networks when Networks is empty
	EthereumNode string `json:"ethereum_node"`
	BscNode      string `json:"bsc_node"`
	PolygonNode  string `json:"polygon_node"`
	ArbitrumNode string `json:"arbitrum_node"`
}

// overrides holds the OS ENV variables. Empty values leave the configuration untouched.
type overrides struct {
	Workers        int           `env:"WORKERS"`
	Output         string        `env:"OUTPUT"`
	KeyGen         string        `env:"KEYGEN"`
	RPCTimeout     time.Duration `env:"RPCTIMEOUT"`
	SinkRetries    uint          `env:"SINKRETRIES"`
	SinkRetryDelay time.Duration `env:"SINKRETRYDELAY"`
	Quiet          bool          `env:"QUIET"`
	DBType         string        `env:"DBTYPE"`
	DBConn         string        `env:"DBCONN"`
	MbType         string        `env:"MBTYPE"`
	MbConn         string        `env:"MBCONN"`
	Metrics        string        `env:"METRICS"`
	LogLevel       string        `env:"LOGLEVEL"`
	Networks       string        `env:"NETWORKS"`
}

// Default returns the configuration used before reading any file or OS ENV variable.
func Default() ScanConfig {
	return ScanConfig{
		Output:         OutputDefault,
		KeyGen:         KeyGenDefault,
		RPCTimeout:     Duration(RPCTimeoutDefault),
		SinkRetries:    SinkRetriesDefault,
		SinkRetryDelay: Duration(SinkRetryDelayDefault),
		LogLevel:       LogLevelDefault,
	}
}

// ExtractConfiguration reads from the given JSON filename and returns the ScanConfig or an error otherwise. The
// returned configuration has network defaults applied but is not validated.
func ExtractConfiguration(filename string) (ScanConfig, error) {
	conf := Default()
	// read from config file first
	if filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			log.Error().Str("file", filename).Msg("Configuration file not found")

			return conf, fmt.Errorf("config: %w", err)
		}
		defer file.Close()

		if err = json.NewDecoder(file).Decode(&conf); err != nil {
			return conf, fmt.Errorf("config: cannot decode %s: %w", filename, err)
		}
	}
	// then override config values with OS ENV variables
	var ov overrides
	if err := env.ParseWithOptions(&ov, env.Options{Prefix: envPrefix}); err != nil {
		return conf, fmt.Errorf("config: cannot read environment: %w", err)
	}

	if err := conf.apply(ov); err != nil {
		return conf, err
	}

	conf.expandLegacy()
	conf.setNetworkDefaults()

	return conf, nil
}

func (c *ScanConfig) apply(ov overrides) error {
	if ov.Workers != 0 {
		c.Workers = ov.Workers
	}
	if ov.Output != "" {
		c.Output = ov.Output
	}
	if ov.KeyGen != "" {
		c.KeyGen = ov.KeyGen
	}
	if ov.RPCTimeout != 0 {
		c.RPCTimeout = Duration(ov.RPCTimeout)
	}
	if ov.SinkRetries != 0 {
		c.SinkRetries = ov.SinkRetries
	}
	if ov.SinkRetryDelay != 0 {
		c.SinkRetryDelay = Duration(ov.SinkRetryDelay)
	}
	if ov.Quiet {
		c.Quiet = true
	}
	if ov.DBType != "" {
		c.DBType = ov.DBType
	}
	if ov.DBConn != "" {
		c.DBConn = ov.DBConn
	}
	if ov.MbType != "" {
		c.MbType = ov.MbType
	}
	if ov.MbConn != "" {
		c.MbConn = ov.MbConn
	}
	if ov.Metrics != "" {
		c.Metrics = ov.Metrics
	}
	if ov.LogLevel != "" {
		c.LogLevel = ov.LogLevel
	}
	if ov.Networks != "" {
		var nets []NetworkConfig
		if err := json.Unmarshal([]byte(ov.Networks), &nets); err != nil {
			log.Error().Msg("Error reading networks from OS ENV " + envPrefix + "NETWORKS")

			return fmt.Errorf("config: %w", err)
		}
		c.Networks = nets
	}

	return nil
}

// expandLegacy turns the flat node keys into networks, keeping the ethereum, bsc, polygon, arbitrum order.
func (c *ScanConfig) expandLegacy() {
	if len(c.Networks) > 0 {
		return
	}

	legacy := []NetworkConfig{
		{Name: "ethereum", Node: c.EthereumNode, Decimals: DecimalsDefault},
		{Name: "bsc", Node: c.BscNode, Decimals: DecimalsDefault},
		{Name: "polygon", Node: c.PolygonNode, Decimals: DecimalsDefault},
		{Name: "arbitrum", Node: c.ArbitrumNode, Decimals: DecimalsDefault},
	}
	for _, n := range legacy {
		if n.Node != "" {
			c.Networks = append(c.Networks, n)
		}
	}
}

func (c *ScanConfig) setNetworkDefaults() {
	for i := range c.Networks {
		if c.Networks[i].Driver == "" {
			c.Networks[i].Driver = DriverDefault
		}
	}
}

// Validate checks the configuration can start a scan. Workers may still be 0, meaning the operator will be asked.
func (c *ScanConfig) Validate() error {
	if len(c.Networks) == 0 {
		return ErrNoNetworks
	}

	names := make([]string, 0, len(c.Networks))
	for _, n := range c.Networks {
		if n.Name == "" || util.In(names, n.Name) {
			return fmt.Errorf("%w: %q", ErrNetworkName, n.Name)
		}
		names = append(names, n.Name)

		if n.Node == "" {
			return fmt.Errorf("%w: %s", ErrNetworkNode, n.Name)
		}
		if n.Driver != DriverEthereum && n.Driver != DriverJSONRPC {
			return fmt.Errorf("%w: %q for %s", ErrDriver, n.Driver, n.Name)
		}
	}

	if c.KeyGen != KeyGenRaw && c.KeyGen != KeyGenHD {
		return fmt.Errorf("%w: %q", ErrKeyGen, c.KeyGen)
	}
	if c.Workers < 0 {
		return ErrWorkers
	}
	if c.RPCTimeout <= 0 {
		return ErrRPCTimeout
	}
	if c.SinkRetries < 1 {
		return ErrSinkRetries
	}
	if c.Output == "" {
		return ErrMissingOutput
	}

	return nil
}

// NetworkNames returns the names of the configured networks in order.
func (c *ScanConfig) NetworkNames() []string {
	names := make([]string, len(c.Networks))
	for i, n := range c.Networks {
		names[i] = n.Name
	}

	return names
}
