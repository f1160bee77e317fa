package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
	"github.com/tdex-network/tdex-walletkit/internal/core/application"
)

const (
	// LogLevelKey is the logging level. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DatadirKey is the local data directory to store the user settings and
	// the relay session
	DatadirKey = "DATADIR"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// DefaultChainIDKey is the chain used while no wallet is connected or the
	// wallet is on an unsupported network
	DefaultChainIDKey = "DEFAULT_CHAIN_ID"
	// SupportedChainsKey is the comma separated list of supported chain ids
	SupportedChainsKey = "SUPPORTED_CHAINS"
	// RPCEndpointsKey is the comma separated list of <chainID>=<url> JSON-RPC
	// endpoints used to look up receipts
	RPCEndpointsKey = "RPC_ENDPOINTS"
	// ExplorerURLsKey is the comma separated list of <chainID>=<url> block
	// explorers
	ExplorerURLsKey = "EXPLORER_URLS"
	// InjectedProviderURLKey is the JSON-RPC url of the injected wallet
	// provider, if any
	InjectedProviderURLKey = "INJECTED_PROVIDER_URL"
	// InjectedPollIntervalKey is the interval in milliseconds the injected
	// wallet is polled for account and network changes
	InjectedPollIntervalKey = "INJECTED_POLL_INTERVAL"
	// RelayBridgeURLKey is the websocket url of the relay bridge, if any
	RelayBridgeURLKey = "RELAY_BRIDGE_URL"
	// RelayTimeoutKey is the time in seconds to wait for the wallet to approve
	// a relay session
	RelayTimeoutKey = "RELAY_TIMEOUT"
	// ReceiptPollIntervalKey is the interval in milliseconds between
	// reconciliation passes of the pending transactions
	ReceiptPollIntervalKey = "RECEIPT_POLL_INTERVAL"
	// ReceiptLookupTimeoutKey is the timeout in seconds of a receipt lookup
	ReceiptLookupTimeoutKey = "RECEIPT_LOOKUP_TIMEOUT"
	// ReceiptMaxConcurrencyKey is the max number of lookups in flight
	ReceiptMaxConcurrencyKey = "RECEIPT_MAX_CONCURRENCY"
	// ReceiptRateLimitKey is the max number of requests per second to a
	// chain's rpc endpoint
	ReceiptRateLimitKey = "RECEIPT_RATE_LIMIT"
	// ToastAutoCloseKey is the time in milliseconds a notification stays
	// visible
	ToastAutoCloseKey = "TOAST_AUTO_CLOSE"
	// WebhookEndpointsKey is the comma separated list of endpoints every
	// notification is POSTed to
	WebhookEndpointsKey = "WEBHOOK_ENDPOINTS"
	// WebhookSecretKey is the secret used to sign webhook calls
	WebhookSecretKey = "WEBHOOK_SECRET"
	// StatsIntervalKey defines interval in seconds for printing basic
	// statistics, 0 disables them
	StatsIntervalKey = "STATS_INTERVAL"

	DbLocation       = "db"
	ProfilerLocation = "stats"
)

var (
	vip            *viper.Viper
	defaultDatadir = btcutil.AppDataDir("walletkit", false)

	defaultRPCEndpoints = strings.Join([]string{
		"42161=https://arb1.arbitrum.io/rpc",
		"421611=https://rinkeby.arbitrum.io/rpc",
		"56=https://bsc-dataseed.binance.org",
		"97=https://data-seed-prebsc-1-s1.binance.org:8545",
	}, ",")
	defaultExplorerURLs = strings.Join([]string{
		"42161=https://arbiscan.io/",
		"421611=https://testnet.arbiscan.io/",
		"56=https://bscscan.com/",
		"97=https://testnet.bscscan.com/",
	}, ",")
)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("WALLETKIT")
	vip.AutomaticEnv()

	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DBTypeKey, application.DBBadger)
	vip.SetDefault(DefaultChainIDKey, 42161)
	vip.SetDefault(SupportedChainsKey, "42161,421611,56,97")
	vip.SetDefault(RPCEndpointsKey, defaultRPCEndpoints)
	vip.SetDefault(ExplorerURLsKey, defaultExplorerURLs)
	vip.SetDefault(InjectedPollIntervalKey, 1000)
	vip.SetDefault(RelayTimeoutKey, 120)
	vip.SetDefault(ReceiptPollIntervalKey, 2000)
	vip.SetDefault(ReceiptLookupTimeoutKey, 10)
	vip.SetDefault(ReceiptMaxConcurrencyKey, 4)
	vip.SetDefault(ReceiptRateLimitKey, 10)
	vip.SetDefault(ToastAutoCloseKey, 7000)
	vip.SetDefault(StatsIntervalKey, 0)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func Set(key string, value interface{}) {
	vip.Set(key, value)
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetUint64(key string) uint64 {
	return vip.GetUint64(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

// GetMilliseconds returns the value of key, expressed in ms, as a duration.
func GetMilliseconds(key string) time.Duration {
	return time.Duration(vip.GetInt64(key)) * time.Millisecond
}

// GetSeconds returns the value of key, expressed in s, as a duration.
func GetSeconds(key string) time.Duration {
	return time.Duration(vip.GetInt64(key)) * time.Second
}

// GetList returns the comma separated values of key, trimmed.
func GetList(key string) []string {
	list := make([]string, 0)
	for _, v := range strings.Split(GetString(key), ",") {
		if v = strings.TrimSpace(v); len(v) > 0 {
			list = append(list, v)
		}
	}
	return list
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

func GetSupportedChains() ([]uint64, error) {
	list := GetList(SupportedChainsKey)
	chains := make([]uint64, 0, len(list))
	for _, v := range list {
		chainID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q", v)
		}
		chains = append(chains, chainID)
	}
	return chains, nil
}

// GetURLsByChain parses the <chainID>=<url> list of key.
func GetURLsByChain(key string) (map[uint64]string, error) {
	urls := make(map[uint64]string)
	for _, v := range GetList(key) {
		split := strings.SplitN(v, "=", 2)
		if len(split) != 2 || len(split[1]) <= 0 {
			return nil, fmt.Errorf("%s: %q must be in the form <chainID>=<url>", key, v)
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(split[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid chain id %q", key, split[0])
		}
		urls[chainID] = strings.TrimSpace(split[1])
	}
	return urls, nil
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	dbType := GetString(DBTypeKey)
	if _, ok := application.SupportedDBType[dbType]; !ok {
		return fmt.Errorf("db type %q not supported", dbType)
	}

	chains, err := GetSupportedChains()
	if err != nil {
		return err
	}
	if len(chains) <= 0 {
		return fmt.Errorf("missing supported chains")
	}

	rpcEndpoints, err := GetURLsByChain(RPCEndpointsKey)
	if err != nil {
		return err
	}
	if _, err := GetURLsByChain(ExplorerURLsKey); err != nil {
		return err
	}

	defaultChainID := GetUint64(DefaultChainIDKey)
	isDefaultSupported := false
	for _, chainID := range chains {
		if chainID == defaultChainID {
			isDefaultSupported = true
		}
		if _, ok := rpcEndpoints[chainID]; !ok {
			return fmt.Errorf("missing rpc endpoint for chain %d", chainID)
		}
	}
	if !isDefaultSupported {
		return fmt.Errorf("default chain %d must be supported", defaultChainID)
	}

	if GetInt(ReceiptPollIntervalKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", ReceiptPollIntervalKey)
	}
	if GetInt(ReceiptLookupTimeoutKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", ReceiptLookupTimeoutKey)
	}
	if GetInt(ReceiptMaxConcurrencyKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", ReceiptMaxConcurrencyKey)
	}
	if GetInt(StatsIntervalKey) < 0 {
		return fmt.Errorf("%s must not be negative", StatsIntervalKey)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if GetString(DBTypeKey) == application.DBBadger {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
			return err
		}
	}

	if GetInt(StatsIntervalKey) > 0 {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
