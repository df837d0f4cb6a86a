package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the proof indexer
const (
	EnvRpcUrl       = "CHAINPROOF_RPC_URL"
	EnvChainId      = "CHAINPROOF_CHAIN_ID"
	EnvStartBlock   = "CHAINPROOF_START_BLOCK"
	EnvAddresses    = "CHAINPROOF_ADDRESSES"
	EnvStoreBackend = "CHAINPROOF_STORE_BACKEND"
	EnvStorePath    = "CHAINPROOF_STORE_PATH"
	EnvRedisAddress = "CHAINPROOF_REDIS_ADDRESS"
	EnvRateLimit    = "CHAINPROOF_RATE_LIMIT"
	EnvVerbose      = "CHAINPROOF_VERBOSE"
)

type ChainId uint64

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_EthereumSepolia ChainId = 11155111
	ChainId_EthereumAnvil   ChainId = 31337
)

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_EthereumSepolia ChainName = "sepolia"
	ChainName_EthereumAnvil   ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_EthereumSepolia: ChainName_EthereumSepolia,
	ChainId_EthereumAnvil:   ChainName_EthereumAnvil,
}
var ChainNameToId = map[ChainName]ChainId{
	ChainName_EthereumMainnet: ChainId_EthereumMainnet,
	ChainName_EthereumSepolia: ChainId_EthereumSepolia,
	ChainName_EthereumAnvil:   ChainId_EthereumAnvil,
}

// Scan tuning by chain. The confirmation gap keeps the scanner behind the
// head so it only commits blocks that will not reorg under it.
const (
	ScanWindow_Default = 50000

	ConfirmationGap_Mainnet = 3
	ConfirmationGap_Sepolia = 3
	ConfirmationGap_Anvil   = 1 // devnet blocks are effectively final
)

// GetConfirmationGapForChain returns the confirmation gap for a given chain
func GetConfirmationGapForChain(chainId ChainId) uint64 {
	switch chainId {
	case ChainId_EthereumAnvil:
		return ConfirmationGap_Anvil
	default:
		return ConfirmationGap_Mainnet
	}
}

// StoreBackend selects the commitment store implementation
type StoreBackend string

const (
	StoreBackend_Memory StoreBackend = "memory"
	StoreBackend_Badger StoreBackend = "badger"
	StoreBackend_Redis  StoreBackend = "redis"
)

// StoreConfig configures the commitment store
type StoreConfig struct {
	Backend      StoreBackend `json:"backend"`
	Path         string       `json:"path"`          // badger data directory
	RedisAddress string       `json:"redis_address"` // host:port
	RedisDB      int          `json:"redis_db"`
}

func (sc *StoreConfig) Validate() error {
	var allErrors field.ErrorList
	switch sc.Backend {
	case StoreBackend_Memory:
		// nothing to configure
	case StoreBackend_Badger:
		if sc.Path == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("path"), "path is required for the badger backend"))
		}
	case StoreBackend_Redis:
		if sc.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redisAddress"), "redisAddress is required for the redis backend"))
		}
		if sc.RedisDB < 0 || sc.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("redisDB"), sc.RedisDB, "redis database number must be 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("backend"), string(sc.Backend), []string{
			string(StoreBackend_Memory), string(StoreBackend_Badger), string(StoreBackend_Redis),
		}))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// IndexerConfig represents the complete configuration for the proof indexer
type IndexerConfig struct {
	// Chain configuration
	RpcUrl     string    `json:"rpc_url"`
	ChainID    ChainId   `json:"chain_id"`
	ChainName  ChainName `json:"chain_name"`
	StartBlock uint64    `json:"start_block"`

	// Addresses are the contracts whose logs drive commitment building
	Addresses []string `json:"addresses"`

	// Store configuration
	Store StoreConfig `json:"store"`

	// Operational settings
	RateLimit float64 `json:"rate_limit"` // RPC requests per second, 0 = unlimited
	Debug     bool    `json:"debug"`
}

// Validate validates the indexer configuration and fills in derived fields
func (c *IndexerConfig) Validate() error {
	if c.RpcUrl == "" {
		return fmt.Errorf("rpc url cannot be empty")
	}

	chainName, exists := ChainIdToName[c.ChainID]
	if !exists {
		return fmt.Errorf("unsupported chain ID %d. Supported: %s", c.ChainID, GetSupportedChainIDsString())
	}
	c.ChainName = chainName

	for _, address := range c.Addresses {
		if !common.IsHexAddress(address) {
			return fmt.Errorf("invalid contract address: %s", address)
		}
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %f", c.RateLimit)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("invalid store configuration: %w", err)
	}

	return nil
}

// ContractAddresses returns the watched addresses in parsed form
func (c *IndexerConfig) ContractAddresses() []common.Address {
	addresses := make([]common.Address, 0, len(c.Addresses))
	for _, address := range c.Addresses {
		addresses = append(addresses, common.HexToAddress(address))
	}
	return addresses
}

// GetSupportedChainIDs returns all supported chain IDs
func GetSupportedChainIDs() []ChainId {
	return []ChainId{
		ChainId_EthereumMainnet,
		ChainId_EthereumSepolia,
		ChainId_EthereumAnvil,
	}
}

// GetSupportedChainIDsString returns supported chain IDs as strings for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (mainnet), %d (sepolia), %d (devnet)",
		ChainId_EthereumMainnet, ChainId_EthereumSepolia, ChainId_EthereumAnvil)
}
