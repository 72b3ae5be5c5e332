package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradingpost/internal/cache"
	"tradingpost/internal/market"
	"tradingpost/internal/peer"
)

// Peer represents a peer in the marketplace.
type Peer struct {
	ID   int32
	Addr string
}

// Config holds the configuration of a peer, the warehouse and the simulation.
type Config struct {
	ID         int
	Role       string
	ListenAddr string
	PeerList   string
	Peers      []Peer
	Warehouse  string

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	BuyPeriod         time.Duration
	AccrualPeriod     time.Duration
	AccrualQuantity   int64
	MaxAttempts       int
	RPCTimeout        time.Duration
	RetryDelay        time.Duration

	Traders    int
	PeerCount  int
	Elect      bool
	CrashDelay time.Duration

	Cache      string
	MaxPending int

	InventoryFile  string
	MongoURI       string
	ResetInventory bool

	Buyers  int
	Sellers int
}

// Default returns the standard configuration.
func Default() Config {
	opts := peer.DefaultOptions()
	return Config{
		Role:              market.Buyer.String(),
		ListenAddr:        ":7000",
		Warehouse:         "127.0.0.1:6999",
		HeartbeatInterval: opts.HeartbeatInterval,
		HeartbeatTimeout:  opts.HeartbeatTimeout,
		BuyPeriod:         opts.BuyPeriod,
		AccrualPeriod:     opts.AccrualPeriod,
		AccrualQuantity:   opts.AccrualQuantity,
		MaxAttempts:       opts.MaxAttempts,
		RPCTimeout:        opts.RPCTimeout,
		RetryDelay:        opts.RetryDelay,
		Traders:           2,
		Cache:             "fifo",
		MaxPending:        cache.DefaultMaxPending,
		InventoryFile:     "warehouse_inventory.txt",
		ResetInventory:    true,
		Buyers:            3,
		Sellers:           3,
	}
}

// RegisterFlags binds the configuration to fs. Values already in c are the
// flag defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.ID, "id", c.ID, "this peer's id")
	fs.StringVar(&c.Role, "role", c.Role, "buyer or seller")
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "gRPC listen address")
	fs.StringVar(&c.PeerList, "peers", c.PeerList, "all peers as id=addr,... (self included)")
	fs.StringVar(&c.Warehouse, "warehouse", c.Warehouse, "warehouse gRPC address")

	fs.DurationVar(&c.HeartbeatInterval, "heartbeat-interval", c.HeartbeatInterval, "heartbeat period")
	fs.DurationVar(&c.HeartbeatTimeout, "heartbeat-timeout", c.HeartbeatTimeout, "silence before the partner trader is declared failed")
	fs.DurationVar(&c.BuyPeriod, "buy-period", c.BuyPeriod, "buyer attempt period, 0 disables")
	fs.DurationVar(&c.AccrualPeriod, "accrual-period", c.AccrualPeriod, "seller accrual period, 0 disables")
	fs.Int64Var(&c.AccrualQuantity, "accrual-quantity", c.AccrualQuantity, "goods accrued per period")
	fs.IntVar(&c.MaxAttempts, "max-attempts", c.MaxAttempts, "attempts per transaction before it is abandoned")
	fs.DurationVar(&c.RPCTimeout, "rpc-timeout", c.RPCTimeout, "bound on every outgoing call")
	fs.DurationVar(&c.RetryDelay, "retry-delay", c.RetryDelay, "delay before a cache update is redelivered")

	fs.IntVar(&c.Traders, "traders", c.Traders, "traders to elect")
	fs.IntVar(&c.PeerCount, "peer-count", c.PeerCount, "expected peer count, 0 uses the peer list")
	fs.BoolVar(&c.Elect, "elect", c.Elect, "start the initial election once every peer answers")
	fs.DurationVar(&c.CrashDelay, "crash-delay", c.CrashDelay, "sim: crash the highest peer after this delay, 0 disables")

	fs.StringVar(&c.Cache, "cache", c.Cache, "inventory cache: fifo or none")
	fs.IntVar(&c.MaxPending, "max-pending", c.MaxPending, "buffered out-of-order cache updates")

	fs.StringVar(&c.InventoryFile, "inventory-file", c.InventoryFile, "warehouse inventory file")
	fs.StringVar(&c.MongoURI, "mongo-uri", c.MongoURI, "store the inventory in MongoDB instead of the file")
	fs.BoolVar(&c.ResetInventory, "reset-inventory", c.ResetInventory, "start from an empty inventory")

	fs.IntVar(&c.Buyers, "buyers", c.Buyers, "sim: number of buyers")
	fs.IntVar(&c.Sellers, "sellers", c.Sellers, "sim: number of sellers")
}

// Validate parses the peer list and checks the configuration.
func (c *Config) Validate() error {
	var errs []error

	peers, err := ParsePeers(c.PeerList)
	if err != nil {
		errs = append(errs, err)
	} else if len(peers) > 0 {
		c.Peers = peers
	}
	if _, err := market.ParseRole(c.Role); err != nil {
		errs = append(errs, err)
	}
	if c.ID < 0 {
		errs = append(errs, fmt.Errorf("id must not be negative: %d", c.ID))
	}
	if c.HeartbeatInterval <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat interval must be positive: %s", c.HeartbeatInterval))
	}
	if c.HeartbeatTimeout <= c.HeartbeatInterval {
		errs = append(errs, fmt.Errorf("heartbeat timeout %s must exceed the interval %s", c.HeartbeatTimeout, c.HeartbeatInterval))
	}
	if c.BuyPeriod < 0 || c.AccrualPeriod < 0 || c.CrashDelay < 0 {
		errs = append(errs, errors.New("periods must not be negative"))
	}
	if c.AccrualQuantity < 1 {
		errs = append(errs, fmt.Errorf("accrual quantity must be positive: %d", c.AccrualQuantity))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be positive: %d", c.MaxAttempts))
	}
	if c.RPCTimeout <= 0 {
		errs = append(errs, fmt.Errorf("rpc timeout must be positive: %s", c.RPCTimeout))
	}
	if c.RetryDelay <= 0 {
		errs = append(errs, fmt.Errorf("retry delay must be positive: %s", c.RetryDelay))
	}
	if c.Traders < 1 {
		errs = append(errs, fmt.Errorf("%w: traders=%d", market.ErrInvalidElectionSize, c.Traders))
	}
	if size := c.RingSize(); size > 0 && c.Traders > size {
		errs = append(errs, fmt.Errorf("%w: traders=%d peers=%d", market.ErrInvalidElectionSize, c.Traders, size))
	}
	if c.Cache != "fifo" && c.Cache != "none" {
		errs = append(errs, fmt.Errorf("unknown cache %q (expected fifo or none)", c.Cache))
	}
	if c.MaxPending < 1 {
		errs = append(errs, fmt.Errorf("max pending must be positive: %d", c.MaxPending))
	}
	if c.Buyers < 0 || c.Sellers < 0 {
		errs = append(errs, errors.New("population must not be negative"))
	}

	return errors.Join(errs...)
}

// RingSize is the number of peers on the ring.
func (c *Config) RingSize() int {
	if c.PeerCount > 0 {
		return c.PeerCount
	}
	return len(c.Peers)
}

// PeerRole returns the parsed role.
func (c *Config) PeerRole() (market.Role, error) {
	return market.ParseRole(c.Role)
}

// PeerOptions returns the peer timers and bounds.
func (c *Config) PeerOptions() peer.Options {
	opts := peer.DefaultOptions()
	opts.HeartbeatInterval = c.HeartbeatInterval
	opts.HeartbeatTimeout = c.HeartbeatTimeout
	opts.BuyPeriod = c.BuyPeriod
	opts.AccrualPeriod = c.AccrualPeriod
	opts.AccrualQuantity = c.AccrualQuantity
	opts.MaxAttempts = c.MaxAttempts
	opts.RPCTimeout = c.RPCTimeout
	opts.RetryDelay = c.RetryDelay
	return opts
}

// ParsePeers parses a comma-separated list of peers in the format:
// "0=addr0,1=addr1,2=addr2"
func ParsePeers(peersStr string) ([]Peer, error) {
	if strings.TrimSpace(peersStr) == "" {
		return []Peer{}, nil
	}

	parts := strings.Split(peersStr, ",")
	peers := make([]Peer, 0, len(parts))
	seen := make(map[int32]bool, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid peer format: %s (expected id=addr)", part)
		}

		idStr := strings.TrimSpace(kv[0])
		addr := strings.TrimSpace(kv[1])

		if idStr == "" || addr == "" {
			return nil, fmt.Errorf("peer ID and address cannot be empty: %s", part)
		}
		id, err := strconv.ParseInt(idStr, 10, 32)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid peer ID %q: expected a non-negative integer", idStr)
		}
		if seen[int32(id)] {
			return nil, fmt.Errorf("duplicate peer ID %d", id)
		}
		seen[int32(id)] = true

		peers = append(peers, Peer{
			ID:   int32(id),
			Addr: addr,
		})
	}

	return peers, nil
}

// BuildAddressBook converts config peers + self into an id -> address map.
// Includes self in the map.
func (c *Config) BuildAddressBook() map[int32]string {
	book := make(map[int32]string, len(c.Peers)+1)
	for _, p := range c.Peers {
		book[p.ID] = p.Addr
	}
	// Self always answers on its listen address
	if _, ok := book[int32(c.ID)]; !ok {
		book[int32(c.ID)] = c.ListenAddr
	}
	return book
}
