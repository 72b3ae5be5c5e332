package config

import (
	"errors"
	"flag"
	"testing"
	"time"

	"tradingpost/internal/market"
)

func TestParsePeers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Peer
		wantErr bool
	}{
		{
			name:  "empty string",
			input: "",
			want:  []Peer{},
		},
		{
			name:  "single peer",
			input: "0=127.0.0.1:7000",
			want: []Peer{
				{ID: 0, Addr: "127.0.0.1:7000"},
			},
		},
		{
			name:  "multiple peers",
			input: "0=127.0.0.1:7000,1=127.0.0.1:7001,2=127.0.0.1:7002",
			want: []Peer{
				{ID: 0, Addr: "127.0.0.1:7000"},
				{ID: 1, Addr: "127.0.0.1:7001"},
				{ID: 2, Addr: "127.0.0.1:7002"},
			},
		},
		{
			name:  "with spaces",
			input: " 0 = 127.0.0.1:7000 , 1 = 127.0.0.1:7001 ",
			want: []Peer{
				{ID: 0, Addr: "127.0.0.1:7000"},
				{ID: 1, Addr: "127.0.0.1:7001"},
			},
		},
		{
			name:    "invalid format - no equals",
			input:   "0:127.0.0.1:7000",
			wantErr: true,
		},
		{
			name:    "invalid format - empty ID",
			input:   "=127.0.0.1:7000",
			wantErr: true,
		},
		{
			name:    "invalid format - empty addr",
			input:   "0=",
			wantErr: true,
		},
		{
			name:    "non-numeric ID",
			input:   "n1=127.0.0.1:7000",
			wantErr: true,
		},
		{
			name:    "negative ID",
			input:   "-1=127.0.0.1:7000",
			wantErr: true,
		},
		{
			name:    "duplicate ID",
			input:   "0=127.0.0.1:7000,0=127.0.0.1:7001",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeers(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParsePeers() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if len(got) != len(tt.want) {
					t.Errorf("ParsePeers() length = %d, want %d", len(got), len(tt.want))
					return
				}
				for i := range got {
					if got[i] != tt.want[i] {
						t.Errorf("ParsePeers()[%d] = %v, want %v", i, got[i], tt.want[i])
					}
				}
			}
		})
	}
}

func TestConfig_BuildAddressBook(t *testing.T) {
	cfg := &Config{
		ID:         0,
		ListenAddr: "127.0.0.1:7000",
		Peers: []Peer{
			{ID: 1, Addr: "127.0.0.1:7001"},
			{ID: 2, Addr: "127.0.0.1:7002"},
		},
	}

	book := cfg.BuildAddressBook()
	if len(book) != 3 {
		t.Errorf("Expected 3 peers, got %d", len(book))
	}
	if book[0] != "127.0.0.1:7000" {
		t.Errorf("Self not found in address book: %v", book)
	}

	// An explicit entry for self wins over the listen address
	cfg.Peers = append(cfg.Peers, Peer{ID: 0, Addr: "10.0.0.1:7000"})
	if got := cfg.BuildAddressBook()[0]; got != "10.0.0.1:7000" {
		t.Errorf("book[0] = %q, want the peer list entry", got)
	}
}

func TestRegisterFlags(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	err := fs.Parse([]string{
		"--id=2",
		"--role=seller",
		"--peers=0=a:1,1=b:1,2=c:1",
		"--heartbeat-interval=200ms",
		"--heartbeat-timeout=1s",
		"--traders=1",
		"--cache=none",
		"--reset-inventory=false",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.ID != 2 || cfg.Cache != "none" || cfg.ResetInventory {
		t.Errorf("flags not applied: %+v", cfg)
	}
	role, err := cfg.PeerRole()
	if err != nil || role != market.Seller {
		t.Errorf("PeerRole() = %v, %v", role, err)
	}
	if cfg.RingSize() != 3 {
		t.Errorf("RingSize() = %d, want 3", cfg.RingSize())
	}

	opts := cfg.PeerOptions()
	if opts.HeartbeatInterval != 200*time.Millisecond || opts.HeartbeatTimeout != time.Second {
		t.Errorf("PeerOptions() heartbeat = %s/%s", opts.HeartbeatInterval, opts.HeartbeatTimeout)
	}
	if opts.MaxAttempts != 3 {
		t.Errorf("PeerOptions() MaxAttempts = %d, want 3", opts.MaxAttempts)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"timeout equals interval", func(c *Config) { c.HeartbeatTimeout = c.HeartbeatInterval }, true},
		{"timeout below interval", func(c *Config) { c.HeartbeatTimeout = c.HeartbeatInterval / 2 }, true},
		{"unknown role", func(c *Config) { c.Role = "trader" }, true},
		{"unknown cache", func(c *Config) { c.Cache = "lru" }, true},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, true},
		{"zero traders", func(c *Config) { c.Traders = 0 }, true},
		{"more traders than peers", func(c *Config) { c.PeerCount = 2; c.Traders = 3 }, true},
		{"bad peer list", func(c *Config) { c.PeerList = "0=a,0=b" }, true},
		{"buying disabled", func(c *Config) { c.BuyPeriod = 0 }, false},
		{"negative accrual period", func(c *Config) { c.AccrualPeriod = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Traders = 0
	cfg.MaxAttempts = 0
	cfg.Cache = "lru"

	err := cfg.Validate()
	if !errors.Is(err, market.ErrInvalidElectionSize) {
		t.Errorf("Validate() = %v, want ErrInvalidElectionSize among the errors", err)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 3 {
		t.Errorf("Validate() = %v, want 3 joined errors", err)
	}
}
