package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tradingpost/internal/config"
	"tradingpost/internal/market"
	"tradingpost/internal/node"
)

const usage = `usage: tradingpost <command> [flags]

commands:
  warehouse   serve the inventory store on --warehouse
  peer        run one buyer or seller peer
  sim         run a warehouse and --buyers + --sellers peers in one process`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	cfg := config.Default()
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfg.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "warehouse":
		err = runWarehouse(ctx, cfg)
	case "peer":
		err = runPeer(ctx, cfg)
	case "sim":
		err = runSim(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func runWarehouse(ctx context.Context, cfg config.Config) error {
	store, closeStore, err := node.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(context.Background())

	wh := node.NewWarehouseNode(cfg.Warehouse, store)
	errCh := make(chan error, 1)
	go func() { errCh <- wh.Start() }()

	select {
	case <-ctx.Done():
		wh.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}

func runPeer(ctx context.Context, cfg config.Config) error {
	n, err := node.NewNode(cfg)
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() { errCh <- n.Start() }()
	defer n.Stop()

	// Every peer resolves the others once they are all up
	if err := startWhenReady(ctx, n, time.Second, errCh); err != nil {
		return err
	}
	if cfg.Elect {
		if err := n.Peer().StartElection(ctx, cfg.Traders); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// startWhenReady calls Start until every peer answers. It gives up when the
// node's own server stops, reported on serveErr.
func startWhenReady(ctx context.Context, n *node.Node, every time.Duration, serveErr <-chan error) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		err := n.Peer().Start(ctx)
		if err == nil {
			return nil
		}
		log.Printf("[peer-%d] Waiting for peers: %v", n.Peer().ID(), err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-serveErr:
			if err == nil {
				err = errors.New("server stopped")
			}
			return fmt.Errorf("peer %d is not serving: %w", n.Peer().ID(), err)
		case <-ticker.C:
		}
	}
}

// simRoles interleaves the population so that even ids are buyers and odd
// ids sellers for as long as both last.
func simRoles(buyers, sellers int) []market.Role {
	roles := make([]market.Role, 0, buyers+sellers)
	for len(roles) < cap(roles) {
		wantBuyer := len(roles)%2 == 0
		switch {
		case wantBuyer && buyers > 0, sellers == 0:
			roles = append(roles, market.Buyer)
			buyers--
		default:
			roles = append(roles, market.Seller)
			sellers--
		}
	}
	return roles
}

func runSim(ctx context.Context, cfg config.Config) error {
	roles := simRoles(cfg.Buyers, cfg.Sellers)
	if cfg.Traders > len(roles) {
		return fmt.Errorf("%w: traders=%d peers=%d", market.ErrInvalidElectionSize, cfg.Traders, len(roles))
	}

	store, closeStore, err := node.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(context.Background())

	whLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen for warehouse: %w", err)
	}
	wh := node.NewWarehouseNode(whLis.Addr().String(), store)
	go wh.Serve(whLis)
	defer wh.Stop()

	listeners := make([]net.Listener, len(roles))
	book := make([]string, len(roles))
	for i := range roles {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to listen for peer %d: %w", i, err)
		}
		listeners[i] = lis
		book[i] = fmt.Sprintf("%d=%s", i, lis.Addr())
	}

	serveErr := make(chan error, len(roles))
	nodes := make([]*node.Node, 0, len(roles))
	defer func() {
		for _, n := range nodes {
			n.Stop()
		}
	}()
	for i, role := range roles {
		peerCfg := cfg
		peerCfg.ID = i
		peerCfg.Role = role.String()
		peerCfg.ListenAddr = listeners[i].Addr().String()
		peerCfg.PeerList = strings.Join(book, ",")
		peerCfg.Warehouse = whLis.Addr().String()
		if err := peerCfg.Validate(); err != nil {
			return fmt.Errorf("peer %d: %w", i, err)
		}

		n, err := node.NewNode(peerCfg)
		if err != nil {
			return err
		}
		go func() { serveErr <- n.Serve(listeners[i]) }()
		nodes = append(nodes, n)
	}

	for _, n := range nodes {
		if err := startWhenReady(ctx, n, 200*time.Millisecond, serveErr); err != nil {
			return err
		}
	}
	log.Printf("[sim] Started %d peers: roles=%v traders=%d", len(nodes), roles, cfg.Traders)

	if err := nodes[0].Peer().StartElection(ctx, cfg.Traders); err != nil {
		return err
	}

	var crash <-chan time.Time
	if cfg.CrashDelay > 0 {
		timer := time.NewTimer(cfg.CrashDelay)
		defer timer.Stop()
		crash = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sim] Stopping: inventory=%v", store.Snapshot())
			for _, n := range nodes {
				p := n.Peer()
				log.Printf("[sim] Peer %d: role=%s trader=%t balance=%d applied=%s",
					p.ID(), p.Role(), p.IsTrader(), p.Balance(), p.Cache().Applied())
			}
			return nil
		case err := <-serveErr:
			return fmt.Errorf("peer stopped serving: %w", err)
		case <-crash:
			last := nodes[len(nodes)-1]
			log.Printf("[sim] Crashing peer %d", last.Peer().ID())
			last.Crash()
			crash = nil
		}
	}
}
