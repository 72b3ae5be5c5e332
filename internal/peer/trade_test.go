package peer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingpost/internal/market"
)

func TestTrade_Sell(t *testing.T) {
	c := newCluster(t, roles(1, market.Seller), testOptions())
	ctx := context.Background()

	require.NoError(t, c.peers[0].StartElection(ctx, 1))
	c.waitTraders(t, []int32{0})

	status, err := c.peers[0].Sell(ctx, req(1, 0, market.Boars, 3))
	require.NoError(t, err)
	assert.Equal(t, market.Successful, status)
}

func TestTrade_BuySingleTrader(t *testing.T) {
	c := newCluster(t, roles(1, market.Seller), testOptions())
	ctx := context.Background()
	trader := c.peers[0]

	require.NoError(t, trader.StartElection(ctx, 1))
	c.waitTraders(t, []int32{0})

	status, err := trader.Sell(ctx, req(1, 0, market.Boars, 3))
	require.NoError(t, err)
	assert.Equal(t, market.Successful, status)

	status, err = trader.Buy(ctx, req(1, 1, market.Boars, 3))
	require.NoError(t, err)
	assert.Equal(t, market.Successful, status)

	// The store is restocked behind the trader's cache
	_, err = c.store.Sell(ctx, req(2, 0, market.Boars, 3))
	require.NoError(t, err)

	status, err = trader.Buy(ctx, req(2, 1, market.Boars, 1))
	require.NoError(t, err)
	assert.Equal(t, market.NotInStock, status, "a stale cache must not oversell")
}

func TestTrade_BuyMultipleTraders(t *testing.T) {
	c := newCluster(t, roles(3, market.Seller), testOptions())
	ctx := context.Background()

	require.NoError(t, c.peers[0].StartElection(ctx, 3))
	c.waitTraders(t, []int32{0, 1, 2})

	status, err := c.peers[0].Sell(ctx, req(1, 0, market.Boars, 3))
	require.NoError(t, err)
	assert.Equal(t, market.Successful, status)

	// The sell reached every trader's cache
	for _, p := range c.peers {
		qty, err := p.Cache().Lookup(ctx, market.Boars)
		require.NoError(t, err)
		assert.Equal(t, int64(3), qty, "peer %d", p.ID())
	}

	status, err = c.peers[1].Buy(ctx, req(1, 1, market.Boars, 3))
	require.NoError(t, err)
	assert.Equal(t, market.Successful, status)

	_, err = c.store.Sell(ctx, req(2, 0, market.Boars, 3))
	require.NoError(t, err)

	status, err = c.peers[2].Buy(ctx, req(2, 1, market.Boars, 1))
	require.NoError(t, err)
	assert.Equal(t, market.NotInStock, status)
}

func TestTrade_NotATrader(t *testing.T) {
	c := newCluster(t, roles(3, market.Buyer), testOptions())
	ctx := context.Background()

	// Before any election nobody trades
	status, err := c.peers[2].Sell(ctx, req(1, 0, market.Salt, 1))
	require.NoError(t, err)
	assert.Equal(t, market.NotATrader, status)

	require.NoError(t, c.peers[0].StartElection(ctx, 1))
	c.waitTraders(t, []int32{2})

	status, err = c.peers[0].Buy(ctx, req(1, 1, market.Salt, 1))
	require.NoError(t, err)
	assert.Equal(t, market.NotATrader, status)

	status, err = c.peers[2].Sell(ctx, req(1, 0, market.Salt, 1))
	require.NoError(t, err)
	assert.Equal(t, market.Successful, status)
}

func TestTrade_DuplicateRequest(t *testing.T) {
	c := newCluster(t, roles(2, market.Seller), testOptions())
	ctx := context.Background()

	require.NoError(t, c.peers[0].StartElection(ctx, 2))
	c.waitTraders(t, []int32{0, 1})

	status, _ := c.peers[0].Sell(ctx, req(1, 5, market.Fish, 2))
	require.Equal(t, market.Successful, status)

	// The same request retried through the other trader is recognized
	status, err := c.peers[1].Sell(ctx, req(1, 5, market.Fish, 2))
	require.NoError(t, err)
	assert.Equal(t, market.LowSequenceNumber, status)

	qty, _ := c.store.Lookup(ctx, market.Fish)
	assert.Equal(t, int64(2), qty)
	for _, p := range c.peers {
		qty, _ := p.Cache().Lookup(ctx, market.Fish)
		assert.Equal(t, int64(2), qty, "peer %d", p.ID())
	}
}

func TestTrade_InvalidRequest(t *testing.T) {
	c := newCluster(t, roles(1, market.Seller), testOptions())
	ctx := context.Background()
	require.NoError(t, c.peers[0].StartElection(ctx, 1))
	c.waitTraders(t, []int32{0})

	_, err := c.peers[0].Buy(ctx, req(1, 0, market.Fish, -1))
	assert.ErrorIs(t, err, market.ErrInvalidAmount)

	_, err = c.peers[0].Sell(ctx, req(1, 0, "GOLD", 1))
	assert.ErrorIs(t, err, market.ErrUnknownProduct)

	err = c.peers[0].UpdateCache(ctx, market.CacheUpdate{SequenceNumber: 1, Product: "GOLD", Delta: 1})
	assert.ErrorIs(t, err, market.ErrUnknownProduct)
}

func TestTrade_CacheUpdateRedelivered(t *testing.T) {
	c := newCluster(t, roles(3, market.Seller), testOptions())
	ctx := context.Background()

	require.NoError(t, c.peers[0].StartElection(ctx, 3))
	c.waitTraders(t, []int32{0, 1, 2})

	c.dir.Disconnect(2)
	status, err := c.peers[0].Sell(ctx, req(1, 0, market.Salt, 3))
	require.NoError(t, err)
	require.Equal(t, market.Successful, status)

	qty, _ := c.peers[2].Cache().Lookup(ctx, market.Salt)
	assert.Zero(t, qty, "disconnected trader missed the update")

	c.dir.Reconnect(2)
	require.Eventually(t, func() bool {
		qty, _ := c.peers[2].Cache().Lookup(ctx, market.Salt)
		return qty == 3
	}, waitFor, tick, "update was not redelivered")
}

func TestTrade_UpdatesAppliedInSourceOrder(t *testing.T) {
	c := newCluster(t, roles(2, market.Seller), testOptions())
	ctx := context.Background()
	p := c.peers[1]

	for _, seq := range []int64{1, 3, 4, 6} {
		require.NoError(t, p.UpdateCache(ctx, market.CacheUpdate{SequenceNumber: seq, SourcePeerID: 0, Product: market.Boars, Delta: 1}))
	}
	qty, _ := p.Cache().Lookup(ctx, market.Boars)
	assert.Equal(t, int64(1), qty)

	require.NoError(t, p.UpdateCache(ctx, market.CacheUpdate{SequenceNumber: 2, SourcePeerID: 0, Product: market.Boars, Delta: 1}))
	qty, _ = p.Cache().Lookup(ctx, market.Boars)
	assert.Equal(t, int64(4), qty)
}
