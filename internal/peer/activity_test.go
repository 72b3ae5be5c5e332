package peer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingpost/internal/market"
)

func activityOptions() Options {
	opts := testOptions()
	opts.BuyPeriod = 20 * time.Millisecond
	opts.AccrualPeriod = 20 * time.Millisecond
	return opts
}

func startAll(t *testing.T, c *cluster) {
	t.Helper()
	for _, p := range c.peers {
		require.NoError(t, p.Start(context.Background()))
	}
}

func TestActivity_SellerSellsToTrader(t *testing.T) {
	c := newCluster(t, []market.Role{market.Seller, market.Seller}, activityOptions())
	ctx := context.Background()

	require.NoError(t, c.peers[0].StartElection(ctx, 1))
	c.waitTraders(t, []int32{1})
	startAll(t, c)

	require.Eventually(t, func() bool {
		qty, _ := c.store.Lookup(ctx, market.Fish)
		return qty >= 10
	}, waitFor, tick, "seller did not sell")

	// FISH sells for 2
	require.Eventually(t, func() bool {
		return c.peers[0].Balance() >= 20
	}, waitFor, tick, "sales were not credited")

	// The trader itself does not sell
	assert.Zero(t, c.peers[1].Stock())
	assert.Zero(t, c.peers[1].Balance())
	assert.Equal(t, int64(0), c.store.LastApplied(1))
}

func TestActivity_BuyerBuysFromTrader(t *testing.T) {
	c := newCluster(t, []market.Role{market.Buyer, market.Seller}, activityOptions())
	ctx := context.Background()

	_, err := c.store.Sell(ctx, req(1, 99, market.Fish, 10))
	require.NoError(t, err)

	require.NoError(t, c.peers[0].StartElection(ctx, 1))
	c.waitTraders(t, []int32{1})
	startAll(t, c)

	require.Eventually(t, func() bool {
		qty, _ := c.store.Lookup(ctx, market.Fish)
		return qty <= 7
	}, waitFor, tick, "buyer did not buy")
	assert.GreaterOrEqual(t, c.store.LastApplied(0), int64(3))
	require.Eventually(t, func() bool {
		return c.peers[0].Balance() <= -6
	}, waitFor, tick, "purchases were not charged")
}

func TestActivity_BuyerAbandonsAfterMaxAttempts(t *testing.T) {
	opts := activityOptions()
	opts.MaxAttempts = 2
	c := newCluster(t, []market.Role{market.Buyer, market.Seller}, opts)
	ctx := context.Background()

	require.NoError(t, c.peers[0].StartElection(ctx, 1))
	c.waitTraders(t, []int32{1})
	startAll(t, c)

	// The store stays empty, so every purchase ends up abandoned
	require.Eventually(t, func() bool {
		pending := c.peers[0].Pending()
		return pending != "" && pending != "0-BUY-1"
	}, waitFor, tick, "first purchase was never abandoned")
	assert.True(t, strings.HasPrefix(c.peers[0].Pending(), "0-BUY-"))
}

func TestActivity_BuyerRotatesAwayFromNonTrader(t *testing.T) {
	c := newCluster(t, []market.Role{market.Buyer, market.Seller, market.Seller}, activityOptions())
	ctx := context.Background()

	require.NoError(t, c.peers[0].StartElection(ctx, 2))
	c.waitTraders(t, []int32{1, 2})
	require.Equal(t, 0, c.peers[0].TraderPosition())

	// Peer 1 steps down without the buyer hearing about it
	require.NoError(t, c.peers[1].UpdateTrader(ctx, 2))
	require.NoError(t, c.peers[2].UpdateTrader(ctx, 2))
	startAll(t, c)

	require.Eventually(t, func() bool {
		return c.peers[0].TraderPosition() == 1
	}, waitFor, tick, "buyer kept contacting a peer that is not a trader")
	assert.Equal(t, []int32{1, 2}, c.peers[0].Traders())
}

func TestActivity_NoTraderElected(t *testing.T) {
	c := newCluster(t, []market.Role{market.Buyer, market.Seller}, activityOptions())
	startAll(t, c)

	time.Sleep(100 * time.Millisecond)
	qty, _ := c.store.Lookup(context.Background(), market.Fish)
	assert.Zero(t, qty)
}

func TestActivity_CrashStopsActivity(t *testing.T) {
	c := newCluster(t, []market.Role{market.Seller, market.Seller}, activityOptions())
	ctx := context.Background()

	require.NoError(t, c.peers[0].StartElection(ctx, 1))
	c.waitTraders(t, []int32{1})
	startAll(t, c)

	require.Eventually(t, func() bool {
		qty, _ := c.store.Lookup(ctx, market.Fish)
		return qty > 0
	}, waitFor, tick)

	c.peers[0].Crash()
	time.Sleep(50 * time.Millisecond)
	before, _ := c.store.Lookup(ctx, market.Fish)
	time.Sleep(100 * time.Millisecond)
	after, _ := c.store.Lookup(ctx, market.Fish)
	assert.Equal(t, before, after, "crashed seller kept selling")
}
