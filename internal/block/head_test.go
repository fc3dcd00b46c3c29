package block_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-distributor/internal/block"
	"github.com/feral-file/ff-distributor/internal/logger"
)

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

type fakeFetcher struct {
	block uint64
	err   error
	calls int
}

func (f *fakeFetcher) FetchLatestBlock(_ context.Context) (uint64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.block, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time                  { return c.now }
func (c *fakeClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }

func newTestProvider(fetcher *fakeFetcher, clock *fakeClock) block.HeadProvider {
	return block.NewHeadProvider(fetcher, block.Config{
		TTL:         10 * time.Second,
		StaleWindow: 2 * time.Minute,
	}, clock)
}

func TestHeadProviderFirstFetch(t *testing.T) {
	fetcher := &fakeFetcher{block: 1000}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	provider := newTestProvider(fetcher, clock)

	blockNum, err := provider.LatestBlock(context.Background())

	require.NoError(t, err)
	assert.Equal(t, uint64(1000), blockNum)
	assert.Equal(t, 1, fetcher.calls)
}

func TestHeadProviderUsesCacheWithinTTL(t *testing.T) {
	fetcher := &fakeFetcher{block: 1000}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	provider := newTestProvider(fetcher, clock)

	_, err := provider.LatestBlock(context.Background())
	require.NoError(t, err)

	// Advance inside the TTL; the fetcher must not be hit again even though
	// the chain moved
	fetcher.block = 1005
	clock.now = clock.now.Add(5 * time.Second)

	blockNum, err := provider.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), blockNum)
	assert.Equal(t, 1, fetcher.calls)
}

func TestHeadProviderRefetchesAfterTTL(t *testing.T) {
	fetcher := &fakeFetcher{block: 1000}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	provider := newTestProvider(fetcher, clock)

	_, err := provider.LatestBlock(context.Background())
	require.NoError(t, err)

	fetcher.block = 1010
	clock.now = clock.now.Add(11 * time.Second)

	blockNum, err := provider.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1010), blockNum)
	assert.Equal(t, 2, fetcher.calls)
}

func TestHeadProviderStaleFallback(t *testing.T) {
	fetcher := &fakeFetcher{block: 1000}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	provider := newTestProvider(fetcher, clock)

	_, err := provider.LatestBlock(context.Background())
	require.NoError(t, err)

	// Fetching fails after the TTL but inside the stale window
	fetcher.err = errors.New("rpc unavailable")
	clock.now = clock.now.Add(30 * time.Second)

	blockNum, err := provider.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), blockNum)
}

func TestHeadProviderStaleWindowExpired(t *testing.T) {
	fetcher := &fakeFetcher{block: 1000}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	provider := newTestProvider(fetcher, clock)

	_, err := provider.LatestBlock(context.Background())
	require.NoError(t, err)

	fetcher.err = errors.New("rpc unavailable")
	clock.now = clock.now.Add(3 * time.Minute)

	_, err = provider.LatestBlock(context.Background())
	assert.Error(t, err)
}

func TestHeadProviderFetchErrorWithoutCache(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("rpc unavailable")}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	provider := newTestProvider(fetcher, clock)

	_, err := provider.LatestBlock(context.Background())
	assert.Error(t, err)
}
