package block

import (
	"context"
	"fmt"

	"github.com/feral-file/ff-distributor/internal/adapter"
)

// ethereumFetcher implements Fetcher over an Ethereum RPC client
type ethereumFetcher struct {
	client adapter.EthClient
}

// NewEthereumFetcher creates a Fetcher backed by an Ethereum node
func NewEthereumFetcher(client adapter.EthClient) Fetcher {
	return &ethereumFetcher{client: client}
}

// FetchLatestBlock fetches the latest block number from Ethereum
func (f *ethereumFetcher) FetchLatestBlock(ctx context.Context) (uint64, error) {
	header, err := f.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}
