package transfer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Mover moves settlement value out of the custody account
type Mover interface {
	// Transfer sends amount of asset from custody to the recipient.
	// The zero asset address means the chain's native asset.
	Transfer(ctx context.Context, asset common.Address, to common.Address, amount *big.Int) error

	// CustodyBalance returns the custody account's balance of asset
	CustodyBalance(ctx context.Context, asset common.Address) (*big.Int, error)

	// CustodyAddress returns the custody account address
	CustodyAddress() common.Address
}
