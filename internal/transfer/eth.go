package transfer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/feral-file/ff-distributor/internal/adapter"
	"github.com/feral-file/ff-distributor/internal/domain"
)

const nativeTransferGasLimit = 21000

// erc20 function selectors, first 4 bytes of the keccak256 method signature
var (
	erc20TransferSelector  = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
	erc20BalanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
)

// EthMover moves value out of an Ethereum custody account it holds the key for
type EthMover struct {
	client  adapter.EthClient
	key     *ecdsa.PrivateKey
	custody common.Address
	chainID *big.Int
}

// NewEthMover creates a mover from a hex-encoded custody private key.
// The custody address is derived from the key.
func NewEthMover(ctx context.Context, client adapter.EthClient, hexKey string) (*EthMover, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse custody key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	return &EthMover{
		client:  client,
		key:     key,
		custody: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// CustodyAddress returns the address derived from the custody key
func (m *EthMover) CustodyAddress() common.Address {
	return m.custody
}

// CustodyBalance returns the custody account's balance of asset
func (m *EthMover) CustodyBalance(ctx context.Context, asset common.Address) (*big.Int, error) {
	if domain.IsNativeAsset(asset) {
		balance, err := m.client.BalanceAt(ctx, m.custody, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get native balance: %w", err)
		}
		return balance, nil
	}

	data := make([]byte, 0, 36)
	data = append(data, erc20BalanceOfSelector...)
	data = append(data, common.LeftPadBytes(m.custody.Bytes(), 32)...)

	out, err := m.client.CallContract(ctx, ethereum.CallMsg{
		To:   &asset,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	if len(out) < 32 {
		return nil, fmt.Errorf("unexpected balanceOf return length %d", len(out))
	}

	return new(big.Int).SetBytes(out[:32]), nil
}

// Transfer sends amount of asset from the custody account to the recipient
func (m *EthMover) Transfer(ctx context.Context, asset common.Address, to common.Address, amount *big.Int) error {
	nonce, err := m.client.PendingNonceAt(ctx, m.custody)
	if err != nil {
		return fmt.Errorf("failed to get custody nonce: %w", err)
	}

	gasPrice, err := m.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %w", err)
	}

	var tx *types.Transaction
	if domain.IsNativeAsset(asset) {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      nativeTransferGasLimit,
			To:       &to,
			Value:    amount,
		})
	} else {
		data := make([]byte, 0, 68)
		data = append(data, erc20TransferSelector...)
		data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
		data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)

		gas, err := m.client.EstimateGas(ctx, ethereum.CallMsg{
			From: m.custody,
			To:   &asset,
			Data: data,
		})
		if err != nil {
			return fmt.Errorf("failed to estimate transfer gas: %w", err)
		}

		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       &asset,
			Data:     data,
		})
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(m.chainID), m.key)
	if err != nil {
		return fmt.Errorf("failed to sign transfer: %w", err)
	}

	if err := m.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("failed to send transfer: %w", err)
	}

	return nil
}
