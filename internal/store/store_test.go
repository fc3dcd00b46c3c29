package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-distributor/internal/domain"
)

// StoreTestSuite provides the interface for running store tests against different implementations
type StoreTestSuite struct {
	Store Store
	// InitDB should be called before each test to initialize the database
	InitDB func(t *testing.T) Store
	// CleanupDB should be called after each test to clean up the database
	CleanupDB func(t *testing.T)
}

// =============================================================================
// Test Data Builders
// =============================================================================

var eventIDSeq atomic.Uint64

// newEventID returns a unique event ID for journal entries
func newEventID() string {
	return fmt.Sprintf("01TESTEVENT%016d", eventIDSeq.Add(1))
}

// testAddr builds a deterministic test address from an index
func testAddr(i int) common.Address {
	return common.HexToAddress(fmt.Sprintf("0x%040x", i+1))
}

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "invalid big.Int literal %q", s)
	return v
}

// buildWeightEntry creates a weight assignment for tests
func buildWeightEntry(i int, weight string, method domain.PayoutMethod) domain.WeightEntry {
	w, _ := new(big.Int).SetString(weight, 10)
	return domain.WeightEntry{
		Beneficiary: testAddr(i),
		Weight:      w,
		Method:      method,
	}
}

// createTestDistribution creates a distribution and returns its ID
func createTestDistribution(t *testing.T, store Store) uint64 {
	t.Helper()
	dist, err := store.CreateDistribution(context.Background(), 1000, common.Address{}, newEventID())
	require.NoError(t, err)
	require.NotNil(t, dist)
	return dist.ID
}

// noTransfer is a TransferFunc that always succeeds
func noTransfer(_ context.Context, _ common.Address, _ common.Address, _ *big.Int) error {
	return nil
}

// =============================================================================
// Test: CreateDistribution
// =============================================================================

func testCreateDistribution(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("creates distribution with zeroed aggregates", func(t *testing.T) {
		asset := common.HexToAddress("0x1111111111111111111111111111111111111111")
		dist, err := store.CreateDistribution(ctx, 12345, asset, newEventID())
		require.NoError(t, err)
		require.NotNil(t, dist)

		assert.NotZero(t, dist.ID)
		assert.Equal(t, uint64(12345), dist.ReferencePoint)
		assert.Equal(t, asset.Hex(), dist.SettlementAsset)
		assert.Equal(t, "0", dist.TotalWeight)
		assert.Equal(t, "0", dist.CommittedFunding)
		assert.Equal(t, "0", dist.DisbursedAmount)
		assert.Nil(t, dist.DeclaredTotalAllocation)
		assert.Equal(t, uint64(0), dist.BeneficiaryCount)
	})

	t.Run("assigns strictly increasing IDs", func(t *testing.T) {
		first, err := store.CreateDistribution(ctx, 1, common.Address{}, newEventID())
		require.NoError(t, err)
		second, err := store.CreateDistribution(ctx, 2, common.Address{}, newEventID())
		require.NoError(t, err)

		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("journals a creation event", func(t *testing.T) {
		dist, err := store.CreateDistribution(ctx, 7, common.Address{}, newEventID())
		require.NoError(t, err)

		events, err := store.ListLedgerEvents(ctx, dist.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, string(domain.EventTypeDistributionCreated), events[0].EventType)
	})

	t.Run("get returns nil for unknown distribution", func(t *testing.T) {
		dist, err := store.GetDistribution(ctx, 999999999)
		require.NoError(t, err)
		assert.Nil(t, dist)
	})
}

// =============================================================================
// Test: ApplyWeightBatch
// =============================================================================

func testApplyWeightBatch(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("adds beneficiaries and maintains aggregates", func(t *testing.T) {
		distID := createTestDistribution(t, store)

		entries := []domain.WeightEntry{
			buildWeightEntry(0, "100", domain.MethodClaim),
			buildWeightEntry(1, "200", domain.MethodAutomatic),
			buildWeightEntry(2, "300", domain.MethodOffLedger),
		}
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, entries, newEventID()))

		dist, err := store.GetDistribution(ctx, distID)
		require.NoError(t, err)
		assert.Equal(t, "600", dist.TotalWeight)
		assert.Equal(t, "100", dist.WeightClaim)
		assert.Equal(t, "200", dist.WeightAutomatic)
		assert.Equal(t, "300", dist.WeightOffLedger)
		assert.Equal(t, uint64(3), dist.BeneficiaryCount)
	})

	t.Run("reassignment moves weight between method buckets", func(t *testing.T) {
		distID := createTestDistribution(t, store)

		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "100", domain.MethodClaim),
		}, newEventID()))
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "250", domain.MethodAutomatic),
		}, newEventID()))

		dist, err := store.GetDistribution(ctx, distID)
		require.NoError(t, err)
		assert.Equal(t, "250", dist.TotalWeight)
		assert.Equal(t, "0", dist.WeightClaim)
		assert.Equal(t, "250", dist.WeightAutomatic)
		assert.Equal(t, uint64(1), dist.BeneficiaryCount)
	})

	t.Run("zero weight removes beneficiary from aggregates", func(t *testing.T) {
		distID := createTestDistribution(t, store)

		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "100", domain.MethodClaim),
			buildWeightEntry(1, "50", domain.MethodClaim),
		}, newEventID()))
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "0", domain.MethodUnset),
		}, newEventID()))

		dist, err := store.GetDistribution(ctx, distID)
		require.NoError(t, err)
		assert.Equal(t, "50", dist.TotalWeight)
		assert.Equal(t, "50", dist.WeightClaim)
		assert.Equal(t, uint64(1), dist.BeneficiaryCount)

		ben, err := store.GetBeneficiary(ctx, distID, testAddr(0))
		require.NoError(t, err)
		require.NotNil(t, ben)
		assert.Equal(t, "0", ben.Weight)
		assert.Equal(t, string(domain.MethodUnset), ben.Method)
	})

	t.Run("re-zeroing an absent beneficiary is a no-op", func(t *testing.T) {
		distID := createTestDistribution(t, store)

		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(5, "0", domain.MethodUnset),
		}, newEventID()))

		dist, err := store.GetDistribution(ctx, distID)
		require.NoError(t, err)
		assert.Equal(t, "0", dist.TotalWeight)
		assert.Equal(t, uint64(0), dist.BeneficiaryCount)

		ben, err := store.GetBeneficiary(ctx, distID, testAddr(5))
		require.NoError(t, err)
		assert.Nil(t, ben)
	})

	t.Run("duplicate addresses in one batch are last-write-wins", func(t *testing.T) {
		distID := createTestDistribution(t, store)

		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "100", domain.MethodClaim),
			buildWeightEntry(0, "40", domain.MethodAutomatic),
		}, newEventID()))

		dist, err := store.GetDistribution(ctx, distID)
		require.NoError(t, err)
		assert.Equal(t, "40", dist.TotalWeight)
		assert.Equal(t, "0", dist.WeightClaim)
		assert.Equal(t, "40", dist.WeightAutomatic)
		assert.Equal(t, uint64(1), dist.BeneficiaryCount)
	})

	t.Run("unknown distribution", func(t *testing.T) {
		err := store.ApplyWeightBatch(ctx, 999999999, []domain.WeightEntry{
			buildWeightEntry(0, "1", domain.MethodClaim),
		}, newEventID())
		assert.ErrorIs(t, err, domain.ErrDistributionNotFound)
	})

	t.Run("handles 78-digit weights", func(t *testing.T) {
		distID := createTestDistribution(t, store)
		huge := "115792089237316195423570985008687907853269984665640564039457584007913129639935"

		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, huge, domain.MethodClaim),
		}, newEventID()))

		dist, err := store.GetDistribution(ctx, distID)
		require.NoError(t, err)
		assert.Equal(t, huge, dist.TotalWeight)
	})
}

// =============================================================================
// Test: Fund
// =============================================================================

func testFund(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("accumulates committed funding", func(t *testing.T) {
		distID := createTestDistribution(t, store)

		require.NoError(t, store.Fund(ctx, distID, mustBig(t, "1000"), newEventID()))
		require.NoError(t, store.Fund(ctx, distID, mustBig(t, "500"), newEventID()))

		dist, err := store.GetDistribution(ctx, distID)
		require.NoError(t, err)
		assert.Equal(t, "1500", dist.CommittedFunding)
	})

	t.Run("journals funded events with amounts", func(t *testing.T) {
		distID := createTestDistribution(t, store)
		require.NoError(t, store.Fund(ctx, distID, mustBig(t, "777"), newEventID()))

		events, err := store.ListLedgerEvents(ctx, distID, 10, 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, string(domain.EventTypeFunded), events[1].EventType)
		require.NotNil(t, events[1].Amount)
		assert.Equal(t, "777", *events[1].Amount)
	})

	t.Run("unknown distribution", func(t *testing.T) {
		err := store.Fund(ctx, 999999999, mustBig(t, "1"), newEventID())
		assert.ErrorIs(t, err, domain.ErrDistributionNotFound)
	})
}

// =============================================================================
// Test: DeclareTotalAllocation
// =============================================================================

func testDeclareTotalAllocation(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("declares once", func(t *testing.T) {
		distID := createTestDistribution(t, store)

		require.NoError(t, store.DeclareTotalAllocation(ctx, distID, mustBig(t, "9000"), newEventID()))

		dist, err := store.GetDistribution(ctx, distID)
		require.NoError(t, err)
		require.NotNil(t, dist.DeclaredTotalAllocation)
		assert.Equal(t, "9000", *dist.DeclaredTotalAllocation)
	})

	t.Run("second declaration rejected", func(t *testing.T) {
		distID := createTestDistribution(t, store)

		require.NoError(t, store.DeclareTotalAllocation(ctx, distID, mustBig(t, "9000"), newEventID()))
		err := store.DeclareTotalAllocation(ctx, distID, mustBig(t, "8000"), newEventID())
		assert.ErrorIs(t, err, domain.ErrAllocationAlreadyDeclared)
	})

	t.Run("rejected after any settlement", func(t *testing.T) {
		distID := createTestDistribution(t, store)

		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "1", domain.MethodOffLedger),
		}, newEventID()))
		require.NoError(t, store.Fund(ctx, distID, mustBig(t, "100"), newEventID()))

		_, err := store.SettleOffLedger(ctx, distID, testAddr(0), newEventID())
		require.NoError(t, err)

		err = store.DeclareTotalAllocation(ctx, distID, mustBig(t, "9000"), newEventID())
		assert.ErrorIs(t, err, domain.ErrAllocationAfterSettlement)
	})

	t.Run("unknown distribution", func(t *testing.T) {
		err := store.DeclareTotalAllocation(ctx, 999999999, mustBig(t, "1"), newEventID())
		assert.ErrorIs(t, err, domain.ErrDistributionNotFound)
	})
}

// =============================================================================
// Test: SettleClaim
// =============================================================================

func testSettleClaim(t *testing.T, store Store) {
	ctx := context.Background()

	setup := func(t *testing.T) uint64 {
		distID := createTestDistribution(t, store)
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "1", domain.MethodClaim),
			buildWeightEntry(1, "1", domain.MethodClaim),
			buildWeightEntry(2, "1", domain.MethodAutomatic),
		}, newEventID()))
		require.NoError(t, store.Fund(ctx, distID, mustBig(t, "3000"), newEventID()))
		return distID
	}

	t.Run("pays the fixed-basis entitlement and marks settled", func(t *testing.T) {
		distID := setup(t)

		var transferredTo common.Address
		var transferredAmount *big.Int
		result, err := store.SettleClaim(ctx, distID, testAddr(0), newEventID(),
			func(_ context.Context, _ common.Address, to common.Address, amount *big.Int) error {
				transferredTo = to
				transferredAmount = amount
				return nil
			})
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, "1000", result.Amount.String())
		assert.Equal(t, testAddr(0), transferredTo)
		assert.Equal(t, "1000", transferredAmount.String())

		ben, err := store.GetBeneficiary(ctx, distID, testAddr(0))
		require.NoError(t, err)
		assert.True(t, ben.Settled)
		assert.Equal(t, "1000", ben.CachedEntitlement)

		dist, err := store.GetDistribution(ctx, distID)
		require.NoError(t, err)
		assert.Equal(t, "1000", dist.DisbursedAmount)
	})

	t.Run("entitlement unchanged by earlier settlements", func(t *testing.T) {
		distID := setup(t)

		first, err := store.SettleClaim(ctx, distID, testAddr(0), newEventID(), noTransfer)
		require.NoError(t, err)
		second, err := store.SettleClaim(ctx, distID, testAddr(1), newEventID(), noTransfer)
		require.NoError(t, err)

		assert.Equal(t, first.Amount.String(), second.Amount.String())
	})

	t.Run("double claim rejected", func(t *testing.T) {
		distID := setup(t)

		_, err := store.SettleClaim(ctx, distID, testAddr(0), newEventID(), noTransfer)
		require.NoError(t, err)
		_, err = store.SettleClaim(ctx, distID, testAddr(0), newEventID(), noTransfer)
		assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	})

	t.Run("wrong method rejected", func(t *testing.T) {
		distID := setup(t)

		_, err := store.SettleClaim(ctx, distID, testAddr(2), newEventID(), noTransfer)
		assert.ErrorIs(t, err, domain.ErrWrongMethod)
	})

	t.Run("unknown beneficiary rejected", func(t *testing.T) {
		distID := setup(t)

		_, err := store.SettleClaim(ctx, distID, testAddr(9), newEventID(), noTransfer)
		assert.ErrorIs(t, err, domain.ErrBeneficiaryNotFound)
	})

	t.Run("zero entitlement rejected", func(t *testing.T) {
		distID := createTestDistribution(t, store)
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "1", domain.MethodClaim),
		}, newEventID()))

		_, err := store.SettleClaim(ctx, distID, testAddr(0), newEventID(), noTransfer)
		assert.ErrorIs(t, err, domain.ErrNothingToSettle)
	})

	t.Run("insufficient custody rejected", func(t *testing.T) {
		distID := createTestDistribution(t, store)
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "1", domain.MethodClaim),
		}, newEventID()))
		require.NoError(t, store.Fund(ctx, distID, mustBig(t, "100"), newEventID()))
		require.NoError(t, store.DeclareTotalAllocation(ctx, distID, mustBig(t, "1000"), newEventID()))

		_, err := store.SettleClaim(ctx, distID, testAddr(0), newEventID(), noTransfer)
		assert.ErrorIs(t, err, domain.ErrInsufficientCustody)
	})

	t.Run("transfer failure leaves no trace", func(t *testing.T) {
		distID := setup(t)

		transferErr := errors.New("rpc unavailable")
		_, err := store.SettleClaim(ctx, distID, testAddr(0), newEventID(),
			func(_ context.Context, _ common.Address, _ common.Address, _ *big.Int) error {
				return transferErr
			})
		require.Error(t, err)
		assert.ErrorIs(t, err, transferErr)

		ben, err := store.GetBeneficiary(ctx, distID, testAddr(0))
		require.NoError(t, err)
		assert.False(t, ben.Settled)

		dist, err := store.GetDistribution(ctx, distID)
		require.NoError(t, err)
		assert.Equal(t, "0", dist.DisbursedAmount)

		// Retry after the failure succeeds
		result, err := store.SettleClaim(ctx, distID, testAddr(0), newEventID(), noTransfer)
		require.NoError(t, err)
		assert.Equal(t, "1000", result.Amount.String())
	})

	t.Run("declared allocation overrides committed funding as basis", func(t *testing.T) {
		distID := createTestDistribution(t, store)
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "1", domain.MethodClaim),
			buildWeightEntry(1, "1", domain.MethodClaim),
		}, newEventID()))
		require.NoError(t, store.DeclareTotalAllocation(ctx, distID, mustBig(t, "6000"), newEventID()))
		require.NoError(t, store.Fund(ctx, distID, mustBig(t, "6000"), newEventID()))

		first, err := store.SettleClaim(ctx, distID, testAddr(0), newEventID(), noTransfer)
		require.NoError(t, err)
		assert.Equal(t, "3000", first.Amount.String())

		// Basis stays 6000/2 even though remaining custody shrank
		second, err := store.SettleClaim(ctx, distID, testAddr(1), newEventID(), noTransfer)
		require.NoError(t, err)
		assert.Equal(t, "3000", second.Amount.String())
	})
}

// =============================================================================
// Test: SettleAutomatic
// =============================================================================

func testSettleAutomatic(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("settles an automatic beneficiary", func(t *testing.T) {
		distID := createTestDistribution(t, store)
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "2", domain.MethodAutomatic),
			buildWeightEntry(1, "2", domain.MethodClaim),
		}, newEventID()))
		require.NoError(t, store.Fund(ctx, distID, mustBig(t, "4000"), newEventID()))

		result, err := store.SettleAutomatic(ctx, distID, testAddr(0), newEventID(), noTransfer)
		require.NoError(t, err)
		assert.Equal(t, "2000", result.Amount.String())

		ben, err := store.GetBeneficiary(ctx, distID, testAddr(0))
		require.NoError(t, err)
		assert.True(t, ben.Settled)
	})

	t.Run("claim beneficiary rejected", func(t *testing.T) {
		distID := createTestDistribution(t, store)
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "1", domain.MethodClaim),
		}, newEventID()))
		require.NoError(t, store.Fund(ctx, distID, mustBig(t, "100"), newEventID()))

		_, err := store.SettleAutomatic(ctx, distID, testAddr(0), newEventID(), noTransfer)
		assert.ErrorIs(t, err, domain.ErrWrongMethod)
	})
}

// =============================================================================
// Test: SettleOffLedger
// =============================================================================

func testSettleOffLedger(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("marks settled without touching funding", func(t *testing.T) {
		distID := createTestDistribution(t, store)
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "1", domain.MethodOffLedger),
			buildWeightEntry(1, "1", domain.MethodClaim),
		}, newEventID()))
		require.NoError(t, store.Fund(ctx, distID, mustBig(t, "2000"), newEventID()))

		result, err := store.SettleOffLedger(ctx, distID, testAddr(0), newEventID())
		require.NoError(t, err)
		assert.Equal(t, "1000", result.Amount.String())

		dist, err := store.GetDistribution(ctx, distID)
		require.NoError(t, err)
		assert.Equal(t, "0", dist.DisbursedAmount)
		assert.Equal(t, "2000", dist.CommittedFunding)

		ben, err := store.GetBeneficiary(ctx, distID, testAddr(0))
		require.NoError(t, err)
		assert.True(t, ben.Settled)
		assert.Equal(t, "1000", ben.CachedEntitlement)
	})

	t.Run("works with zero custody", func(t *testing.T) {
		distID := createTestDistribution(t, store)
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "1", domain.MethodOffLedger),
		}, newEventID()))
		require.NoError(t, store.DeclareTotalAllocation(ctx, distID, mustBig(t, "500"), newEventID()))

		// No funding at all; off-ledger settlement still records the entitlement
		result, err := store.SettleOffLedger(ctx, distID, testAddr(0), newEventID())
		require.NoError(t, err)
		assert.Equal(t, "500", result.Amount.String())
	})

	t.Run("double settlement rejected", func(t *testing.T) {
		distID := createTestDistribution(t, store)
		require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
			buildWeightEntry(0, "1", domain.MethodOffLedger),
		}, newEventID()))
		require.NoError(t, store.Fund(ctx, distID, mustBig(t, "100"), newEventID()))

		_, err := store.SettleOffLedger(ctx, distID, testAddr(0), newEventID())
		require.NoError(t, err)
		_, err = store.SettleOffLedger(ctx, distID, testAddr(0), newEventID())
		assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	})
}

// =============================================================================
// Test: AllowList
// =============================================================================

func testAllowList(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("add, check, remove", func(t *testing.T) {
		addrs := []common.Address{testAddr(0), testAddr(1)}
		require.NoError(t, store.AddToAllowList(ctx, addrs))

		listed, err := store.IsAllowListed(ctx, testAddr(0))
		require.NoError(t, err)
		assert.True(t, listed)

		listed, err = store.IsAllowListed(ctx, testAddr(2))
		require.NoError(t, err)
		assert.False(t, listed)

		require.NoError(t, store.RemoveFromAllowList(ctx, []common.Address{testAddr(0)}))
		listed, err = store.IsAllowListed(ctx, testAddr(0))
		require.NoError(t, err)
		assert.False(t, listed)

		listed, err = store.IsAllowListed(ctx, testAddr(1))
		require.NoError(t, err)
		assert.True(t, listed)
	})

	t.Run("re-adding is idempotent", func(t *testing.T) {
		require.NoError(t, store.AddToAllowList(ctx, []common.Address{testAddr(3)}))
		require.NoError(t, store.AddToAllowList(ctx, []common.Address{testAddr(3)}))

		listed, err := store.IsAllowListed(ctx, testAddr(3))
		require.NoError(t, err)
		assert.True(t, listed)
	})

	t.Run("required flag round-trips", func(t *testing.T) {
		required, err := store.AllowListRequired(ctx)
		require.NoError(t, err)
		assert.False(t, required)

		require.NoError(t, store.SetAllowListRequired(ctx, true))
		required, err = store.AllowListRequired(ctx)
		require.NoError(t, err)
		assert.True(t, required)

		require.NoError(t, store.SetAllowListRequired(ctx, false))
		required, err = store.AllowListRequired(ctx)
		require.NoError(t, err)
		assert.False(t, required)
	})
}

// =============================================================================
// Test: Listings
// =============================================================================

func testListBeneficiaries(t *testing.T, store Store) {
	ctx := context.Background()
	distID := createTestDistribution(t, store)

	require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
		buildWeightEntry(0, "10", domain.MethodClaim),
		buildWeightEntry(1, "20", domain.MethodAutomatic),
		buildWeightEntry(2, "30", domain.MethodOffLedger),
	}, newEventID()))
	require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
		buildWeightEntry(1, "0", domain.MethodUnset),
	}, newEventID()))

	t.Run("excludes removed beneficiaries", func(t *testing.T) {
		bens, err := store.ListBeneficiaries(ctx, distID, 10, 0)
		require.NoError(t, err)
		require.Len(t, bens, 2)
		for _, ben := range bens {
			assert.NotEqual(t, testAddr(1).Hex(), ben.Address)
		}
	})

	t.Run("paginates", func(t *testing.T) {
		page, err := store.ListBeneficiaries(ctx, distID, 1, 1)
		require.NoError(t, err)
		assert.Len(t, page, 1)

		empty, err := store.ListBeneficiaries(ctx, distID, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func testListLedgerEvents(t *testing.T, store Store) {
	ctx := context.Background()
	distID := createTestDistribution(t, store)

	require.NoError(t, store.Fund(ctx, distID, mustBig(t, "100"), newEventID()))
	require.NoError(t, store.ApplyWeightBatch(ctx, distID, []domain.WeightEntry{
		buildWeightEntry(0, "1", domain.MethodOffLedger),
	}, newEventID()))
	_, err := store.SettleOffLedger(ctx, distID, testAddr(0), newEventID())
	require.NoError(t, err)

	t.Run("returns the journal in order", func(t *testing.T) {
		events, err := store.ListLedgerEvents(ctx, distID, 10, 0)
		require.NoError(t, err)
		require.Len(t, events, 4)
		assert.Equal(t, string(domain.EventTypeDistributionCreated), events[0].EventType)
		assert.Equal(t, string(domain.EventTypeFunded), events[1].EventType)
		assert.Equal(t, string(domain.EventTypeWeightsSet), events[2].EventType)
		assert.Equal(t, string(domain.EventTypeOffLedgerSettled), events[3].EventType)

		require.NotNil(t, events[3].Beneficiary)
		assert.Equal(t, testAddr(0).Hex(), *events[3].Beneficiary)
	})

	t.Run("paginates", func(t *testing.T) {
		page, err := store.ListLedgerEvents(ctx, distID, 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, string(domain.EventTypeWeightsSet), page[0].EventType)
	})
}

// =============================================================================
// Suite Runner
// =============================================================================

// RunStoreTests runs all store tests using the provided database initialization functions
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"CreateDistribution", testCreateDistribution},
		{"ApplyWeightBatch", testApplyWeightBatch},
		{"Fund", testFund},
		{"DeclareTotalAllocation", testDeclareTotalAllocation},
		{"SettleClaim", testSettleClaim},
		{"SettleAutomatic", testSettleAutomatic},
		{"SettleOffLedger", testSettleOffLedger},
		{"AllowList", testAllowList},
		{"ListBeneficiaries", testListBeneficiaries},
		{"ListLedgerEvents", testListLedgerEvents},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}

// TestMemoryStore runs the store suite against the in-memory implementation
func TestMemoryStore(t *testing.T) {
	RunStoreTests(t,
		func(t *testing.T) Store { return NewMemoryStore() },
		func(t *testing.T) {},
	)
}
