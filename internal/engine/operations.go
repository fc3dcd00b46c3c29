package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-distributor/internal/domain"
	"github.com/feral-file/ff-distributor/internal/logger"
	"github.com/feral-file/ff-distributor/internal/store"
	"github.com/feral-file/ff-distributor/internal/store/schema"
)

// CreateDistribution creates a new accounting domain bound to a historical
// reference point and a single settlement asset
func (s *Service) CreateDistribution(ctx context.Context, referencePoint uint64, settlementAsset common.Address) (*schema.Distribution, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.gate(ctx, OpCreateDistribution); err != nil {
		return nil, err
	}

	if referencePoint == 0 {
		return nil, domain.ErrInvalidReferencePoint
	}

	head, err := s.head.LatestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain head: %w", err)
	}
	if referencePoint > head {
		return nil, domain.ErrInvalidReferencePoint
	}

	eventID := s.sink.NewEventID()
	dist, err := s.store.CreateDistribution(ctx, referencePoint, settlementAsset, eventID)
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Distribution created",
		zap.Uint64("distribution_id", dist.ID),
		zap.Uint64("reference_point", referencePoint),
		zap.String("settlement_asset", dist.SettlementAsset),
	)
	s.emit(eventID, domain.EventTypeDistributionCreated, dist.ID, nil, nil)

	return dist, nil
}

// SetWeights applies a bounded batch of weight assignments atomically.
// Entries are applied in order; duplicates within one batch are
// last-write-wins.
func (s *Service) SetWeights(ctx context.Context, distributionID uint64, entries []domain.WeightEntry) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := s.gate(ctx, OpSetWeights); err != nil {
		return err
	}

	if err := s.validateBatchSize(len(entries)); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return err
		}
	}

	eventID := s.sink.NewEventID()
	if err := s.store.ApplyWeightBatch(ctx, distributionID, entries, eventID); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Weights applied",
		zap.Uint64("distribution_id", distributionID),
		zap.Int("entry_count", len(entries)),
	)
	s.emit(eventID, domain.EventTypeWeightsSet, distributionID, nil, nil)

	return nil
}

// SetWeight is the single-entry form of SetWeights
func (s *Service) SetWeight(ctx context.Context, distributionID uint64, beneficiary common.Address, weight *big.Int, method domain.PayoutMethod) error {
	return s.SetWeights(ctx, distributionID, []domain.WeightEntry{{
		Beneficiary: beneficiary,
		Weight:      weight,
		Method:      method,
	}})
}

// Fund records a deposit into the distribution's funding ledger. The custody
// account must already hold enough of the settlement asset to cover all
// undisbursed obligations plus the new deposit.
func (s *Service) Fund(ctx context.Context, distributionID uint64, amount *big.Int) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := s.gate(ctx, OpFund); err != nil {
		return err
	}

	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}

	dist, err := s.store.GetDistribution(ctx, distributionID)
	if err != nil {
		return err
	}
	if dist == nil {
		return domain.ErrDistributionNotFound
	}

	asset := common.HexToAddress(dist.SettlementAsset)
	custody, err := s.mover.CustodyBalance(ctx, asset)
	if err != nil {
		return fmt.Errorf("failed to get custody balance: %w", err)
	}

	committed, ok := new(big.Int).SetString(dist.CommittedFunding, 10)
	if !ok {
		return fmt.Errorf("failed to parse committed funding %q", dist.CommittedFunding)
	}
	disbursed, ok := new(big.Int).SetString(dist.DisbursedAmount, 10)
	if !ok {
		return fmt.Errorf("failed to parse disbursed amount %q", dist.DisbursedAmount)
	}

	// The deposit must already sit in custody on top of existing obligations
	required := new(big.Int).Sub(committed, disbursed)
	required.Add(required, amount)
	if custody.Cmp(required) < 0 {
		return domain.ErrInsufficientCustody
	}

	eventID := s.sink.NewEventID()
	if err := s.store.Fund(ctx, distributionID, amount, eventID); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Distribution funded",
		zap.Uint64("distribution_id", distributionID),
		zap.String("amount", amount.String()),
	)
	s.emit(eventID, domain.EventTypeFunded, distributionID, nil, amount)

	return nil
}

// DeclareTotalAllocation fixes the payout basis for the whole settlement
// lifetime of the distribution. At most once, before any settlement.
func (s *Service) DeclareTotalAllocation(ctx context.Context, distributionID uint64, amount *big.Int) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := s.gate(ctx, OpDeclareTotalAllocation); err != nil {
		return err
	}

	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}

	eventID := s.sink.NewEventID()
	if err := s.store.DeclareTotalAllocation(ctx, distributionID, amount, eventID); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Total allocation declared",
		zap.Uint64("distribution_id", distributionID),
		zap.String("amount", amount.String()),
	)
	s.emit(eventID, domain.EventTypeAllocationDeclared, distributionID, nil, amount)

	return nil
}

// Claim settles the caller's own claim-method entitlement. Subject to the
// global allow-list gate when enabled. The settled flag, the disbursed
// increment and the transfer commit or roll back together.
func (s *Service) Claim(ctx context.Context, distributionID uint64, claimer common.Address) (*store.SettlementResult, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if s.pause.Paused() {
		return nil, domain.ErrPaused
	}

	if domain.IsZeroAddress(claimer) {
		return nil, domain.ErrZeroAddress
	}

	required, err := s.store.AllowListRequired(ctx)
	if err != nil {
		return nil, err
	}
	if required {
		listed, err := s.store.IsAllowListed(ctx, claimer)
		if err != nil {
			return nil, err
		}
		if !listed {
			return nil, domain.ErrNotAllowListed
		}
	}

	eventID := s.sink.NewEventID()
	result, err := s.store.SettleClaim(ctx, distributionID, claimer, eventID, s.moverTransfer())
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Claim settled",
		zap.Uint64("distribution_id", distributionID),
		zap.String("beneficiary", claimer.Hex()),
		zap.String("amount", result.Amount.String()),
	)
	s.emit(eventID, domain.EventTypeClaimSettled, distributionID, &claimer, result.Amount)

	return result, nil
}

// SettleOutcome reports what happened to one beneficiary inside a settlement
// batch. Skipped entries carry the gate failure that excluded them.
type SettleOutcome struct {
	Beneficiary common.Address `json:"beneficiary"`
	Amount      *big.Int       `json:"amount,omitempty"`
	Skipped     bool           `json:"skipped"`
	Reason      string         `json:"reason,omitempty"`
}

// BatchAutoSettle pushes payouts to a bounded list of automatic-method
// beneficiaries. Each beneficiary settles as its own atomic unit; entries
// failing a gate are skipped without aborting the rest of the batch.
func (s *Service) BatchAutoSettle(ctx context.Context, distributionID uint64, beneficiaries []common.Address) ([]SettleOutcome, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.gate(ctx, OpBatchAutoSettle); err != nil {
		return nil, err
	}

	if err := s.validateBatchSize(len(beneficiaries)); err != nil {
		return nil, err
	}
	for _, beneficiary := range beneficiaries {
		if domain.IsZeroAddress(beneficiary) {
			return nil, domain.ErrZeroAddress
		}
	}

	dist, err := s.store.GetDistribution(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	if dist == nil {
		return nil, domain.ErrDistributionNotFound
	}

	outcomes := make([]SettleOutcome, 0, len(beneficiaries))
	for _, beneficiary := range beneficiaries {
		eventID := s.sink.NewEventID()
		result, err := s.store.SettleAutomatic(ctx, distributionID, beneficiary, eventID, s.moverTransfer())
		if err != nil {
			if IsSettlementGateError(err) {
				logger.WarnCtx(ctx, "Automatic settlement skipped",
					zap.Uint64("distribution_id", distributionID),
					zap.String("beneficiary", beneficiary.Hex()),
					zap.Error(err),
				)
			} else {
				// Transfer or storage failure: this beneficiary's unit rolled
				// back on its own, the rest of the batch proceeds
				logger.ErrorCtx(ctx, err,
					zap.Uint64("distribution_id", distributionID),
					zap.String("beneficiary", beneficiary.Hex()),
				)
			}
			outcomes = append(outcomes, SettleOutcome{
				Beneficiary: beneficiary,
				Skipped:     true,
				Reason:      err.Error(),
			})
			continue
		}

		s.emit(eventID, domain.EventTypeAutomaticSettled, distributionID, &beneficiary, result.Amount)
		outcomes = append(outcomes, SettleOutcome{
			Beneficiary: beneficiary,
			Amount:      result.Amount,
		})
	}

	return outcomes, nil
}

// MarkOffLedgerSettled acknowledges a payout made outside the system's
// custody. Bookkeeping only, no value moves.
func (s *Service) MarkOffLedgerSettled(ctx context.Context, distributionID uint64, beneficiary common.Address) (*store.SettlementResult, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.gate(ctx, OpMarkOffLedgerSettled); err != nil {
		return nil, err
	}

	if domain.IsZeroAddress(beneficiary) {
		return nil, domain.ErrZeroAddress
	}

	return s.markOffLedgerSettled(ctx, distributionID, beneficiary)
}

// BatchMarkOffLedgerSettled is the batch form of MarkOffLedgerSettled.
// Entries failing a gate are skipped.
func (s *Service) BatchMarkOffLedgerSettled(ctx context.Context, distributionID uint64, beneficiaries []common.Address) ([]SettleOutcome, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.gate(ctx, OpMarkOffLedgerSettled); err != nil {
		return nil, err
	}

	if err := s.validateBatchSize(len(beneficiaries)); err != nil {
		return nil, err
	}
	for _, beneficiary := range beneficiaries {
		if domain.IsZeroAddress(beneficiary) {
			return nil, domain.ErrZeroAddress
		}
	}

	dist, err := s.store.GetDistribution(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	if dist == nil {
		return nil, domain.ErrDistributionNotFound
	}

	outcomes := make([]SettleOutcome, 0, len(beneficiaries))
	for _, beneficiary := range beneficiaries {
		result, err := s.markOffLedgerSettled(ctx, distributionID, beneficiary)
		if err != nil {
			outcomes = append(outcomes, SettleOutcome{
				Beneficiary: beneficiary,
				Skipped:     true,
				Reason:      err.Error(),
			})
			continue
		}
		outcomes = append(outcomes, SettleOutcome{
			Beneficiary: beneficiary,
			Amount:      result.Amount,
		})
	}

	return outcomes, nil
}

// markOffLedgerSettled is the shared body of the single and batch forms.
// The caller holds the guard and has passed the gates.
func (s *Service) markOffLedgerSettled(ctx context.Context, distributionID uint64, beneficiary common.Address) (*store.SettlementResult, error) {
	eventID := s.sink.NewEventID()
	result, err := s.store.SettleOffLedger(ctx, distributionID, beneficiary, eventID)
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Off-ledger settlement acknowledged",
		zap.Uint64("distribution_id", distributionID),
		zap.String("beneficiary", beneficiary.Hex()),
		zap.String("amount", result.Amount.String()),
	)
	s.emit(eventID, domain.EventTypeOffLedgerSettled, distributionID, &beneficiary, result.Amount)

	return result, nil
}

// AddToAllowList adds addresses to the global allow list
func (s *Service) AddToAllowList(ctx context.Context, addresses []common.Address) error {
	return s.editAllowList(ctx, addresses, s.store.AddToAllowList)
}

// RemoveFromAllowList removes addresses from the global allow list
func (s *Service) RemoveFromAllowList(ctx context.Context, addresses []common.Address) error {
	return s.editAllowList(ctx, addresses, s.store.RemoveFromAllowList)
}

func (s *Service) editAllowList(ctx context.Context, addresses []common.Address, apply func(context.Context, []common.Address) error) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := s.gate(ctx, OpEditAllowList); err != nil {
		return err
	}

	if err := s.validateBatchSize(len(addresses)); err != nil {
		return err
	}
	for _, address := range addresses {
		if domain.IsZeroAddress(address) {
			return domain.ErrZeroAddress
		}
	}

	if err := apply(ctx, addresses); err != nil {
		return err
	}

	s.emit(s.sink.NewEventID(), domain.EventTypeAllowListUpdated, 0, nil, nil)
	return nil
}

// SetAllowListRequired flips the global allow-list gate for claims
func (s *Service) SetAllowListRequired(ctx context.Context, required bool) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := s.gate(ctx, OpSetAllowListRequired); err != nil {
		return err
	}

	if err := s.store.SetAllowListRequired(ctx, required); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Allow-list requirement updated", zap.Bool("required", required))
	s.emit(s.sink.NewEventID(), domain.EventTypeAllowListUpdated, 0, nil, nil)
	return nil
}

// EmergencySweep moves value out of custody without touching any ledger
// fields. A trust-based escape hatch, deliberately outside the accounting
// invariants.
func (s *Service) EmergencySweep(ctx context.Context, asset common.Address, recipient common.Address, amount *big.Int) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := s.authorizer.Authorize(ctx, OpEmergencySweep); err != nil {
		return err
	}

	if domain.IsZeroAddress(recipient) {
		return domain.ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}

	if err := s.mover.Transfer(ctx, asset, recipient, amount); err != nil {
		return fmt.Errorf("failed to sweep custody: %w", err)
	}

	logger.WarnCtx(ctx, "Emergency sweep executed",
		zap.String("asset", asset.Hex()),
		zap.String("recipient", recipient.Hex()),
		zap.String("amount", amount.String()),
	)
	s.emit(s.sink.NewEventID(), domain.EventTypeEmergencySweep, 0, &recipient, amount)
	return nil
}

// Pause stops all mutating operations. Deliberately not behind the
// single-flight guard so it works while an operation is running.
func (s *Service) Pause(ctx context.Context) error {
	if err := s.authorizer.Authorize(ctx, OpPause); err != nil {
		return err
	}
	s.pause.Pause()
	logger.WarnCtx(ctx, "Engine paused")
	return nil
}

// Resume re-enables mutating operations
func (s *Service) Resume(ctx context.Context) error {
	if err := s.authorizer.Authorize(ctx, OpPause); err != nil {
		return err
	}
	s.pause.Resume()
	logger.InfoCtx(ctx, "Engine resumed")
	return nil
}

// IsSettlementGateError reports whether err is a per-beneficiary gate failure
// that batch settlement skips rather than surfaces
func IsSettlementGateError(err error) bool {
	return errors.Is(err, domain.ErrBeneficiaryNotFound) ||
		errors.Is(err, domain.ErrWrongMethod) ||
		errors.Is(err, domain.ErrAlreadySettled) ||
		errors.Is(err, domain.ErrNothingToSettle) ||
		errors.Is(err, domain.ErrInsufficientCustody)
}
