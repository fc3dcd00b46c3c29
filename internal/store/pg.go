package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-distributor/internal/domain"
	"github.com/feral-file/ff-distributor/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// AutoMigrate creates or updates the ledger tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Distribution{},
		&schema.Beneficiary{},
		&schema.AllowListEntry{},
		&schema.Setting{},
		&schema.LedgerEvent{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// If any of the pool settings are 0, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// columnAmount parses a numeric(78,0) column value
func columnAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse numeric column value %q", s)
	}
	return v, nil
}

// distributionAggregates holds a distribution's numeric columns decoded for arithmetic
type distributionAggregates struct {
	totalWeight      *big.Int
	weightByMethod   map[domain.PayoutMethod]*big.Int
	committedFunding *big.Int
	declaredTotal    *big.Int // nil when not declared
	disbursedAmount  *big.Int
}

func decodeAggregates(dist *schema.Distribution) (*distributionAggregates, error) {
	totalWeight, err := columnAmount(dist.TotalWeight)
	if err != nil {
		return nil, err
	}
	weightClaim, err := columnAmount(dist.WeightClaim)
	if err != nil {
		return nil, err
	}
	weightAutomatic, err := columnAmount(dist.WeightAutomatic)
	if err != nil {
		return nil, err
	}
	weightOffLedger, err := columnAmount(dist.WeightOffLedger)
	if err != nil {
		return nil, err
	}
	committed, err := columnAmount(dist.CommittedFunding)
	if err != nil {
		return nil, err
	}
	disbursed, err := columnAmount(dist.DisbursedAmount)
	if err != nil {
		return nil, err
	}
	var declared *big.Int
	if dist.DeclaredTotalAllocation != nil {
		declared, err = columnAmount(*dist.DeclaredTotalAllocation)
		if err != nil {
			return nil, err
		}
	}

	return &distributionAggregates{
		totalWeight: totalWeight,
		weightByMethod: map[domain.PayoutMethod]*big.Int{
			domain.MethodClaim:     weightClaim,
			domain.MethodAutomatic: weightAutomatic,
			domain.MethodOffLedger: weightOffLedger,
		},
		committedFunding: committed,
		declaredTotal:    declared,
		disbursedAmount:  disbursed,
	}, nil
}

func (a *distributionAggregates) writeBack(dist *schema.Distribution) {
	dist.TotalWeight = a.totalWeight.String()
	dist.WeightClaim = a.weightByMethod[domain.MethodClaim].String()
	dist.WeightAutomatic = a.weightByMethod[domain.MethodAutomatic].String()
	dist.WeightOffLedger = a.weightByMethod[domain.MethodOffLedger].String()
	dist.CommittedFunding = a.committedFunding.String()
	dist.DisbursedAmount = a.disbursedAmount.String()
	if a.declaredTotal != nil {
		declared := a.declaredTotal.String()
		dist.DeclaredTotalAllocation = &declared
	}
}

// lockDistribution loads a distribution row under FOR UPDATE inside tx
func lockDistribution(tx *gorm.DB, distributionID uint64) (*schema.Distribution, error) {
	var dist schema.Distribution
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", distributionID).
		First(&dist).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDistributionNotFound
		}
		return nil, fmt.Errorf("failed to lock distribution: %w", err)
	}
	return &dist, nil
}

// appendLedgerEvent writes one journal entry inside tx
func appendLedgerEvent(tx *gorm.DB, eventID string, distributionID uint64, eventType domain.EventType, beneficiary *string, amount *big.Int, meta any) error {
	event := schema.LedgerEvent{
		EventID:        eventID,
		DistributionID: distributionID,
		EventType:      string(eventType),
		Beneficiary:    beneficiary,
	}
	if amount != nil {
		s := amount.String()
		event.Amount = &s
	}
	if meta != nil {
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal ledger event meta: %w", err)
		}
		event.Meta = metaJSON
	}

	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("failed to create ledger event: %w", err)
	}
	return nil
}

// CreateDistribution creates a new distribution with a monotonically assigned ID
func (s *pgStore) CreateDistribution(ctx context.Context, referencePoint uint64, settlementAsset common.Address, eventID string) (*schema.Distribution, error) {
	dist := schema.Distribution{
		ReferencePoint:   referencePoint,
		SettlementAsset:  settlementAsset.Hex(),
		TotalWeight:      "0",
		WeightClaim:      "0",
		WeightAutomatic:  "0",
		WeightOffLedger:  "0",
		CommittedFunding: "0",
		DisbursedAmount:  "0",
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&dist).Error; err != nil {
			return fmt.Errorf("failed to create distribution: %w", err)
		}

		meta := map[string]any{
			"reference_point":  referencePoint,
			"settlement_asset": dist.SettlementAsset,
		}
		return appendLedgerEvent(tx, eventID, dist.ID, domain.EventTypeDistributionCreated, nil, nil, meta)
	})
	if err != nil {
		return nil, err
	}

	return &dist, nil
}

// GetDistribution retrieves a distribution by ID
func (s *pgStore) GetDistribution(ctx context.Context, distributionID uint64) (*schema.Distribution, error) {
	var dist schema.Distribution
	err := s.db.WithContext(ctx).Where("id = ?", distributionID).First(&dist).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get distribution: %w", err)
	}
	return &dist, nil
}

// GetBeneficiary retrieves a beneficiary record
func (s *pgStore) GetBeneficiary(ctx context.Context, distributionID uint64, address common.Address) (*schema.Beneficiary, error) {
	var ben schema.Beneficiary
	err := s.db.WithContext(ctx).
		Where("distribution_id = ? AND address = ?", distributionID, address.Hex()).
		First(&ben).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get beneficiary: %w", err)
	}
	return &ben, nil
}

// ListBeneficiaries retrieves beneficiary records with non-zero weight
func (s *pgStore) ListBeneficiaries(ctx context.Context, distributionID uint64, limit, offset int) ([]*schema.Beneficiary, error) {
	var beneficiaries []*schema.Beneficiary
	err := s.db.WithContext(ctx).
		Where("distribution_id = ? AND weight > 0", distributionID).
		Order("address ASC").
		Limit(limit).
		Offset(offset).
		Find(&beneficiaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list beneficiaries: %w", err)
	}
	return beneficiaries, nil
}

// ListLedgerEvents retrieves journal entries for a distribution, oldest first
func (s *pgStore) ListLedgerEvents(ctx context.Context, distributionID uint64, limit, offset int) ([]*schema.LedgerEvent, error) {
	var events []*schema.LedgerEvent
	err := s.db.WithContext(ctx).
		Where("distribution_id = ?", distributionID).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger events: %w", err)
	}
	return events, nil
}

// ApplyWeightBatch applies an ordered sequence of weight assignments all-or-nothing
func (s *pgStore) ApplyWeightBatch(ctx context.Context, distributionID uint64, entries []domain.WeightEntry, eventID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dist, err := lockDistribution(tx, distributionID)
		if err != nil {
			return err
		}

		agg, err := decodeAggregates(dist)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			var ben schema.Beneficiary
			err := tx.Where("distribution_id = ? AND address = ?", distributionID, entry.Beneficiary.Hex()).
				First(&ben).Error
			exists := true
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("failed to get beneficiary: %w", err)
				}
				exists = false
			}

			oldWeight := new(big.Int)
			oldMethod := domain.MethodUnset
			if exists {
				oldWeight, err = columnAmount(ben.Weight)
				if err != nil {
					return err
				}
				oldMethod = domain.PayoutMethod(ben.Method)
			}

			// Remove the old weight from its method bucket before anything else
			if oldWeight.Sign() > 0 {
				agg.weightByMethod[oldMethod].Sub(agg.weightByMethod[oldMethod], oldWeight)
			}

			if entry.Weight.Sign() == 0 {
				// Removal: only decrements once, so re-zeroing is idempotent
				if oldWeight.Sign() > 0 {
					dist.BeneficiaryCount--
					agg.totalWeight.Sub(agg.totalWeight, oldWeight)
				}
				if !exists {
					continue
				}
				ben.Weight = "0"
				ben.Method = string(domain.MethodUnset)
			} else {
				if oldWeight.Sign() == 0 {
					dist.BeneficiaryCount++
				}
				// Signed delta: a weight reduction shrinks the total
				agg.totalWeight.Add(agg.totalWeight, new(big.Int).Sub(entry.Weight, oldWeight))
				agg.weightByMethod[entry.Method].Add(agg.weightByMethod[entry.Method], entry.Weight)
				ben.Weight = entry.Weight.String()
				ben.Method = string(entry.Method)
			}

			if exists {
				if err := tx.Save(&ben).Error; err != nil {
					return fmt.Errorf("failed to update beneficiary: %w", err)
				}
			} else {
				ben.DistributionID = distributionID
				ben.Address = entry.Beneficiary.Hex()
				ben.CachedEntitlement = "0"
				if err := tx.Create(&ben).Error; err != nil {
					return fmt.Errorf("failed to create beneficiary: %w", err)
				}
			}
		}

		agg.writeBack(dist)
		if err := tx.Save(dist).Error; err != nil {
			return fmt.Errorf("failed to update distribution aggregates: %w", err)
		}

		meta := map[string]any{
			"entry_count": len(entries),
		}
		return appendLedgerEvent(tx, eventID, distributionID, domain.EventTypeWeightsSet, nil, nil, meta)
	})
}

// Fund records a deposit, increasing committed funding
func (s *pgStore) Fund(ctx context.Context, distributionID uint64, amount *big.Int, eventID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dist, err := lockDistribution(tx, distributionID)
		if err != nil {
			return err
		}

		agg, err := decodeAggregates(dist)
		if err != nil {
			return err
		}

		agg.committedFunding.Add(agg.committedFunding, amount)
		agg.writeBack(dist)
		if err := tx.Save(dist).Error; err != nil {
			return fmt.Errorf("failed to update committed funding: %w", err)
		}

		return appendLedgerEvent(tx, eventID, distributionID, domain.EventTypeFunded, nil, amount, nil)
	})
}

// DeclareTotalAllocation fixes the payout basis, at most once and only before settlement
func (s *pgStore) DeclareTotalAllocation(ctx context.Context, distributionID uint64, amount *big.Int, eventID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dist, err := lockDistribution(tx, distributionID)
		if err != nil {
			return err
		}

		if dist.DeclaredTotalAllocation != nil {
			return domain.ErrAllocationAlreadyDeclared
		}

		agg, err := decodeAggregates(dist)
		if err != nil {
			return err
		}
		if agg.disbursedAmount.Sign() > 0 {
			return domain.ErrAllocationAfterSettlement
		}

		var settledCount int64
		err = tx.Model(&schema.Beneficiary{}).
			Where("distribution_id = ? AND settled = ?", distributionID, true).
			Count(&settledCount).Error
		if err != nil {
			return fmt.Errorf("failed to count settled beneficiaries: %w", err)
		}
		if settledCount > 0 {
			return domain.ErrAllocationAfterSettlement
		}

		declared := amount.String()
		dist.DeclaredTotalAllocation = &declared
		if err := tx.Save(dist).Error; err != nil {
			return fmt.Errorf("failed to declare total allocation: %w", err)
		}

		return appendLedgerEvent(tx, eventID, distributionID, domain.EventTypeAllocationDeclared, nil, amount, nil)
	})
}

// SettleClaim settles a single claim-method beneficiary
func (s *pgStore) SettleClaim(ctx context.Context, distributionID uint64, claimer common.Address, eventID string, transfer TransferFunc) (*SettlementResult, error) {
	return s.settleOne(ctx, distributionID, claimer, domain.MethodClaim, domain.EventTypeClaimSettled, eventID, transfer)
}

// SettleAutomatic settles a single automatic-method beneficiary
func (s *pgStore) SettleAutomatic(ctx context.Context, distributionID uint64, beneficiary common.Address, eventID string, transfer TransferFunc) (*SettlementResult, error) {
	return s.settleOne(ctx, distributionID, beneficiary, domain.MethodAutomatic, domain.EventTypeAutomaticSettled, eventID, transfer)
}

// SettleOffLedger marks an off-ledger beneficiary settled without moving value
func (s *pgStore) SettleOffLedger(ctx context.Context, distributionID uint64, beneficiary common.Address, eventID string) (*SettlementResult, error) {
	return s.settleOne(ctx, distributionID, beneficiary, domain.MethodOffLedger, domain.EventTypeOffLedgerSettled, eventID, nil)
}

// settleOne performs one beneficiary's settlement as a single transaction.
// The settled flag and disbursed amount are staged before the transfer runs,
// and the transfer error aborts the transaction, so partial settlements can
// never be observed.
func (s *pgStore) settleOne(
	ctx context.Context,
	distributionID uint64,
	address common.Address,
	method domain.PayoutMethod,
	eventType domain.EventType,
	eventID string,
	transfer TransferFunc,
) (*SettlementResult, error) {
	var result *SettlementResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dist, err := lockDistribution(tx, distributionID)
		if err != nil {
			return err
		}

		var ben schema.Beneficiary
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("distribution_id = ? AND address = ?", distributionID, address.Hex()).
			First(&ben).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBeneficiaryNotFound
			}
			return fmt.Errorf("failed to lock beneficiary: %w", err)
		}

		weight, err := columnAmount(ben.Weight)
		if err != nil {
			return err
		}
		if weight.Sign() == 0 {
			return domain.ErrBeneficiaryNotFound
		}
		if domain.PayoutMethod(ben.Method) != method {
			return domain.ErrWrongMethod
		}
		if ben.Settled {
			return domain.ErrAlreadySettled
		}

		agg, err := decodeAggregates(dist)
		if err != nil {
			return err
		}

		effectiveTotal := domain.EffectiveTotal(agg.declaredTotal, agg.committedFunding)
		amount := domain.Entitlement(weight, agg.totalWeight, effectiveTotal)
		ben.CachedEntitlement = amount.String()
		if amount.Sign() == 0 {
			return domain.ErrNothingToSettle
		}

		if method.OnLedger() {
			undisbursed := new(big.Int).Sub(agg.committedFunding, agg.disbursedAmount)
			if undisbursed.Cmp(amount) < 0 {
				return domain.ErrInsufficientCustody
			}
			agg.disbursedAmount.Add(agg.disbursedAmount, amount)
			agg.writeBack(dist)
			if err := tx.Save(dist).Error; err != nil {
				return fmt.Errorf("failed to update disbursed amount: %w", err)
			}
		}

		ben.Settled = true
		if err := tx.Save(&ben).Error; err != nil {
			return fmt.Errorf("failed to mark beneficiary settled: %w", err)
		}

		beneficiaryHex := address.Hex()
		if err := appendLedgerEvent(tx, eventID, distributionID, eventType, &beneficiaryHex, amount, nil); err != nil {
			return err
		}

		// Settlement state is staged; the transfer decides whether it commits
		if method.OnLedger() && transfer != nil {
			asset := common.HexToAddress(dist.SettlementAsset)
			if err := transfer(ctx, asset, address, amount); err != nil {
				return fmt.Errorf("transfer failed: %w", err)
			}
		}

		result = &SettlementResult{
			Beneficiary: address,
			Amount:      amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// AddToAllowList adds addresses to the global allow list
func (s *pgStore) AddToAllowList(ctx context.Context, addresses []common.Address) error {
	entries := make([]schema.AllowListEntry, 0, len(addresses))
	for _, addr := range addresses {
		entries = append(entries, schema.AllowListEntry{Address: addr.Hex()})
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(&entries).Error
	if err != nil {
		return fmt.Errorf("failed to add allow list entries: %w", err)
	}
	return nil
}

// RemoveFromAllowList removes addresses from the global allow list
func (s *pgStore) RemoveFromAllowList(ctx context.Context, addresses []common.Address) error {
	hexes := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		hexes = append(hexes, addr.Hex())
	}

	err := s.db.WithContext(ctx).
		Where("address IN ?", hexes).
		Delete(&schema.AllowListEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove allow list entries: %w", err)
	}
	return nil
}

// IsAllowListed checks global allow-list membership
func (s *pgStore) IsAllowListed(ctx context.Context, address common.Address) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.AllowListEntry{}).
		Where("address = ?", address.Hex()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check allow list: %w", err)
	}
	return count > 0, nil
}

// SetAllowListRequired flips the global allow-list gate for claims
func (s *pgStore) SetAllowListRequired(ctx context.Context, required bool) error {
	setting := schema.Setting{
		Key:   schema.SettingAllowListRequired,
		Value: fmt.Sprintf("%t", required),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("failed to set allow list required: %w", err)
	}
	return nil
}

// AllowListRequired reads the global allow-list gate
func (s *pgStore) AllowListRequired(ctx context.Context) (bool, error) {
	var setting schema.Setting
	err := s.db.WithContext(ctx).
		Where("key = ?", schema.SettingAllowListRequired).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get allow list required: %w", err)
	}
	return setting.Value == "true", nil
}
