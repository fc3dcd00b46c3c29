package store

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-distributor/internal/domain"
	"github.com/feral-file/ff-distributor/internal/store/schema"
)

type memoryStore struct {
	mu sync.Mutex

	nextDistributionID uint64
	nextBeneficiaryID  uint64
	nextEventID        uint64

	distributions map[uint64]*schema.Distribution
	beneficiaries map[uint64]map[string]*schema.Beneficiary
	events        []*schema.LedgerEvent
	allowList     map[string]bool
	settings      map[string]string
}

// NewMemoryStore creates an in-memory store with the same semantics as the
// PostgreSQL store. Intended for tests.
func NewMemoryStore() Store {
	return &memoryStore{
		nextDistributionID: 1,
		nextBeneficiaryID:  1,
		nextEventID:        1,
		distributions:      make(map[uint64]*schema.Distribution),
		beneficiaries:      make(map[uint64]map[string]*schema.Beneficiary),
		allowList:          make(map[string]bool),
		settings:           make(map[string]string),
	}
}

func copyDistribution(d *schema.Distribution) *schema.Distribution {
	c := *d
	if d.DeclaredTotalAllocation != nil {
		declared := *d.DeclaredTotalAllocation
		c.DeclaredTotalAllocation = &declared
	}
	c.Beneficiaries = nil
	return &c
}

func copyBeneficiary(b *schema.Beneficiary) *schema.Beneficiary {
	c := *b
	c.Distribution = schema.Distribution{}
	return &c
}

func copyLedgerEvent(e *schema.LedgerEvent) *schema.LedgerEvent {
	c := *e
	if e.Beneficiary != nil {
		beneficiary := *e.Beneficiary
		c.Beneficiary = &beneficiary
	}
	if e.Amount != nil {
		amount := *e.Amount
		c.Amount = &amount
	}
	return &c
}

func (s *memoryStore) appendEvent(eventID string, distributionID uint64, eventType domain.EventType, beneficiary *string, amount *big.Int) {
	event := &schema.LedgerEvent{
		ID:             s.nextEventID,
		EventID:        eventID,
		DistributionID: distributionID,
		EventType:      string(eventType),
		CreatedAt:      time.Now(),
	}
	if beneficiary != nil {
		b := *beneficiary
		event.Beneficiary = &b
	}
	if amount != nil {
		a := amount.String()
		event.Amount = &a
	}
	s.nextEventID++
	s.events = append(s.events, event)
}

func (s *memoryStore) CreateDistribution(_ context.Context, referencePoint uint64, settlementAsset common.Address, eventID string) (*schema.Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	dist := &schema.Distribution{
		ID:               s.nextDistributionID,
		ReferencePoint:   referencePoint,
		SettlementAsset:  settlementAsset.Hex(),
		TotalWeight:      "0",
		WeightClaim:      "0",
		WeightAutomatic:  "0",
		WeightOffLedger:  "0",
		CommittedFunding: "0",
		DisbursedAmount:  "0",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.nextDistributionID++
	s.distributions[dist.ID] = dist
	s.beneficiaries[dist.ID] = make(map[string]*schema.Beneficiary)
	s.appendEvent(eventID, dist.ID, domain.EventTypeDistributionCreated, nil, nil)

	return copyDistribution(dist), nil
}

func (s *memoryStore) GetDistribution(_ context.Context, distributionID uint64) (*schema.Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dist, ok := s.distributions[distributionID]
	if !ok {
		return nil, nil
	}
	return copyDistribution(dist), nil
}

func (s *memoryStore) GetBeneficiary(_ context.Context, distributionID uint64, address common.Address) (*schema.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bens, ok := s.beneficiaries[distributionID]
	if !ok {
		return nil, nil
	}
	ben, ok := bens[address.Hex()]
	if !ok {
		return nil, nil
	}
	return copyBeneficiary(ben), nil
}

func (s *memoryStore) ListBeneficiaries(_ context.Context, distributionID uint64, limit, offset int) ([]*schema.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bens, ok := s.beneficiaries[distributionID]
	if !ok {
		return nil, nil
	}

	addresses := make([]string, 0, len(bens))
	for addr, ben := range bens {
		weight, err := columnAmount(ben.Weight)
		if err != nil {
			return nil, err
		}
		if weight.Sign() > 0 {
			addresses = append(addresses, addr)
		}
	}
	sort.Strings(addresses)

	var result []*schema.Beneficiary
	for i, addr := range addresses {
		if i < offset {
			continue
		}
		if len(result) >= limit {
			break
		}
		result = append(result, copyBeneficiary(bens[addr]))
	}
	return result, nil
}

func (s *memoryStore) ListLedgerEvents(_ context.Context, distributionID uint64, limit, offset int) ([]*schema.LedgerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*schema.LedgerEvent
	skipped := 0
	for _, event := range s.events {
		if event.DistributionID != distributionID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(result) >= limit {
			break
		}
		result = append(result, copyLedgerEvent(event))
	}
	return result, nil
}

func (s *memoryStore) ApplyWeightBatch(_ context.Context, distributionID uint64, entries []domain.WeightEntry, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dist, ok := s.distributions[distributionID]
	if !ok {
		return domain.ErrDistributionNotFound
	}

	agg, err := decodeAggregates(dist)
	if err != nil {
		return err
	}
	bens := s.beneficiaries[distributionID]

	for _, entry := range entries {
		addr := entry.Beneficiary.Hex()
		ben, exists := bens[addr]

		oldWeight := new(big.Int)
		oldMethod := domain.MethodUnset
		if exists {
			oldWeight, err = columnAmount(ben.Weight)
			if err != nil {
				return err
			}
			oldMethod = domain.PayoutMethod(ben.Method)
		}

		if oldWeight.Sign() > 0 {
			agg.weightByMethod[oldMethod].Sub(agg.weightByMethod[oldMethod], oldWeight)
		}

		if entry.Weight.Sign() == 0 {
			if oldWeight.Sign() > 0 {
				dist.BeneficiaryCount--
				agg.totalWeight.Sub(agg.totalWeight, oldWeight)
			}
			if !exists {
				continue
			}
			ben.Weight = "0"
			ben.Method = string(domain.MethodUnset)
			ben.UpdatedAt = time.Now()
		} else {
			if oldWeight.Sign() == 0 {
				dist.BeneficiaryCount++
			}
			agg.totalWeight.Add(agg.totalWeight, new(big.Int).Sub(entry.Weight, oldWeight))
			agg.weightByMethod[entry.Method].Add(agg.weightByMethod[entry.Method], entry.Weight)

			if !exists {
				ben = &schema.Beneficiary{
					ID:                s.nextBeneficiaryID,
					DistributionID:    distributionID,
					Address:           addr,
					CachedEntitlement: "0",
					Method:            string(domain.MethodUnset),
					CreatedAt:         time.Now(),
				}
				s.nextBeneficiaryID++
				bens[addr] = ben
			}
			ben.Weight = entry.Weight.String()
			ben.Method = string(entry.Method)
			ben.UpdatedAt = time.Now()
		}
	}

	agg.writeBack(dist)
	dist.UpdatedAt = time.Now()
	s.appendEvent(eventID, distributionID, domain.EventTypeWeightsSet, nil, nil)
	return nil
}

func (s *memoryStore) Fund(_ context.Context, distributionID uint64, amount *big.Int, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dist, ok := s.distributions[distributionID]
	if !ok {
		return domain.ErrDistributionNotFound
	}

	agg, err := decodeAggregates(dist)
	if err != nil {
		return err
	}
	agg.committedFunding.Add(agg.committedFunding, amount)
	agg.writeBack(dist)
	dist.UpdatedAt = time.Now()
	s.appendEvent(eventID, distributionID, domain.EventTypeFunded, nil, amount)
	return nil
}

func (s *memoryStore) DeclareTotalAllocation(_ context.Context, distributionID uint64, amount *big.Int, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dist, ok := s.distributions[distributionID]
	if !ok {
		return domain.ErrDistributionNotFound
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
	for _, ben := range s.beneficiaries[distributionID] {
		if ben.Settled {
			return domain.ErrAllocationAfterSettlement
		}
	}

	declared := amount.String()
	dist.DeclaredTotalAllocation = &declared
	dist.UpdatedAt = time.Now()
	s.appendEvent(eventID, distributionID, domain.EventTypeAllocationDeclared, nil, amount)
	return nil
}

func (s *memoryStore) SettleClaim(ctx context.Context, distributionID uint64, claimer common.Address, eventID string, transfer TransferFunc) (*SettlementResult, error) {
	return s.settleOne(ctx, distributionID, claimer, domain.MethodClaim, domain.EventTypeClaimSettled, eventID, transfer)
}

func (s *memoryStore) SettleAutomatic(ctx context.Context, distributionID uint64, beneficiary common.Address, eventID string, transfer TransferFunc) (*SettlementResult, error) {
	return s.settleOne(ctx, distributionID, beneficiary, domain.MethodAutomatic, domain.EventTypeAutomaticSettled, eventID, transfer)
}

func (s *memoryStore) SettleOffLedger(ctx context.Context, distributionID uint64, beneficiary common.Address, eventID string) (*SettlementResult, error) {
	return s.settleOne(ctx, distributionID, beneficiary, domain.MethodOffLedger, domain.EventTypeOffLedgerSettled, eventID, nil)
}

func (s *memoryStore) settleOne(
	ctx context.Context,
	distributionID uint64,
	address common.Address,
	method domain.PayoutMethod,
	eventType domain.EventType,
	eventID string,
	transfer TransferFunc,
) (*SettlementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dist, ok := s.distributions[distributionID]
	if !ok {
		return nil, domain.ErrDistributionNotFound
	}

	ben, ok := s.beneficiaries[distributionID][address.Hex()]
	if !ok {
		return nil, domain.ErrBeneficiaryNotFound
	}

	weight, err := columnAmount(ben.Weight)
	if err != nil {
		return nil, err
	}
	if weight.Sign() == 0 {
		return nil, domain.ErrBeneficiaryNotFound
	}
	if domain.PayoutMethod(ben.Method) != method {
		return nil, domain.ErrWrongMethod
	}
	if ben.Settled {
		return nil, domain.ErrAlreadySettled
	}

	agg, err := decodeAggregates(dist)
	if err != nil {
		return nil, err
	}

	effectiveTotal := domain.EffectiveTotal(agg.declaredTotal, agg.committedFunding)
	amount := domain.Entitlement(weight, agg.totalWeight, effectiveTotal)
	if amount.Sign() == 0 {
		ben.CachedEntitlement = amount.String()
		return nil, domain.ErrNothingToSettle
	}

	if method.OnLedger() {
		undisbursed := new(big.Int).Sub(agg.committedFunding, agg.disbursedAmount)
		if undisbursed.Cmp(amount) < 0 {
			return nil, domain.ErrInsufficientCustody
		}
	}

	// Nothing is committed until the transfer succeeds
	if method.OnLedger() && transfer != nil {
		asset := common.HexToAddress(dist.SettlementAsset)
		if err := transfer(ctx, asset, address, amount); err != nil {
			return nil, err
		}
	}

	if method.OnLedger() {
		agg.disbursedAmount.Add(agg.disbursedAmount, amount)
		agg.writeBack(dist)
		dist.UpdatedAt = time.Now()
	}
	ben.CachedEntitlement = amount.String()
	ben.Settled = true
	ben.UpdatedAt = time.Now()

	beneficiaryHex := address.Hex()
	s.appendEvent(eventID, distributionID, eventType, &beneficiaryHex, amount)

	return &SettlementResult{
		Beneficiary: address,
		Amount:      amount,
	}, nil
}

func (s *memoryStore) AddToAllowList(_ context.Context, addresses []common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, addr := range addresses {
		s.allowList[addr.Hex()] = true
	}
	return nil
}

func (s *memoryStore) RemoveFromAllowList(_ context.Context, addresses []common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, addr := range addresses {
		delete(s.allowList, addr.Hex())
	}
	return nil
}

func (s *memoryStore) IsAllowListed(_ context.Context, address common.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allowList[address.Hex()], nil
}

func (s *memoryStore) SetAllowListRequired(_ context.Context, required bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if required {
		s.settings[schema.SettingAllowListRequired] = "true"
	} else {
		s.settings[schema.SettingAllowListRequired] = "false"
	}
	return nil
}

func (s *memoryStore) AllowListRequired(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.settings[schema.SettingAllowListRequired] == "true", nil
}
