package dto

import (
	"time"

	"github.com/feral-file/ff-distributor/internal/engine"
	"github.com/feral-file/ff-distributor/internal/store/schema"
)

// DistributionResponse is the public view of a distribution
type DistributionResponse struct {
	ID                      uint64    `json:"id"`
	ReferencePoint          uint64    `json:"reference_point"`
	SettlementAsset         string    `json:"settlement_asset"`
	TotalWeight             string    `json:"total_weight"`
	WeightClaim             string    `json:"weight_claim"`
	WeightAutomatic         string    `json:"weight_automatic"`
	WeightOffLedger         string    `json:"weight_off_ledger"`
	CommittedFunding        string    `json:"committed_funding"`
	DeclaredTotalAllocation *string   `json:"declared_total_allocation,omitempty"`
	DisbursedAmount         string    `json:"disbursed_amount"`
	BeneficiaryCount        uint64    `json:"beneficiary_count"`
	CreatedAt               time.Time `json:"created_at"`
}

// NewDistributionResponse maps a distribution row to its public view
func NewDistributionResponse(dist *schema.Distribution) DistributionResponse {
	return DistributionResponse{
		ID:                      dist.ID,
		ReferencePoint:          dist.ReferencePoint,
		SettlementAsset:         dist.SettlementAsset,
		TotalWeight:             dist.TotalWeight,
		WeightClaim:             dist.WeightClaim,
		WeightAutomatic:         dist.WeightAutomatic,
		WeightOffLedger:         dist.WeightOffLedger,
		CommittedFunding:        dist.CommittedFunding,
		DeclaredTotalAllocation: dist.DeclaredTotalAllocation,
		DisbursedAmount:         dist.DisbursedAmount,
		BeneficiaryCount:        dist.BeneficiaryCount,
		CreatedAt:               dist.CreatedAt,
	}
}

// BeneficiaryResponse is the public view of a beneficiary entry
type BeneficiaryResponse struct {
	Address           string `json:"address"`
	Weight            string `json:"weight"`
	Method            string `json:"method"`
	Settled           bool   `json:"settled"`
	CachedEntitlement string `json:"cached_entitlement"`
}

// NewBeneficiaryResponse maps a beneficiary row to its public view
func NewBeneficiaryResponse(ben *schema.Beneficiary) BeneficiaryResponse {
	return BeneficiaryResponse{
		Address:           ben.Address,
		Weight:            ben.Weight,
		Method:            ben.Method,
		Settled:           ben.Settled,
		CachedEntitlement: ben.CachedEntitlement,
	}
}

// SettlementResponse reports one completed settlement
type SettlementResponse struct {
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount"`
}

// SettleOutcomeResponse reports one entry of a settlement batch
type SettleOutcomeResponse struct {
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount,omitempty"`
	Skipped     bool   `json:"skipped"`
	Reason      string `json:"reason,omitempty"`
}

// NewSettleOutcomeResponses maps batch settlement outcomes
func NewSettleOutcomeResponses(outcomes []engine.SettleOutcome) []SettleOutcomeResponse {
	responses := make([]SettleOutcomeResponse, 0, len(outcomes))
	for _, outcome := range outcomes {
		response := SettleOutcomeResponse{
			Beneficiary: outcome.Beneficiary.Hex(),
			Skipped:     outcome.Skipped,
			Reason:      outcome.Reason,
		}
		if outcome.Amount != nil {
			response.Amount = outcome.Amount.String()
		}
		responses = append(responses, response)
	}
	return responses
}

// AmountResponse carries a single computed amount
type AmountResponse struct {
	Amount string `json:"amount"`
}

// CanClaimResponse reports claim eligibility and the amount a claim would pay
type CanClaimResponse struct {
	Eligible bool   `json:"eligible"`
	Amount   string `json:"amount"`
}

// LedgerEventResponse is the public view of one journal entry
type LedgerEventResponse struct {
	EventID        string    `json:"event_id"`
	DistributionID uint64    `json:"distribution_id"`
	EventType      string    `json:"event_type"`
	Beneficiary    *string   `json:"beneficiary,omitempty"`
	Amount         *string   `json:"amount,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewLedgerEventResponses maps journal rows to their public view
func NewLedgerEventResponses(events []*schema.LedgerEvent) []LedgerEventResponse {
	responses := make([]LedgerEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, LedgerEventResponse{
			EventID:        event.EventID,
			DistributionID: event.DistributionID,
			EventType:      event.EventType,
			Beneficiary:    event.Beneficiary,
			Amount:         event.Amount,
			CreatedAt:      event.CreatedAt,
		})
	}
	return responses
}

// HealthResponse reports service health
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse acknowledges a mutation with no payload
type StatusResponse struct {
	Status string `json:"status"`
}
