package dto

// CreateDistributionRequest creates a new distribution
type CreateDistributionRequest struct {
	ReferencePoint  uint64 `json:"reference_point" binding:"required"`
	SettlementAsset string `json:"settlement_asset"`
}

// WeightEntryRequest is one weight assignment inside a SetWeightsRequest
type WeightEntryRequest struct {
	Beneficiary string `json:"beneficiary" binding:"required"`
	Weight      string `json:"weight" binding:"required"`
	Method      string `json:"method"`
}

// SetWeightsRequest applies a batch of weight assignments
type SetWeightsRequest struct {
	Entries []WeightEntryRequest `json:"entries" binding:"required"`
}

// AmountRequest carries a single amount (funding, allocation declaration)
type AmountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// ClaimRequest is a self-service claim by a beneficiary
type ClaimRequest struct {
	Claimer string `json:"claimer" binding:"required"`
}

// AddressBatchRequest carries a list of addresses (batch settlement,
// allow-list edits)
type AddressBatchRequest struct {
	Addresses []string `json:"addresses" binding:"required"`
}

// AddressRequest carries a single address (off-ledger acknowledgement)
type AddressRequest struct {
	Address string `json:"address" binding:"required"`
}

// AllowListRequiredRequest flips the allow-list gate
type AllowListRequiredRequest struct {
	Required *bool `json:"required" binding:"required"`
}

// SweepRequest moves custody value to a recovery address
type SweepRequest struct {
	Asset     string `json:"asset"`
	Recipient string `json:"recipient" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}
