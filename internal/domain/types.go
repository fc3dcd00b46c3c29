package domain

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PayoutMethod determines which settlement channel may ever settle a beneficiary
type PayoutMethod string

const (
	MethodUnset     PayoutMethod = "unset"
	MethodClaim     PayoutMethod = "claim"
	MethodAutomatic PayoutMethod = "automatic"
	MethodOffLedger PayoutMethod = "off_ledger"
)

// IsValidPayoutMethod checks if a payout method is one of the known values
func IsValidPayoutMethod(m PayoutMethod) bool {
	return m == MethodUnset ||
		m == MethodClaim ||
		m == MethodAutomatic ||
		m == MethodOffLedger
}

// OnLedger reports whether settling this method moves value out of custody.
// Off-ledger acknowledgements are bookkeeping only.
func (m PayoutMethod) OnLedger() bool {
	return m == MethodClaim || m == MethodAutomatic
}

// NativeAsset is the sentinel settlement asset denoting the chain's native value
var NativeAsset = common.HexToAddress(ETHEREUM_ZERO_ADDRESS)

// IsNativeAsset checks if an asset address denotes the native asset
func IsNativeAsset(asset common.Address) bool {
	return asset == NativeAsset
}

// IsZeroAddress checks if an address is the zero address
func IsZeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}

// WeightEntry is one (beneficiary, weight, method) assignment inside a
// weight-setting batch. A zero weight removes the beneficiary.
type WeightEntry struct {
	Beneficiary common.Address `json:"beneficiary"`
	Weight      *big.Int       `json:"weight"`
	Method      PayoutMethod   `json:"method"`
}

// Validate checks the per-entry constraints shared by the single and batched
// weight-setting forms
func (e WeightEntry) Validate() error {
	if IsZeroAddress(e.Beneficiary) {
		return ErrZeroAddress
	}
	if e.Weight == nil || e.Weight.Sign() < 0 {
		return ErrInvalidAmount
	}
	if !IsValidPayoutMethod(e.Method) {
		return ErrUnsetMethod
	}
	if e.Weight.Sign() > 0 && e.Method == MethodUnset {
		return ErrUnsetMethod
	}
	return nil
}

// ParseAmount parses a non-negative base-10 integer amount.
// Amounts are carried as strings at the storage and API boundaries to support
// up to 78 digits (numeric(78,0)) for blockchain compatibility.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidAmount
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders an amount for storage. A nil amount formats as "0".
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// EventType labels entries in the ledger-event journal and the subjects of
// published bookkeeping events
type EventType string

const (
	EventTypeDistributionCreated EventType = "distribution_created"
	EventTypeFunded              EventType = "funded"
	EventTypeAllocationDeclared  EventType = "allocation_declared"
	EventTypeWeightsSet          EventType = "weights_set"
	EventTypeClaimSettled        EventType = "claim_settled"
	EventTypeAutomaticSettled    EventType = "automatic_settled"
	EventTypeOffLedgerSettled    EventType = "off_ledger_settled"
	EventTypeAllowListUpdated    EventType = "allow_list_updated"
	EventTypeEmergencySweep      EventType = "emergency_sweep"
)

// LedgerEvent is the normalized bookkeeping event appended to the journal in
// the same transaction as the mutation it records, and published to NATS after
// commit.
type LedgerEvent struct {
	EventID        string    `json:"event_id"`
	Type           EventType `json:"event_type"`
	DistributionID uint64    `json:"distribution_id"`
	Beneficiary    *string   `json:"beneficiary,omitempty"`
	Amount         *string   `json:"amount,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
