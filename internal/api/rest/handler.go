package rest

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-distributor/internal/api/shared/dto"
	"github.com/feral-file/ff-distributor/internal/domain"
	"github.com/feral-file/ff-distributor/internal/engine"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// CreateDistribution creates a new distribution anchored at a reference point
	// POST /api/v1/distributions
	CreateDistribution(c *gin.Context)

	// GetDistribution retrieves a distribution with its aggregates
	// GET /api/v1/distributions/:id
	GetDistribution(c *gin.Context)

	// SetWeights applies a batch of weight assignments
	// POST /api/v1/distributions/:id/weights
	SetWeights(c *gin.Context)

	// ListBeneficiaries lists the active beneficiaries of a distribution
	// GET /api/v1/distributions/:id/beneficiaries?limit=<limit>&offset=<offset>
	ListBeneficiaries(c *gin.Context)

	// GetBeneficiary retrieves one beneficiary entry
	// GET /api/v1/distributions/:id/beneficiaries/:address
	GetBeneficiary(c *gin.Context)

	// Fund records committed funding for a distribution
	// POST /api/v1/distributions/:id/fund
	Fund(c *gin.Context)

	// DeclareTotalAllocation fixes the entitlement basis of a distribution
	// POST /api/v1/distributions/:id/allocation
	DeclareTotalAllocation(c *gin.Context)

	// GetRequiredFunding computes the funding needed to cover on-ledger entitlements
	// GET /api/v1/distributions/:id/required-funding?external_total=<amount>
	GetRequiredFunding(c *gin.Context)

	// GetEntitlement computes the current entitlement of an address
	// GET /api/v1/distributions/:id/entitlements/:address
	GetEntitlement(c *gin.Context)

	// CanClaim reports whether an address could claim right now
	// GET /api/v1/distributions/:id/can-claim/:address
	CanClaim(c *gin.Context)

	// Claim settles a claim-method beneficiary's entitlement (self-service)
	// POST /api/v1/distributions/:id/claim
	Claim(c *gin.Context)

	// BatchAutoSettle settles a batch of automatic-method beneficiaries
	// POST /api/v1/distributions/:id/settlements/automatic
	BatchAutoSettle(c *gin.Context)

	// MarkOffLedgerSettled acknowledges one externally paid beneficiary
	// POST /api/v1/distributions/:id/settlements/off-ledger
	MarkOffLedgerSettled(c *gin.Context)

	// BatchMarkOffLedgerSettled acknowledges a batch of externally paid beneficiaries
	// POST /api/v1/distributions/:id/settlements/off-ledger/batch
	BatchMarkOffLedgerSettled(c *gin.Context)

	// ListLedgerEvents lists the journal of a distribution
	// GET /api/v1/distributions/:id/events?limit=<limit>&offset=<offset>
	ListLedgerEvents(c *gin.Context)

	// AddToAllowList adds addresses to the claim allow list
	// POST /api/v1/allowlist
	AddToAllowList(c *gin.Context)

	// RemoveFromAllowList removes addresses from the claim allow list
	// DELETE /api/v1/allowlist
	RemoveFromAllowList(c *gin.Context)

	// SetAllowListRequired flips the allow-list gate on claims
	// PUT /api/v1/allowlist/required
	SetAllowListRequired(c *gin.Context)

	// EmergencySweep moves custody value to a recovery address
	// POST /api/v1/sweep
	EmergencySweep(c *gin.Context)

	// Pause halts all mutating operations
	// POST /api/v1/pause
	Pause(c *gin.Context)

	// Resume lifts a pause
	// POST /api/v1/resume
	Resume(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	engine *engine.Service
}

// NewHandler creates a new REST API handler backed by the settlement engine
func NewHandler(svc *engine.Service) Handler {
	return &handler{engine: svc}
}

// parseDistributionID parses the :id path parameter
func parseDistributionID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondBadRequest(c, "Invalid distribution ID", c.Param("id"))
		return 0, false
	}
	return id, true
}

// parseAddressParam parses the :address path parameter
func parseAddressParam(c *gin.Context) (common.Address, bool) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		respondBadRequest(c, "Invalid address", raw)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// parseAddress parses an address carried in a request body
func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address: %s", raw)
	}
	return common.HexToAddress(raw), nil
}

// parseAddresses parses a batch of addresses carried in a request body
func parseAddresses(raw []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(raw))
	for _, r := range raw {
		addr, err := parseAddress(r)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// parseAsset parses an optional asset address. Empty means the native asset.
func parseAsset(raw string) (common.Address, error) {
	if raw == "" {
		return domain.NativeAsset, nil
	}
	return parseAddress(raw)
}

// parsePagination parses the limit and offset query parameters
func parsePagination(c *gin.Context) (limit, offset int, err error) {
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		return 0, 0, fmt.Errorf("invalid limit: %s", c.Query("limit"))
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset: %s", c.Query("offset"))
	}
	return limit, offset, nil
}

// CreateDistribution creates a new distribution
func (h *handler) CreateDistribution(c *gin.Context) {
	var req dto.CreateDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	asset, err := parseAsset(req.SettlementAsset)
	if err != nil {
		respondBadRequest(c, "Invalid settlement asset", req.SettlementAsset)
		return
	}

	dist, err := h.engine.CreateDistribution(c.Request.Context(), req.ReferencePoint, asset)
	if err != nil {
		respondEngineError(c, err, "Failed to create distribution")
		return
	}

	c.JSON(http.StatusCreated, dto.NewDistributionResponse(dist))
}

// GetDistribution retrieves a distribution
func (h *handler) GetDistribution(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}

	dist, err := h.engine.GetDistribution(c.Request.Context(), id)
	if err != nil {
		respondEngineError(c, err, "Failed to get distribution")
		return
	}

	c.JSON(http.StatusOK, dto.NewDistributionResponse(dist))
}

// SetWeights applies a batch of weight assignments
func (h *handler) SetWeights(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}

	var req dto.SetWeightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	entries := make([]domain.WeightEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		addr, err := parseAddress(e.Beneficiary)
		if err != nil {
			respondBadRequest(c, "Invalid beneficiary address", e.Beneficiary)
			return
		}
		weight, err := domain.ParseAmount(e.Weight)
		if err != nil {
			respondBadRequest(c, "Invalid weight", e.Weight)
			return
		}
		entries = append(entries, domain.WeightEntry{
			Beneficiary: addr,
			Weight:      weight,
			Method:      domain.PayoutMethod(e.Method),
		})
	}

	if err := h.engine.SetWeights(c.Request.Context(), id, entries); err != nil {
		respondEngineError(c, err, "Failed to set weights")
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// ListBeneficiaries lists the active beneficiaries of a distribution
func (h *handler) ListBeneficiaries(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	beneficiaries, err := h.engine.ListBeneficiaries(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondEngineError(c, err, "Failed to list beneficiaries")
		return
	}

	responses := make([]dto.BeneficiaryResponse, 0, len(beneficiaries))
	for _, b := range beneficiaries {
		responses = append(responses, dto.NewBeneficiaryResponse(b))
	}
	c.JSON(http.StatusOK, gin.H{"beneficiaries": responses})
}

// GetBeneficiary retrieves one beneficiary entry
func (h *handler) GetBeneficiary(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}
	addr, ok := parseAddressParam(c)
	if !ok {
		return
	}

	ben, err := h.engine.GetBeneficiary(c.Request.Context(), id, addr)
	if err != nil {
		respondEngineError(c, err, "Failed to get beneficiary")
		return
	}

	c.JSON(http.StatusOK, dto.NewBeneficiaryResponse(ben))
}

// Fund records committed funding for a distribution
func (h *handler) Fund(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}

	amount, ok := bindAmount(c)
	if !ok {
		return
	}

	if err := h.engine.Fund(c.Request.Context(), id, amount); err != nil {
		respondEngineError(c, err, "Failed to record funding")
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// DeclareTotalAllocation fixes the entitlement basis of a distribution
func (h *handler) DeclareTotalAllocation(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}

	amount, ok := bindAmount(c)
	if !ok {
		return
	}

	if err := h.engine.DeclareTotalAllocation(c.Request.Context(), id, amount); err != nil {
		respondEngineError(c, err, "Failed to declare total allocation")
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// bindAmount binds an AmountRequest body and parses its amount
func bindAmount(c *gin.Context) (*big.Int, bool) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return nil, false
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		respondBadRequest(c, "Invalid amount", req.Amount)
		return nil, false
	}
	return amount, true
}

// GetRequiredFunding computes the funding needed to cover on-ledger entitlements
func (h *handler) GetRequiredFunding(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}

	var externalTotal *big.Int
	if raw := c.Query("external_total"); raw != "" {
		v, err := domain.ParseAmount(raw)
		if err != nil {
			respondBadRequest(c, "Invalid external total", raw)
			return
		}
		externalTotal = v
	}

	required, err := h.engine.RequiredFunding(c.Request.Context(), id, externalTotal)
	if err != nil {
		respondEngineError(c, err, "Failed to compute required funding")
		return
	}

	c.JSON(http.StatusOK, dto.AmountResponse{Amount: required.String()})
}

// GetEntitlement computes the current entitlement of an address
func (h *handler) GetEntitlement(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}
	addr, ok := parseAddressParam(c)
	if !ok {
		return
	}

	amount, err := h.engine.Entitlement(c.Request.Context(), id, addr)
	if err != nil {
		respondEngineError(c, err, "Failed to compute entitlement")
		return
	}

	c.JSON(http.StatusOK, dto.AmountResponse{Amount: amount.String()})
}

// CanClaim reports whether an address could claim right now
func (h *handler) CanClaim(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}
	addr, ok := parseAddressParam(c)
	if !ok {
		return
	}

	eligible, amount, err := h.engine.CanClaim(c.Request.Context(), id, addr)
	if err != nil {
		respondEngineError(c, err, "Failed to check claim eligibility")
		return
	}

	c.JSON(http.StatusOK, dto.CanClaimResponse{
		Eligible: eligible,
		Amount:   amount.String(),
	})
}

// Claim settles a claim-method beneficiary's entitlement
func (h *handler) Claim(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}

	var req dto.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	claimer, err := parseAddress(req.Claimer)
	if err != nil {
		respondBadRequest(c, "Invalid claimer address", req.Claimer)
		return
	}

	result, err := h.engine.Claim(c.Request.Context(), id, claimer)
	if err != nil {
		respondEngineError(c, err, "Failed to settle claim")
		return
	}

	c.JSON(http.StatusOK, dto.SettlementResponse{
		Beneficiary: result.Beneficiary.Hex(),
		Amount:      result.Amount.String(),
	})
}

// BatchAutoSettle settles a batch of automatic-method beneficiaries
func (h *handler) BatchAutoSettle(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}

	addresses, ok := bindAddressBatch(c)
	if !ok {
		return
	}

	outcomes, err := h.engine.BatchAutoSettle(c.Request.Context(), id, addresses)
	if err != nil {
		respondEngineError(c, err, "Failed to settle batch")
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcomes": dto.NewSettleOutcomeResponses(outcomes)})
}

// MarkOffLedgerSettled acknowledges one externally paid beneficiary
func (h *handler) MarkOffLedgerSettled(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}

	var req dto.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		respondBadRequest(c, "Invalid address", req.Address)
		return
	}

	result, err := h.engine.MarkOffLedgerSettled(c.Request.Context(), id, addr)
	if err != nil {
		respondEngineError(c, err, "Failed to mark off-ledger settlement")
		return
	}

	c.JSON(http.StatusOK, dto.SettlementResponse{
		Beneficiary: result.Beneficiary.Hex(),
		Amount:      result.Amount.String(),
	})
}

// BatchMarkOffLedgerSettled acknowledges a batch of externally paid beneficiaries
func (h *handler) BatchMarkOffLedgerSettled(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}

	addresses, ok := bindAddressBatch(c)
	if !ok {
		return
	}

	outcomes, err := h.engine.BatchMarkOffLedgerSettled(c.Request.Context(), id, addresses)
	if err != nil {
		respondEngineError(c, err, "Failed to mark off-ledger settlements")
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcomes": dto.NewSettleOutcomeResponses(outcomes)})
}

// bindAddressBatch binds an AddressBatchRequest body and parses its addresses
func bindAddressBatch(c *gin.Context) ([]common.Address, bool) {
	var req dto.AddressBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return nil, false
	}
	addresses, err := parseAddresses(req.Addresses)
	if err != nil {
		respondBadRequest(c, "Invalid address in batch", err.Error())
		return nil, false
	}
	return addresses, true
}

// ListLedgerEvents lists the journal of a distribution
func (h *handler) ListLedgerEvents(c *gin.Context) {
	id, ok := parseDistributionID(c)
	if !ok {
		return
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	events, err := h.engine.ListLedgerEvents(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondEngineError(c, err, "Failed to list ledger events")
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": dto.NewLedgerEventResponses(events)})
}

// AddToAllowList adds addresses to the claim allow list
func (h *handler) AddToAllowList(c *gin.Context) {
	addresses, ok := bindAddressBatch(c)
	if !ok {
		return
	}

	if err := h.engine.AddToAllowList(c.Request.Context(), addresses); err != nil {
		respondEngineError(c, err, "Failed to add to allow list")
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// RemoveFromAllowList removes addresses from the claim allow list
func (h *handler) RemoveFromAllowList(c *gin.Context) {
	addresses, ok := bindAddressBatch(c)
	if !ok {
		return
	}

	if err := h.engine.RemoveFromAllowList(c.Request.Context(), addresses); err != nil {
		respondEngineError(c, err, "Failed to remove from allow list")
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// SetAllowListRequired flips the allow-list gate on claims
func (h *handler) SetAllowListRequired(c *gin.Context) {
	var req dto.AllowListRequiredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.engine.SetAllowListRequired(c.Request.Context(), *req.Required); err != nil {
		respondEngineError(c, err, "Failed to set allow list requirement")
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// EmergencySweep moves custody value to a recovery address
func (h *handler) EmergencySweep(c *gin.Context) {
	var req dto.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	asset, err := parseAsset(req.Asset)
	if err != nil {
		respondBadRequest(c, "Invalid asset", req.Asset)
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		respondBadRequest(c, "Invalid recipient", req.Recipient)
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		respondBadRequest(c, "Invalid amount", req.Amount)
		return
	}

	if err := h.engine.EmergencySweep(c.Request.Context(), asset, recipient, amount); err != nil {
		respondEngineError(c, err, "Failed to sweep custody")
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// Pause halts all mutating operations
func (h *handler) Pause(c *gin.Context) {
	if err := h.engine.Pause(c.Request.Context()); err != nil {
		respondEngineError(c, err, "Failed to pause")
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "paused"})
}

// Resume lifts a pause
func (h *handler) Resume(c *gin.Context) {
	if err := h.engine.Resume(c.Request.Context()); err != nil {
		respondEngineError(c, err, "Failed to resume")
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "resumed"})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}
