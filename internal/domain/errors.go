package domain

import "errors"

var (
	// ErrDistributionNotFound is returned when a distribution does not exist
	ErrDistributionNotFound = errors.New("distribution not found")

	// ErrBeneficiaryNotFound is returned when an address has no weight in a distribution
	ErrBeneficiaryNotFound = errors.New("beneficiary not found")

	// ErrInvalidReferencePoint is returned when a reference point is zero or ahead of the chain head
	ErrInvalidReferencePoint = errors.New("invalid reference point")

	// ErrZeroAddress is returned when a beneficiary or recipient address is the zero address
	ErrZeroAddress = errors.New("zero address")

	// ErrEmptyBatch is returned when a batched operation carries no entries
	ErrEmptyBatch = errors.New("empty batch")

	// ErrBatchTooLarge is returned when a batch exceeds the configured batch limit
	ErrBatchTooLarge = errors.New("batch exceeds limit")

	// ErrUnsetMethod is returned when a non-zero weight is assigned without a payout method
	ErrUnsetMethod = errors.New("payout method not set")

	// ErrInvalidAmount is returned when an amount is missing, negative, or zero where it must be positive
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAllocationAlreadyDeclared is returned when the total allocation has already been declared
	ErrAllocationAlreadyDeclared = errors.New("total allocation already declared")

	// ErrAllocationAfterSettlement is returned when declaring a total allocation after settlement began
	ErrAllocationAfterSettlement = errors.New("total allocation declared after settlement began")

	// ErrAlreadySettled is returned when a settled beneficiary is settled again
	ErrAlreadySettled = errors.New("beneficiary already settled")

	// ErrWrongMethod is returned when a settlement channel does not match the beneficiary's method
	ErrWrongMethod = errors.New("payout method does not match settlement channel")

	// ErrNothingToSettle is returned when a beneficiary's entitlement is zero
	ErrNothingToSettle = errors.New("entitlement is zero")

	// ErrInsufficientCustody is returned when undisbursed funding cannot cover an entitlement
	ErrInsufficientCustody = errors.New("insufficient undisbursed funding")

	// ErrNotAllowListed is returned when the allow list is required and the claimer is not on it
	ErrNotAllowListed = errors.New("address not on allow list")

	// ErrPaused is returned when a mutating operation is attempted while the system is paused
	ErrPaused = errors.New("system is paused")

	// ErrOperationInProgress is returned when a mutating operation re-enters before the previous one finished
	ErrOperationInProgress = errors.New("operation already in progress")

	// ErrUnauthorized is returned when the authorization gate rejects an operation
	ErrUnauthorized = errors.New("unauthorized")
)
