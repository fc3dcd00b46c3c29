package domain

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// DEFAULT_BATCH_LIMIT bounds every batched operation (weight-setting,
	// automatic settlement, off-ledger marking, allow-list edits) so that a
	// single call's cost stays predictable.
	DEFAULT_BATCH_LIMIT = 200
)
