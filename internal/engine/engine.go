package engine

import (
	"context"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-distributor/internal/adapter"
	"github.com/feral-file/ff-distributor/internal/block"
	"github.com/feral-file/ff-distributor/internal/domain"
	"github.com/feral-file/ff-distributor/internal/store"
	"github.com/feral-file/ff-distributor/internal/transfer"
)

// Operation identifies a gated engine entry point for authorization decisions
type Operation string

const (
	OpCreateDistribution     Operation = "create_distribution"
	OpSetWeights             Operation = "set_weights"
	OpFund                   Operation = "fund"
	OpDeclareTotalAllocation Operation = "declare_total_allocation"
	OpBatchAutoSettle        Operation = "batch_auto_settle"
	OpMarkOffLedgerSettled   Operation = "mark_off_ledger_settled"
	OpEditAllowList          Operation = "edit_allow_list"
	OpSetAllowListRequired   Operation = "set_allow_list_required"
	OpEmergencySweep         Operation = "emergency_sweep"
	OpPause                  Operation = "pause"
)

// Authorizer decides whether the caller identified by the request context may
// perform an operation. The accounting core carries no notion of who is
// calling beyond this gate.
type Authorizer interface {
	Authorize(ctx context.Context, op Operation) error
}

// Switch gates mutating operations behind an on/off pause state
type Switch interface {
	Paused() bool
	Pause()
	Resume()
}

// PauseSwitch is the in-process Switch implementation
type PauseSwitch struct {
	paused atomic.Bool
}

// NewPauseSwitch creates an unpaused switch
func NewPauseSwitch() *PauseSwitch {
	return &PauseSwitch{}
}

func (p *PauseSwitch) Paused() bool {
	return p.paused.Load()
}

func (p *PauseSwitch) Pause() {
	p.paused.Store(true)
}

func (p *PauseSwitch) Resume() {
	p.paused.Store(false)
}

// EventSink assigns ledger-event IDs and accepts events for publishing after
// the corresponding transaction committed
type EventSink interface {
	NewEventID() string
	Dispatch(event *domain.LedgerEvent)
}

// Config holds engine settings
type Config struct {
	// BatchLimit bounds every batched operation. Zero means the default.
	BatchLimit int
}

// Service is the distribution accounting engine. Every mutating entry point
// runs as: single-flight guard, pause check, authorization gate, input
// validation, store transaction, event dispatch.
type Service struct {
	store      store.Store
	mover      transfer.Mover
	head       block.HeadProvider
	sink       EventSink
	authorizer Authorizer
	pause      Switch
	clock      adapter.Clock
	batchLimit int

	// inFlight rejects reentrant invocation through the transfer primitive
	inFlight atomic.Bool
}

// NewService creates the accounting engine
func NewService(
	cfg Config,
	st store.Store,
	mover transfer.Mover,
	head block.HeadProvider,
	sink EventSink,
	authorizer Authorizer,
	pause Switch,
	clock adapter.Clock,
) *Service {
	batchLimit := cfg.BatchLimit
	if batchLimit == 0 {
		batchLimit = domain.DEFAULT_BATCH_LIMIT
	}

	return &Service{
		store:      st,
		mover:      mover,
		head:       head,
		sink:       sink,
		authorizer: authorizer,
		pause:      pause,
		clock:      clock,
		batchLimit: batchLimit,
	}
}

// acquire takes the single-flight guard. The returned release func must be
// deferred by the caller.
func (s *Service) acquire() (func(), error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, domain.ErrOperationInProgress
	}
	return func() { s.inFlight.Store(false) }, nil
}

// gate runs the pause check and the authorization gate, in that order
func (s *Service) gate(ctx context.Context, op Operation) error {
	if s.pause.Paused() {
		return domain.ErrPaused
	}
	return s.authorizer.Authorize(ctx, op)
}

// validateBatchSize rejects empty and oversized batches before any mutation
func (s *Service) validateBatchSize(size int) error {
	if size == 0 {
		return domain.ErrEmptyBatch
	}
	if size > s.batchLimit {
		return domain.ErrBatchTooLarge
	}
	return nil
}

// moverTransfer adapts the value mover to the store's in-transaction callback
func (s *Service) moverTransfer() store.TransferFunc {
	return func(ctx context.Context, asset common.Address, to common.Address, amount *big.Int) error {
		return s.mover.Transfer(ctx, asset, to, amount)
	}
}

// emit dispatches a ledger event for asynchronous publishing
func (s *Service) emit(eventID string, eventType domain.EventType, distributionID uint64, beneficiary *common.Address, amount *big.Int) {
	event := &domain.LedgerEvent{
		EventID:        eventID,
		Type:           eventType,
		DistributionID: distributionID,
		OccurredAt:     s.clock.Now(),
	}
	if beneficiary != nil {
		hex := beneficiary.Hex()
		event.Beneficiary = &hex
	}
	if amount != nil {
		value := amount.String()
		event.Amount = &value
	}
	s.sink.Dispatch(event)
}
