// engine.go - Operation orchestrator.
//
// The engine composes the accumulator, spend registry, fee engine, proof
// gateway and custodian behind narrow capabilities and runs every
// operation through one fixed skeleton: validate (read-only), verify the
// proof, stage registry writes (footers before nullifiers), settle value
// through the custodian, then commit the batch and append the output
// commitments. The batch commits only after settlement succeeds, so a
// failed operation leaves no observable ledger state behind.

package engine

import (
	"errors"
	"fmt"
	"math/big"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/shadepool/shade/internal/custody"
	"github.com/shadepool/shade/internal/merkle"
	"github.com/shadepool/shade/internal/note"
	"github.com/shadepool/shade/internal/registry"
	"github.com/shadepool/shade/internal/venue"
)

var (
	// ErrUnknownRoot fires when an operation references a root outside
	// the accepted history window.
	ErrUnknownRoot = errors.New("engine: unknown root")
	// ErrRelayerNotRegistered fires for a relayer address the registry
	// does not know.
	ErrRelayerNotRegistered = errors.New("engine: relayer not registered")
	// ErrCallerNotRelayer fires when a relayer-gated operation is
	// submitted by anyone but the declared relayer.
	ErrCallerNotRelayer = errors.New("engine: caller is not the declared relayer")
	// ErrZeroAmount fires for fungible operations over a zero amount.
	ErrZeroAmount = errors.New("engine: zero amount")
	// ErrDuplicateFooter fires when sibling outputs share a footer.
	ErrDuplicateFooter = errors.New("engine: duplicate footer among outputs")
	// ErrNotAuthorized fires when the compliance oracle rejects a deposit.
	ErrNotAuthorized = errors.New("engine: depositor not authorized")
	// ErrSlippage fires when the measured venue output falls below the
	// haircut floor of the proof-declared minimum.
	ErrSlippage = errors.New("engine: venue output below slippage floor")
	// ErrArityMismatch fires when an operation's parallel slices disagree.
	ErrArityMismatch = errors.New("engine: argument arity mismatch")
	// ErrSharedOutputAsset fires when two venue lanes declare the same
	// output asset. Balance-delta measurement is per asset; shared
	// outputs would be counted once per lane.
	ErrSharedOutputAsset = errors.New("engine: lanes share an output asset")
)

// ReceiptTopic is the event bus topic receipts are published on.
const ReceiptTopic = "ledger:receipt"

// SlippageDenominator scales the slippage haircut: per mille.
const SlippageDenominator = 1000

// ComplianceOracle authorizes deposits. Consulted exactly once per
// deposit, never for any other operation.
type ComplianceOracle interface {
	IsAuthorized(observer, subject common.Address) bool
}

// RelayerRegistry answers relayer membership for relayer-gated
// operations.
type RelayerRegistry interface {
	IsRelayerRegistered(addr common.Address) bool
}

// ProofGateway is the verification capability the engine depends on.
type ProofGateway interface {
	Verify(operation string, proof []byte, publicInputs []*big.Int) error
}

// Venue executes external DeFi calls.
type Venue interface {
	Address() common.Address
	Execute(call venue.Call, recipient common.Address) error
}

// Config wires an Engine. Every capability is required except Bus,
// Metrics and Venue; a nil Venue disables swap and DeFi operations.
type Config struct {
	Hasher     note.Hasher
	Tree       *merkle.Tree
	Registry   registry.Store
	Gateway    ProofGateway
	Custodian  *custody.Custodian
	Venue      Venue
	Compliance ComplianceOracle
	Relayers   RelayerRegistry
	Bus        EventBus.Bus
	Logger     zerolog.Logger
	Metrics    *Metrics

	// Identity is the orchestrator address the custodian trusts.
	Identity common.Address
	// FeeSink receives every service fee.
	FeeSink common.Address

	FeeRatePerMillion uint64
	SlippagePerMille  uint64
}

// Engine is the single writer of all ledger state.
type Engine struct {
	hasher     note.Hasher
	tree       *merkle.Tree
	store      registry.Store
	gateway    ProofGateway
	custodian  *custody.Custodian
	venue      Venue
	compliance ComplianceOracle
	relayers   RelayerRegistry
	bus        EventBus.Bus
	log        zerolog.Logger
	metrics    *Metrics

	identity common.Address
	feeSink  common.Address
	feeRate  uint64
	slippage uint64
}

// New validates the wiring and returns the engine.
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Hasher == nil:
		return nil, errors.New("engine: nil hasher")
	case cfg.Tree == nil:
		return nil, errors.New("engine: nil accumulator")
	case cfg.Registry == nil:
		return nil, errors.New("engine: nil registry")
	case cfg.Gateway == nil:
		return nil, errors.New("engine: nil proof gateway")
	case cfg.Custodian == nil:
		return nil, errors.New("engine: nil custodian")
	case cfg.Compliance == nil:
		return nil, errors.New("engine: nil compliance oracle")
	case cfg.Relayers == nil:
		return nil, errors.New("engine: nil relayer registry")
	case cfg.SlippagePerMille > SlippageDenominator:
		return nil, errors.New("engine: slippage above denominator")
	}
	return &Engine{
		hasher:     cfg.Hasher,
		tree:       cfg.Tree,
		store:      cfg.Registry,
		gateway:    cfg.Gateway,
		custodian:  cfg.Custodian,
		venue:      cfg.Venue,
		compliance: cfg.Compliance,
		relayers:   cfg.Relayers,
		bus:        cfg.Bus,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
		identity:   cfg.Identity,
		feeSink:    cfg.FeeSink,
		feeRate:    cfg.FeeRatePerMillion,
		slippage:   cfg.SlippagePerMille,
	}, nil
}

// CurrentRoot exposes the accumulator root for clients building proofs.
func (e *Engine) CurrentRoot() common.Hash {
	return e.tree.CurrentRoot()
}

// Path exposes a membership path for a commitment.
func (e *Engine) Path(commitment common.Hash) ([]common.Hash, []bool, common.Hash, error) {
	return e.tree.Path(commitment)
}

// SetNullifierLocked applies an administrative freeze outside any batch.
func (e *Engine) SetNullifierLocked(id common.Hash, locked bool) error {
	return e.store.SetNullifierLocked(id, locked)
}

// requireCapacity checks the accumulator can absorb the operation's
// outputs. Runs during validation so a full tree never leaves a
// committed batch without its leaves.
func (e *Engine) requireCapacity(outputs int) error {
	if e.tree.Size()+uint64(outputs) > uint64(1)<<e.tree.Depth() {
		return merkle.ErrTreeFull
	}
	return nil
}

// requireKnownRoot checks the referenced root against the history window.
func (e *Engine) requireKnownRoot(root common.Hash) error {
	if !e.tree.IsKnownRoot(root) {
		return fmt.Errorf("%w: %s", ErrUnknownRoot, root.Hex())
	}
	return nil
}

// requireRelayer enforces the relayer gate: the declared relayer must be
// registered and must be the caller.
func (e *Engine) requireRelayer(caller, relayer common.Address) error {
	if !e.relayers.IsRelayerRegistered(relayer) {
		return fmt.Errorf("%w: %s", ErrRelayerNotRegistered, relayer.Hex())
	}
	if caller != relayer {
		return fmt.Errorf("%w: caller %s, relayer %s", ErrCallerNotRelayer, caller.Hex(), relayer.Hex())
	}
	return nil
}

// requireSpendableNullifier checks a nullifier is neither used nor frozen.
func (e *Engine) requireSpendableNullifier(id common.Hash) error {
	used, err := e.store.IsNullifierUsed(id)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: %s", registry.ErrNullifierUsed, id.Hex())
	}
	locked, err := e.store.IsNullifierLocked(id)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("%w: %s", registry.ErrNullifierLocked, id.Hex())
	}
	return nil
}

// requireFreshFooters checks global footer uniqueness and set-uniqueness
// among the sibling outputs of one operation.
func (e *Engine) requireFreshFooters(footers []common.Hash) error {
	seen := make(map[common.Hash]struct{}, len(footers))
	for _, f := range footers {
		if _, dup := seen[f]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateFooter, f.Hex())
		}
		seen[f] = struct{}{}
		used, err := e.store.IsFooterUsed(f)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: %s", registry.ErrNoteFooterUsed, f.Hex())
		}
	}
	return nil
}

// requireFreshCommitments checks output commitments were never created.
func (e *Engine) requireFreshCommitments(commitments []common.Hash) error {
	for _, cm := range commitments {
		created, err := e.store.IsCommitmentCreated(cm)
		if err != nil {
			return err
		}
		if created {
			return fmt.Errorf("%w: %s", registry.ErrNoteAlreadyCreated, cm.Hex())
		}
	}
	return nil
}

// stage opens a batch and marks footers first, then nullifiers, then
// commitments. The caller owns the returned batch.
func (e *Engine) stage(footers, nullifiers, commitments []common.Hash) (registry.Batch, error) {
	batch, err := e.store.Batch()
	if err != nil {
		return nil, err
	}
	for _, f := range footers {
		if err := batch.MarkFooterUsed(f); err != nil {
			batch.Discard()
			return nil, err
		}
	}
	for _, nf := range nullifiers {
		if err := batch.MarkNullifierUsed(nf); err != nil {
			batch.Discard()
			return nil, err
		}
	}
	for _, cm := range commitments {
		if err := batch.MarkCommitmentCreated(cm); err != nil {
			batch.Discard()
			return nil, err
		}
	}
	return batch, nil
}

// finish commits the batch, appends the output commitments and emits the
// receipt. Ledger state mutates here and nowhere later.
func (e *Engine) finish(batch registry.Batch, r *Receipt) error {
	if err := batch.Commit(); err != nil {
		return err
	}
	for _, cm := range r.Commitments {
		root, idx, err := e.tree.Append(cm)
		if err != nil {
			return fmt.Errorf("engine: append after commit: %w", err)
		}
		r.Root = root
		r.LeafIndices = append(r.LeafIndices, idx)
	}
	if len(r.Commitments) == 0 {
		r.Root = e.tree.CurrentRoot()
	}
	e.emit(r)
	return nil
}

func (e *Engine) emit(r *Receipt) {
	if e.metrics != nil {
		e.metrics.operation(r.Operation)
		e.metrics.treeSize(e.tree.Size())
	}
	if e.bus != nil {
		e.bus.Publish(ReceiptTopic, r)
	}
	e.log.Info().
		Str("operation", r.Operation).
		Int("nullifiers", len(r.Nullifiers)).
		Int("commitments", len(r.Commitments)).
		Str("root", r.Root.Hex()).
		Msg("operation settled")
}

// reject records a failed operation and returns the cause unchanged.
func (e *Engine) reject(operation string, err error) error {
	if e.metrics != nil {
		e.metrics.failure(operation, err)
	}
	e.log.Warn().Str("operation", operation).Err(err).Msg("operation rejected")
	return err
}
