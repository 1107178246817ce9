package engine

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shadepool/shade/internal/custody"
	"github.com/shadepool/shade/internal/fees"
	"github.com/shadepool/shade/internal/merkle"
	"github.com/shadepool/shade/internal/note"
	"github.com/shadepool/shade/internal/registry"
	"github.com/shadepool/shade/internal/venue"
)

var (
	identity = common.HexToAddress("0x0e")
	poolAddr = common.HexToAddress("0x1000")
	ownerA   = common.HexToAddress("0x3000")
	feeSink  = common.HexToAddress("0xfee")
	deskAddr = common.HexToAddress("0xde5c")
	relayer  = common.HexToAddress("0x4e1a")
	alice    = common.HexToAddress("0xa11ce")
	bob      = common.HexToAddress("0xb0b")

	tokenA = note.FungibleAsset(common.HexToAddress("0xaa"))
	tokenB = note.FungibleAsset(common.HexToAddress("0xbb"))
)

// okGateway accepts every proof and records what it saw.
type okGateway struct {
	calls []string
}

func (g *okGateway) Verify(operation string, _ []byte, _ []*big.Int) error {
	g.calls = append(g.calls, operation)
	return nil
}

// oracle authorizes everyone except listed subjects and counts calls.
type oracle struct {
	denied map[common.Address]bool
	calls  int
}

func (o *oracle) IsAuthorized(_, subject common.Address) bool {
	o.calls++
	return !o.denied[subject]
}

type relayerSet map[common.Address]bool

func (r relayerSet) IsRelayerRegistered(addr common.Address) bool { return r[addr] }

type fixture struct {
	engine  *Engine
	gateway *okGateway
	oracle  *oracle
	bank    *custody.Bank
	desk    *venue.Desk
	store   registry.Store
	tree    *merkle.Tree
}

func newFixture(t *testing.T) *fixture {
	return newFixtureDepth(t, 8)
}

func newFixtureDepth(t *testing.T, depth int) *fixture {
	t.Helper()
	hasher := note.MiMC{}
	bank := custody.NewBank()
	desk := venue.NewDesk(bank, deskAddr)
	gw := &okGateway{}
	o := &oracle{denied: map[common.Address]bool{}}
	store := registry.NewMemory()
	tree := merkle.New(hasher, depth, 16)

	e, err := New(Config{
		Hasher:            hasher,
		Tree:              tree,
		Registry:          store,
		Gateway:           gw,
		Custodian:         custody.New(bank, poolAddr, identity, ownerA),
		Venue:             desk,
		Compliance:        o,
		Relayers:          relayerSet{relayer: true},
		Logger:            zerolog.Nop(),
		Identity:          identity,
		FeeSink:           feeSink,
		FeeRatePerMillion: 10_000, // 1%
		SlippagePerMille:  20,     // 2%
	})
	require.NoError(t, err)
	return &fixture{engine: e, gateway: gw, oracle: o, bank: bank, desk: desk, store: store, tree: tree}
}

func footer(n byte) common.Hash { return common.Hash{31: n} }

func (f *fixture) deposit(t *testing.T, asset note.Asset, amount uint64, ftr common.Hash) common.Hash {
	t.Helper()
	f.bank.MintToken(asset.Token, alice, uint256.NewInt(amount))
	n := note.NewFungible(asset, uint256.NewInt(amount), ftr)
	cm := n.Commitment(note.MiMC{})
	_, err := f.engine.Deposit(DepositArgs{
		Depositor:  alice,
		Domain:     note.DomainFungible,
		Asset:      asset,
		Amount:     uint256.NewInt(amount),
		Footer:     ftr,
		Commitment: cm,
	})
	require.NoError(t, err)
	return cm
}

func TestDepositAppendsAndCollects(t *testing.T) {
	f := newFixture(t)
	cm := f.deposit(t, tokenA, 1000, footer(1))

	require.Equal(t, uint64(1), f.tree.Size())
	created, err := f.store.IsCommitmentCreated(cm)
	require.NoError(t, err)
	require.True(t, created)

	bal, err := f.bank.TokenBalance(tokenA.Token, poolAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), bal.Uint64())
	require.Equal(t, 1, f.oracle.calls)
}

func TestDepositComplianceRejection(t *testing.T) {
	f := newFixture(t)
	f.oracle.denied[alice] = true
	f.bank.MintToken(tokenA.Token, alice, uint256.NewInt(10))

	_, err := f.engine.Deposit(DepositArgs{
		Depositor: alice, Domain: note.DomainFungible, Asset: tokenA,
		Amount: uint256.NewInt(10), Footer: footer(1), Commitment: common.Hash{1},
	})
	require.ErrorIs(t, err, ErrNotAuthorized)
	require.Empty(t, f.gateway.calls) // rejected before proof verification
	require.Zero(t, f.tree.Size())
}

func TestDepositFooterReuseRejected(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 100, footer(1))

	f.bank.MintToken(tokenA.Token, alice, uint256.NewInt(100))
	_, err := f.engine.Deposit(DepositArgs{
		Depositor: alice, Domain: note.DomainFungible, Asset: tokenA,
		Amount: uint256.NewInt(100), Footer: footer(1), Commitment: common.Hash{2},
	})
	require.ErrorIs(t, err, registry.ErrNoteFooterUsed)
}

func TestWithdrawFeeConservation(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 1000, footer(1))

	nf := common.Hash{0xf1}
	_, err := f.engine.Withdraw(WithdrawArgs{
		Caller: relayer, Root: f.tree.CurrentRoot(), Nullifier: nf,
		Domain: note.DomainFungible, Asset: tokenA,
		Amount: uint256.NewInt(1000), Recipient: bob,
		Relayer: relayer, RelayerRefund: uint256.NewInt(7),
	})
	require.NoError(t, err)

	// 1% of 1000 = 10 to the sink, 7 to the relayer, 983 to bob.
	bobBal, _ := f.bank.TokenBalance(tokenA.Token, bob)
	sinkBal, _ := f.bank.TokenBalance(tokenA.Token, feeSink)
	relBal, _ := f.bank.TokenBalance(tokenA.Token, relayer)
	poolBal, _ := f.bank.TokenBalance(tokenA.Token, poolAddr)
	require.Equal(t, uint64(983), bobBal.Uint64())
	require.Equal(t, uint64(10), sinkBal.Uint64())
	require.Equal(t, uint64(7), relBal.Uint64())
	require.True(t, poolBal.IsZero())
}

func TestWithdrawDoubleSpend(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 2000, footer(1))

	nf := common.Hash{0xf2}
	args := WithdrawArgs{
		Caller: relayer, Root: f.tree.CurrentRoot(), Nullifier: nf,
		Domain: note.DomainFungible, Asset: tokenA,
		Amount: uint256.NewInt(500), Recipient: bob,
		Relayer: relayer, RelayerRefund: new(uint256.Int),
	}
	_, err := f.engine.Withdraw(args)
	require.NoError(t, err)

	_, err = f.engine.Withdraw(args)
	require.ErrorIs(t, err, registry.ErrNullifierUsed)
}

func TestWithdrawRelayerGate(t *testing.T) {
	f := newFixture(t)
	args := WithdrawArgs{
		Caller: bob, Root: f.tree.CurrentRoot(), Nullifier: common.Hash{0xf3},
		Domain: note.DomainFungible, Asset: tokenA,
		Amount: uint256.NewInt(1), Recipient: bob,
		Relayer: relayer, RelayerRefund: new(uint256.Int),
	}
	_, err := f.engine.Withdraw(args)
	require.ErrorIs(t, err, ErrCallerNotRelayer)

	args.Caller = bob
	args.Relayer = bob
	_, err = f.engine.Withdraw(args)
	require.ErrorIs(t, err, ErrRelayerNotRegistered)
}

func TestWithdrawStaleRoot(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Withdraw(WithdrawArgs{
		Caller: relayer, Root: common.Hash{0xde, 0xad}, Nullifier: common.Hash{0xf4},
		Domain: note.DomainFungible, Asset: tokenA,
		Amount: uint256.NewInt(1), Recipient: bob,
		Relayer: relayer, RelayerRefund: new(uint256.Int),
	})
	require.ErrorIs(t, err, ErrUnknownRoot)
}

func TestLockedNullifierRejected(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 100, footer(1))
	nf := common.Hash{0xf5}
	require.NoError(t, f.engine.SetNullifierLocked(nf, true))

	_, err := f.engine.Withdraw(WithdrawArgs{
		Caller: relayer, Root: f.tree.CurrentRoot(), Nullifier: nf,
		Domain: note.DomainFungible, Asset: tokenA,
		Amount: uint256.NewInt(1), Recipient: bob,
		Relayer: relayer, RelayerRefund: new(uint256.Int),
	})
	require.ErrorIs(t, err, registry.ErrNullifierLocked)
}

func TestTransferRecommits(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 100, footer(1))

	nf := common.Hash{0xaa}
	cm := common.Hash{0xbb}
	r, err := f.engine.Transfer(TransferArgs{
		Caller: alice, Root: f.tree.CurrentRoot(), Domain: note.DomainFungible, Asset: tokenA,
		Nullifiers:     []common.Hash{nf},
		NewCommitments: []common.Hash{cm},
		Footers:        []common.Hash{footer(2)},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(2), f.tree.Size())
	require.Equal(t, []uint64{1}, r.LeafIndices)

	used, _ := f.store.IsNullifierUsed(nf)
	require.True(t, used)
}

func TestSplitDuplicateFootersFailBeforeProof(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 100, footer(1))
	verified := len(f.gateway.calls)

	_, err := f.engine.Split(SplitArgs{
		Caller: alice, Root: f.tree.CurrentRoot(), Domain: note.DomainFungible, Asset: tokenA,
		Nullifiers:     []common.Hash{{0xa1}},
		NewCommitments: []common.Hash{{0xb1}, {0xb2}},
		Footers:        []common.Hash{footer(3), footer(3)},
	})
	require.ErrorIs(t, err, ErrDuplicateFooter)
	require.Len(t, f.gateway.calls, verified) // never reached the verifier
}

func TestJoinSplitArity(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.JoinSplit(JoinSplitArgs{
		Caller: alice, Root: f.tree.CurrentRoot(), Domain: note.DomainFungible, Asset: tokenA,
		Nullifiers:     []common.Hash{{0xa1}},
		NewCommitments: []common.Hash{{0xb1}, {0xb2}},
		Footers:        []common.Hash{footer(4), footer(5)},
	})
	require.ErrorIs(t, err, ErrArityMismatch)
}

func swapArgs(root common.Hash) SwapArgs {
	return SwapArgs{
		Caller: alice, Root: root,
		Nullifier: common.Hash{0xc1}, NewCommitment: common.Hash{0xc2}, OutFooter: footer(6),
		Domain: note.DomainFungible,
		AssetIn: tokenA, AmountIn: uint256.NewInt(1000),
		AssetOut: tokenB, MinOut: uint256.NewInt(980),
	}
}

func TestSwapMeasuresBalanceDelta(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 1000, footer(1))
	f.bank.MintToken(tokenB.Token, deskAddr, uint256.NewInt(10_000))
	f.desk.Quote(tokenA, tokenB, 990_000) // 0.99

	r, err := f.engine.Swap(swapArgs(f.tree.CurrentRoot()))
	require.NoError(t, err)
	require.Len(t, r.MeasuredOut, 1)
	require.Equal(t, uint64(990), r.MeasuredOut[0].Uint64())

	used, _ := f.store.IsNullifierUsed(common.Hash{0xc1})
	require.True(t, used)
	locked, _ := f.store.IsNullifierLocked(common.Hash{0xc1})
	require.False(t, locked) // freeze lifted after commit

	poolB, _ := f.bank.TokenBalance(tokenB.Token, poolAddr)
	require.Equal(t, uint64(990), poolB.Uint64())
}

func TestSwapVenueFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 1000, footer(1))
	f.desk.Quote(tokenA, tokenB, 990_000)
	f.desk.Fail = venue.ErrNoQuote
	sizeBefore := f.tree.Size()

	_, err := f.engine.Swap(swapArgs(f.tree.CurrentRoot()))
	require.Error(t, err)

	// Nullifier spendable, footer fresh, commitment absent, no appends,
	// no fee, and the input funds recovered into the pool.
	used, _ := f.store.IsNullifierUsed(common.Hash{0xc1})
	require.False(t, used)
	locked, _ := f.store.IsNullifierLocked(common.Hash{0xc1})
	require.False(t, locked)
	ftrUsed, _ := f.store.IsFooterUsed(footer(6))
	require.False(t, ftrUsed)
	created, _ := f.store.IsCommitmentCreated(common.Hash{0xc2})
	require.False(t, created)
	require.Equal(t, sizeBefore, f.tree.Size())

	sinkBal, _ := f.bank.TokenBalance(tokenB.Token, feeSink)
	require.True(t, sinkBal.IsZero())
	poolA, _ := f.bank.TokenBalance(tokenA.Token, poolAddr)
	require.Equal(t, uint64(1000), poolA.Uint64())
}

func TestSwapSlippageEnforced(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 1000, footer(1))
	f.bank.MintToken(tokenB.Token, deskAddr, uint256.NewInt(10_000))
	f.desk.Quote(tokenA, tokenB, 990_000)
	// Haircut floor at 2% of 980 is 961; a shortfall of 50 lands at 940.
	f.desk.Shortfall = uint256.NewInt(50)

	_, err := f.engine.Swap(swapArgs(f.tree.CurrentRoot()))
	require.ErrorIs(t, err, ErrSlippage)

	used, _ := f.store.IsNullifierUsed(common.Hash{0xc1})
	require.False(t, used)
	locked, _ := f.store.IsNullifierLocked(common.Hash{0xc1})
	require.False(t, locked)
}

func TestDefiCallChargesFeesOnMeasuredOutput(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 1000, footer(1))
	f.bank.MintToken(tokenB.Token, deskAddr, uint256.NewInt(10_000))
	f.desk.Quote(tokenA, tokenB, 1_000_000) // 1:1

	r, err := f.engine.DefiCall(DefiCallArgs{
		Caller: relayer, Relayer: relayer,
		Root: f.tree.CurrentRoot(), Domain: note.DomainFungible,
		Lanes: []VenueLane{{
			Nullifier: common.Hash{0xd1}, NewCommitment: common.Hash{0xd2}, OutFooter: footer(7),
			AssetIn: tokenA, AmountIn: uint256.NewInt(1000),
			AssetOut: tokenB, MinOut: uint256.NewInt(990),
			RelayerRefund: uint256.NewInt(5),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1000), r.MeasuredOut[0].Uint64())
	require.Contains(t, f.gateway.calls, "defiCall/1")

	// 1% of the measured 1000 to the sink, 5 to the relayer.
	sinkBal, _ := f.bank.TokenBalance(tokenB.Token, feeSink)
	relBal, _ := f.bank.TokenBalance(tokenB.Token, relayer)
	require.Equal(t, uint64(10), sinkBal.Uint64())
	require.Equal(t, uint64(5), relBal.Uint64())
}

func TestDefiCallDuplicateNullifierAcrossLanes(t *testing.T) {
	f := newFixture(t)
	lane := VenueLane{
		Nullifier: common.Hash{0xd3}, NewCommitment: common.Hash{0xd4}, OutFooter: footer(8),
		AssetIn: tokenA, AmountIn: uint256.NewInt(1),
		AssetOut: tokenB, MinOut: uint256.NewInt(1),
	}
	lane2 := lane
	lane2.NewCommitment = common.Hash{0xd5}
	lane2.OutFooter = footer(9)

	_, err := f.engine.DefiCall(DefiCallArgs{
		Caller: relayer, Relayer: relayer,
		Root: f.tree.CurrentRoot(), Domain: note.DomainFungible,
		Lanes: []VenueLane{lane, lane2},
	})
	require.ErrorIs(t, err, registry.ErrNullifierUsed)
}

func TestDefiCallFeeFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 1000, footer(1))
	f.bank.MintToken(tokenB.Token, deskAddr, uint256.NewInt(10_000))
	f.desk.Quote(tokenA, tokenB, 1_000_000) // 1:1
	sizeBefore := f.tree.Size()

	// Refund above the measured output: the fee split cannot fit, and the
	// failure lands after the venue already ran.
	_, err := f.engine.DefiCall(DefiCallArgs{
		Caller: relayer, Relayer: relayer,
		Root: f.tree.CurrentRoot(), Domain: note.DomainFungible,
		Lanes: []VenueLane{{
			Nullifier: common.Hash{0xe1}, NewCommitment: common.Hash{0xe2}, OutFooter: footer(10),
			AssetIn: tokenA, AmountIn: uint256.NewInt(1000),
			AssetOut: tokenB, MinOut: uint256.NewInt(990),
			RelayerRefund: uint256.NewInt(2000),
		}},
	})
	require.ErrorIs(t, err, fees.ErrFeeExceedsAmount)

	used, _ := f.store.IsNullifierUsed(common.Hash{0xe1})
	require.False(t, used)
	locked, _ := f.store.IsNullifierLocked(common.Hash{0xe1})
	require.False(t, locked)
	created, _ := f.store.IsCommitmentCreated(common.Hash{0xe2})
	require.False(t, created)
	ftrUsed, _ := f.store.IsFooterUsed(footer(10))
	require.False(t, ftrUsed)
	require.Equal(t, sizeBefore, f.tree.Size())

	// Neither fee leg paid out.
	sinkBal, _ := f.bank.TokenBalance(tokenB.Token, feeSink)
	require.True(t, sinkBal.IsZero())
	relBal, _ := f.bank.TokenBalance(tokenB.Token, relayer)
	require.True(t, relBal.IsZero())
}

func TestDefiCallSharedOutputAssetRejected(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 1000, footer(1))
	verified := len(f.gateway.calls)

	_, err := f.engine.DefiCall(DefiCallArgs{
		Caller: relayer, Relayer: relayer,
		Root: f.tree.CurrentRoot(), Domain: note.DomainFungible,
		Lanes: []VenueLane{
			{
				Nullifier: common.Hash{0xe3}, NewCommitment: common.Hash{0xe4}, OutFooter: footer(11),
				AssetIn: tokenA, AmountIn: uint256.NewInt(100),
				AssetOut: tokenB, MinOut: uint256.NewInt(100),
			},
			{
				Nullifier: common.Hash{0xe5}, NewCommitment: common.Hash{0xe6}, OutFooter: footer(12),
				AssetIn: tokenA, AmountIn: uint256.NewInt(100),
				AssetOut: tokenB, MinOut: uint256.NewInt(100),
			},
		},
	})
	require.ErrorIs(t, err, ErrSharedOutputAsset)
	require.Len(t, f.gateway.calls, verified) // never reached the verifier
}

func TestWithdrawNilRefundTreatedAsZero(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 1000, footer(1))

	_, err := f.engine.Withdraw(WithdrawArgs{
		Caller: relayer, Root: f.tree.CurrentRoot(), Nullifier: common.Hash{0xe7},
		Domain: note.DomainFungible, Asset: tokenA,
		Amount: uint256.NewInt(1000), Recipient: bob,
		Relayer: relayer,
	})
	require.NoError(t, err)

	bobBal, _ := f.bank.TokenBalance(tokenA.Token, bob)
	relBal, _ := f.bank.TokenBalance(tokenA.Token, relayer)
	require.Equal(t, uint64(990), bobBal.Uint64())
	require.True(t, relBal.IsZero())
}

func TestFullTreeRejectedBeforeStaging(t *testing.T) {
	f := newFixtureDepth(t, 1) // capacity 2
	f.deposit(t, tokenA, 100, footer(1))
	f.deposit(t, tokenA, 100, footer(2))

	f.bank.MintToken(tokenA.Token, alice, uint256.NewInt(100))
	_, err := f.engine.Deposit(DepositArgs{
		Depositor: alice, Domain: note.DomainFungible, Asset: tokenA,
		Amount: uint256.NewInt(100), Footer: footer(3), Commitment: common.Hash{0xe8},
	})
	require.ErrorIs(t, err, merkle.ErrTreeFull)

	// Rejected during validation: the footer stays fresh and the pool
	// never collected the funds.
	ftrUsed, _ := f.store.IsFooterUsed(footer(3))
	require.False(t, ftrUsed)
	require.Equal(t, uint64(2), f.tree.Size())
	aliceBal, _ := f.bank.TokenBalance(tokenA.Token, alice)
	require.Equal(t, uint64(100), aliceBal.Uint64())
}

func TestJoinDuplicateInputNullifiers(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, tokenA, 100, footer(1))
	verified := len(f.gateway.calls)

	nf := common.Hash{0xe9}
	_, err := f.engine.Join(JoinArgs{
		Caller: alice, Root: f.tree.CurrentRoot(), Domain: note.DomainFungible, Asset: tokenA,
		Nullifiers:     []common.Hash{nf, nf},
		NewCommitments: []common.Hash{{0xea}},
		Footers:        []common.Hash{footer(13)},
	})
	require.ErrorIs(t, err, registry.ErrNullifierUsed)
	require.Len(t, f.gateway.calls, verified) // never reached the verifier

	used, _ := f.store.IsNullifierUsed(nf)
	require.False(t, used)
}
