package circuits

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadepool/shade/internal/note"
)

var hasher = note.MiMC{}

// nativeCommitment mirrors note.Note.Commitment over raw field elements.
func nativeCommitment(domain, asset, amount, footer *big.Int) *big.Int {
	return note.HashToField(hasher.Hash(domain, asset, amount, footer))
}

func nativeNullifier(spendKey, commitment *big.Int) *big.Int {
	return note.HashToField(hasher.Hash(spendKey, commitment))
}

func TestDepositCircuitMatchesNativeHash(t *testing.T) {
	assert := test.NewAssert(t)

	domain := big.NewInt(int64(note.DomainFungible))
	asset := note.FungibleAsset(common.HexToAddress("0x01")).Bytify(hasher)
	amount := big.NewInt(100)
	footer := note.ToField(common.HexToHash("0xf1").Bytes())
	cm := nativeCommitment(domain, asset, amount, footer)

	assert.CheckCircuit(&Deposit{},
		test.WithValidAssignment(&Deposit{
			Commitment: cm, Domain: domain, Asset: asset, Amount: amount, Footer: footer,
		}),
		test.WithInvalidAssignment(&Deposit{
			Commitment: new(big.Int).Add(cm, big.NewInt(1)),
			Domain:     domain, Asset: asset, Amount: amount, Footer: footer,
		}),
		test.WithCurves(ecc.BN254),
	)
}

func TestWithdrawCircuit(t *testing.T) {
	assert := test.NewAssert(t)

	domain := big.NewInt(int64(note.DomainFungible))
	asset := note.FungibleAsset(common.HexToAddress("0x02")).Bytify(hasher)
	amount := big.NewInt(500)
	footer := note.ToField(common.HexToHash("0xf2").Bytes())
	spendKey := big.NewInt(777)

	cm := nativeCommitment(domain, asset, amount, footer)
	nf := nativeNullifier(spendKey, cm)

	valid := &Withdraw{
		Root: big.NewInt(1), Nullifier: nf,
		Domain: domain, Asset: asset, Amount: amount,
		Recipient: big.NewInt(10), Relayer: big.NewInt(11), RelayerRefund: big.NewInt(3),
		SpendKey: spendKey, Footer: footer,
	}
	invalid := &Withdraw{
		Root: big.NewInt(1), Nullifier: nf,
		Domain: domain, Asset: asset, Amount: new(big.Int).Add(amount, big.NewInt(1)),
		Recipient: big.NewInt(10), Relayer: big.NewInt(11), RelayerRefund: big.NewInt(3),
		SpendKey: spendKey, Footer: footer,
	}

	assert.CheckCircuit(&Withdraw{},
		test.WithValidAssignment(valid),
		test.WithInvalidAssignment(invalid),
		test.WithCurves(ecc.BN254),
	)
}

func TestSpendCircuitJoinSplit(t *testing.T) {
	assert := test.NewAssert(t)

	domain := big.NewInt(int64(note.DomainFungible))
	asset := note.FungibleAsset(common.HexToAddress("0x03")).Bytify(hasher)

	inAmounts := []*big.Int{big.NewInt(60), big.NewInt(40)}
	inFooters := []*big.Int{big.NewInt(101), big.NewInt(102)}
	spendKeys := []*big.Int{big.NewInt(1), big.NewInt(2)}
	outAmounts := []*big.Int{big.NewInt(30), big.NewInt(70)}
	outFooters := []*big.Int{big.NewInt(201), big.NewInt(202)}

	valid := NewSpend(2, 2)
	valid.Root = big.NewInt(9)
	valid.Domain = domain
	valid.Asset = asset
	for i := 0; i < 2; i++ {
		cm := nativeCommitment(domain, asset, inAmounts[i], inFooters[i])
		valid.Nullifiers[i] = nativeNullifier(spendKeys[i], cm)
		valid.SpendKeys[i] = spendKeys[i]
		valid.InAmounts[i] = inAmounts[i]
		valid.InFooters[i] = inFooters[i]
		valid.NewCommitments[i] = nativeCommitment(domain, asset, outAmounts[i], outFooters[i])
		valid.OutAmounts[i] = outAmounts[i]
		valid.OutFooters[i] = outFooters[i]
	}

	// Breaking conservation must fail: outputs sum to more than inputs.
	invalid := NewSpend(2, 2)
	*invalid = *valid
	invalid.OutAmounts = []frontend.Variable{big.NewInt(31), big.NewInt(70)}

	assert.CheckCircuit(NewSpend(2, 2),
		test.WithValidAssignment(valid),
		test.WithInvalidAssignment(invalid),
		test.WithCurves(ecc.BN254),
	)
}

func TestSwapCircuit(t *testing.T) {
	assert := test.NewAssert(t)

	domain := big.NewInt(int64(note.DomainFungible))
	assetIn := note.FungibleAsset(common.HexToAddress("0x0a")).Bytify(hasher)
	assetOut := note.FungibleAsset(common.HexToAddress("0x0b")).Bytify(hasher)
	amountIn := big.NewInt(1000)
	minOut := big.NewInt(990)
	inFooter := big.NewInt(301)
	outFooter := big.NewInt(302)
	spendKey := big.NewInt(5)

	cmIn := nativeCommitment(domain, assetIn, amountIn, inFooter)
	nf := nativeNullifier(spendKey, cmIn)
	cmOut := nativeCommitment(domain, assetOut, minOut, outFooter)

	assert.CheckCircuit(&Swap{},
		test.WithValidAssignment(&Swap{
			Root: big.NewInt(1), Nullifier: nf, NewCommitment: cmOut,
			Domain: domain, AssetIn: assetIn, AmountIn: amountIn,
			AssetOut: assetOut, MinOut: minOut,
			SpendKey: spendKey, InFooter: inFooter, OutFooter: outFooter,
		}),
		test.WithCurves(ecc.BN254),
	)
}

func TestAssignmentArity(t *testing.T) {
	if _, err := DepositAssignment(make([]*big.Int, 4)); err == nil {
		t.Fatal("short deposit vector must be rejected")
	}
	if _, err := SpendAssignment(2, 2)(make([]*big.Int, 6)); err == nil {
		t.Fatal("short spend vector must be rejected")
	}
	in := make([]*big.Int, 7)
	for i := range in {
		in[i] = big.NewInt(int64(i))
	}
	c, err := SpendAssignment(2, 2)(append(in, big.NewInt(7)))
	if err != nil {
		t.Fatalf("SpendAssignment: %v", err)
	}
	if c == nil {
		t.Fatal("nil circuit")
	}
}

// uint256 amounts round-trip through the assignment path unchanged.
func TestAssignmentAcceptsFullWidthAmounts(t *testing.T) {
	amount := uint256.NewInt(1).ToBig()
	c, err := DepositAssignment([]*big.Int{
		big.NewInt(1), big.NewInt(1), big.NewInt(1), amount, big.NewInt(1),
	})
	if err != nil {
		t.Fatalf("DepositAssignment: %v", err)
	}
	if c == nil {
		t.Fatal("nil circuit")
	}
}
