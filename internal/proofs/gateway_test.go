package proofs

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingVerifier struct {
	calls  int
	proof  []byte
	inputs []*big.Int
	err    error
}

func (r *recordingVerifier) Verify(proof []byte, inputs []*big.Int) error {
	r.calls++
	r.proof = proof
	r.inputs = inputs
	return r.err
}

func TestGatewayDispatchByOperationName(t *testing.T) {
	g := NewGateway()
	dep := &recordingVerifier{}
	wdr := &recordingVerifier{}
	g.Register("deposit", dep)
	g.Register("withdraw", wdr)

	inputs := []*big.Int{big.NewInt(1), big.NewInt(2)}
	require.NoError(t, g.Verify("deposit", []byte("proof"), inputs))
	require.Equal(t, 1, dep.calls)
	require.Equal(t, 0, wdr.calls)
	require.Equal(t, []byte("proof"), dep.proof)
	require.Equal(t, inputs, dep.inputs)
}

func TestGatewayUnknownOperation(t *testing.T) {
	g := NewGateway()
	err := g.Verify("curveAddLiquidity", nil, nil)
	require.ErrorIs(t, err, ErrUnknownOperation)
}

func TestGatewayInvalidProofIsHardStop(t *testing.T) {
	g := NewGateway()
	g.Register("transfer", &recordingVerifier{err: errors.New("pairing check failed")})
	err := g.Verify("transfer", nil, nil)
	require.ErrorIs(t, err, ErrInvalidProof)
	require.Contains(t, err.Error(), "transfer")
}

func TestVerifierFunc(t *testing.T) {
	called := false
	g := NewGateway()
	g.Register("swap", VerifierFunc(func([]byte, []*big.Int) error {
		called = true
		return nil
	}))
	require.NoError(t, g.Verify("swap", nil, nil))
	require.True(t, called)
}
