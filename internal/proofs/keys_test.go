package proofs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark/frontend"
	"github.com/stretchr/testify/require"
)

type squareCircuit struct {
	X frontend.Variable
	Y frontend.Variable `gnark:",public"`
}

func (c *squareCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(api.Mul(c.X, c.X), c.Y)
	return nil
}

func TestKeyStoreGeneratesAndReloads(t *testing.T) {
	ccs, err := Compile(&squareCircuit{})
	require.NoError(t, err)

	dir := t.TempDir()
	ks, err := NewKeyStore(dir)
	require.NoError(t, err)

	// First run generates and persists; slashes map to underscores.
	_, vk, err := ks.Ensure("defiCall/1", ccs)
	require.NoError(t, err)
	require.NotNil(t, vk)
	pkBytes, err := os.ReadFile(filepath.Join(dir, "defiCall_1.pk"))
	require.NoError(t, err)
	require.NotEmpty(t, pkBytes)
	vkBytes, err := os.ReadFile(filepath.Join(dir, "defiCall_1.vk"))
	require.NoError(t, err)
	require.NotEmpty(t, vkBytes)

	// Second run reloads the persisted pair instead of regenerating.
	_, vk2, err := ks.Ensure("defiCall/1", ccs)
	require.NoError(t, err)
	require.NotNil(t, vk2)
	pkBytes2, err := os.ReadFile(filepath.Join(dir, "defiCall_1.pk"))
	require.NoError(t, err)
	require.Equal(t, pkBytes, pkBytes2)
}

func TestKeyStoreSeparatesOperations(t *testing.T) {
	ccs, err := Compile(&squareCircuit{})
	require.NoError(t, err)

	ks, err := NewKeyStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = ks.Ensure("deposit", ccs)
	require.NoError(t, err)
	_, _, err = ks.Ensure("withdraw", ccs)
	require.NoError(t, err)

	entries, err := os.ReadDir(ks.dir)
	require.NoError(t, err)
	require.Len(t, entries, 4)
}
