// keys.go - Circuit compilation and Groth16 key persistence.

package proofs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Compile compiles a circuit over BN254.
func Compile(circuit frontend.Circuit) (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
}

// KeyStore keeps one Groth16 keypair per operation under a directory,
// named after the operation. Operation names may contain slashes; those
// map to underscores on disk.
type KeyStore struct {
	dir string
}

// NewKeyStore opens a key directory, creating it when absent.
func NewKeyStore(dir string) (*KeyStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("proofs: create key dir: %w", err)
	}
	return &KeyStore{dir: dir}, nil
}

// Ensure returns the keypair for an operation, loading it from disk when
// both files exist and generating and persisting a fresh pair otherwise.
func (ks *KeyStore) Ensure(operation string, ccs constraint.ConstraintSystem) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pkPath, vkPath := ks.paths(operation)

	pk := groth16.NewProvingKey(ecc.BN254)
	vk := groth16.NewVerifyingKey(ecc.BN254)
	pkErr := readKey(pkPath, pk)
	vkErr := readKey(vkPath, vk)
	if pkErr == nil && vkErr == nil {
		return pk, vk, nil
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("proofs: setup %s: %w", operation, err)
	}
	if err := writeKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := writeKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}

func (ks *KeyStore) paths(operation string) (pkPath, vkPath string) {
	base := strings.ReplaceAll(operation, "/", "_")
	return filepath.Join(ks.dir, base+".pk"), filepath.Join(ks.dir, base+".vk")
}

func readKey(path string, key io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = key.ReadFrom(f)
	return err
}

func writeKey(path string, key io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("proofs: write key: %w", err)
	}
	defer f.Close()
	if _, err := key.WriteTo(f); err != nil {
		return fmt.Errorf("proofs: write key: %w", err)
	}
	return nil
}
