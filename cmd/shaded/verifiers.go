// verifiers.go - Circuit compilation and verifier registration.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/rs/zerolog"

	"github.com/shadepool/shade/internal/engine"
	"github.com/shadepool/shade/internal/fees"
	"github.com/shadepool/shade/internal/proofs"
	"github.com/shadepool/shade/internal/proofs/circuits"
)

type operationCircuit struct {
	name    string
	circuit frontend.Circuit
	assign  proofs.AssignmentFunc
}

func operationCircuits() []operationCircuit {
	ops := []operationCircuit{
		{engine.OpDeposit, &circuits.Deposit{}, circuits.DepositAssignment},
		{engine.OpWithdraw, &circuits.Withdraw{}, circuits.WithdrawAssignment},
		{engine.OpTransfer, circuits.NewSpend(1, 1), circuits.SpendAssignment(1, 1)},
		{engine.OpSplit, circuits.NewSpend(1, 2), circuits.SpendAssignment(1, 2)},
		{engine.OpJoin, circuits.NewSpend(2, 1), circuits.SpendAssignment(2, 1)},
		{engine.OpJoinSplit, circuits.NewSpend(2, 2), circuits.SpendAssignment(2, 2)},
		{engine.OpSwap, &circuits.Swap{}, circuits.SwapAssignment},
	}
	for lanes := 1; lanes <= fees.Lanes; lanes++ {
		ops = append(ops, operationCircuit{
			fmt.Sprintf("%s/%d", engine.OpDefiCall, lanes),
			circuits.NewDefiCall(lanes),
			circuits.DefiCallAssignment(lanes),
		})
	}
	return ops
}

// buildGateway compiles every operation circuit and registers a Groth16
// verifier per operation name. With a data directory the keypairs are
// persisted and reused; without one they are generated per run.
func buildGateway(dataDir string, log zerolog.Logger) (*proofs.Gateway, error) {
	var keys *proofs.KeyStore
	if dataDir != "" {
		var err error
		keys, err = proofs.NewKeyStore(filepath.Join(dataDir, "keys"))
		if err != nil {
			return nil, err
		}
	}

	gw := proofs.NewGateway()
	for _, op := range operationCircuits() {
		ccs, err := proofs.Compile(op.circuit)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", op.name, err)
		}

		var vk groth16.VerifyingKey
		if keys != nil {
			_, vk, err = keys.Ensure(op.name, ccs)
		} else {
			_, vk, err = groth16.Setup(ccs)
		}
		if err != nil {
			return nil, fmt.Errorf("keys for %s: %w", op.name, err)
		}

		gw.Register(op.name, proofs.NewGroth16(vk, op.assign))
		log.Debug().Str("operation", op.name).Int("constraints", ccs.GetNbConstraints()).Msg("verifier registered")
	}
	return gw, nil
}
