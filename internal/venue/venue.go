// venue.go - External DeFi venue boundary.
//
// A venue is an opaque counterparty: the ledger hands it funds, lets it
// run, and measures what came back by custodian balance deltas. Nothing
// a venue reports about itself is trusted.

package venue

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shadepool/shade/internal/note"
)

// Call describes one venue invocation. AmountsIn are already sitting at
// the venue's address when Execute runs; MinOuts are advisory only and
// never substitute for measurement.
type Call struct {
	AssetsIn  []note.Asset
	AmountsIn []*uint256.Int
	AssetsOut []note.Asset
	MinOuts   []*uint256.Int
	Data      []byte // venue-specific payload, opaque to the ledger
}

// Venue executes calls against an external protocol.
type Venue interface {
	// Address is where input funds are delivered before Execute.
	Address() common.Address
	// Execute runs the call. Output funds must be sent back to the
	// caller-designated recipient before Execute returns.
	Execute(call Call, recipient common.Address) error
}
