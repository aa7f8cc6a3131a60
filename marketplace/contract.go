package marketplace

import (
	_ "embed"
	"encoding/binary"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Marketplace contract artifacts. The programs are versioned source
// files; the service only ever works with their compiled bytes and the
// addresses derived from them.
var (
	//go:embed teal/approval.teal
	approvalSource []byte

	//go:embed teal/clear.teal
	clearSource []byte

	//go:embed teal/escrow.teal.tmpl
	escrowTemplate string
)

// Named entry points of the marketplace application.
const (
	MethodInitializeEscrow = "initialize_escrow"
	MethodMakeSellOffer    = "make_sell_offer"
	MethodBuy              = "buy"
)

// Global state: asa_id, asa_price, app_state / asa_owner, app_admin,
// escrow_address. No per-account state.
var (
	globalSchema = types.StateSchema{NumUint: 3, NumByteSlice: 3}
	localSchema  = types.StateSchema{NumUint: 0, NumByteSlice: 0}
)

// uint64Arg encodes a numeric application argument the way the
// contract expects it: 8 bytes, big endian.
func uint64Arg(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// addressArg encodes an address argument as its raw 32 bytes, not the
// checksummed string form.
func addressArg(a types.Address) []byte {
	raw := make([]byte, len(a))
	copy(raw, a[:])
	return raw
}
