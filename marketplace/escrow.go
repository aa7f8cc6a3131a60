package marketplace

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Escrow is the keyless custody account of one token: an address
// derived from a compiled program, controlled purely by that program's
// logic. Nobody holds a private key for it.
type Escrow struct {
	Address types.Address
	Program []byte

	lsig crypto.LogicSigAccount
}

type escrowKey struct {
	appID   uint64
	assetID uint64
}

// EscrowAuthority derives escrow accounts from (application id, asset
// id) pairs. Derivation is deterministic: the fixed template is
// parameterized with the two ids, compiled, and hashed per the
// ledger's program-address rule, so the same pair always yields the
// same address. Compiled programs are kept and reused for authorizing
// the asset-release leg of every later sale.
type EscrowAuthority struct {
	gw Gateway

	sync.Mutex
	compiled map[escrowKey]*Escrow
}

func NewEscrowAuthority(gw Gateway) *EscrowAuthority {
	return &EscrowAuthority{
		gw:       gw,
		compiled: make(map[escrowKey]*Escrow),
	}
}

// Derive returns the escrow for the (appID, assetID) pair.
func (e *EscrowAuthority) Derive(ctx context.Context, appID, assetID uint64) (*Escrow, error) {
	if appID == 0 || assetID == 0 {
		return nil, fmt.Errorf("%w: app %d asset %d", ErrBadProgramParameter, appID, assetID)
	}

	key := escrowKey{appID, assetID}

	e.Lock()
	esc := e.compiled[key]
	e.Unlock()
	if esc != nil {
		return esc, nil
	}

	source := strings.NewReplacer(
		"TMPL_APP_ID", strconv.FormatUint(appID, 10),
		"TMPL_ASA_ID", strconv.FormatUint(assetID, 10),
	).Replace(escrowTemplate)
	if strings.Contains(source, "TMPL_") {
		return nil, fmt.Errorf("%w: unresolved template marker", ErrBadProgramParameter)
	}

	program, err := e.gw.CompileProgram(ctx, []byte(source))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadProgramParameter, err)
	}

	lsig, err := crypto.MakeLogicSigAccountEscrowChecked(program, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadProgramParameter, err)
	}

	addr, err := lsig.Address()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadProgramParameter, err)
	}

	esc = &Escrow{Address: addr, Program: program, lsig: lsig}

	e.Lock()
	e.compiled[key] = esc
	e.Unlock()

	return esc, nil
}
