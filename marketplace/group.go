package marketplace

import (
	"crypto/ed25519"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Group is an ordered set of transactions bound by one group id. The
// ledger accepts the set only as a whole: every member carries the id
// and every member must validate, or none of them commit.
type Group struct {
	id    types.Digest
	txns  []types.Transaction
	legs  [][]byte
	txids []string
}

// AssembleGroup computes the group id over the canonical encoding of
// the transactions in the given order and stamps it on every member.
// The digest is order sensitive: the same transactions in a different
// order form a different, incompatible group. Stamping happens before
// any member can be authorized, so a signature always covers the id.
func AssembleGroup(txns ...types.Transaction) (*Group, error) {
	if len(txns) == 0 {
		return nil, ErrEmptyGroup
	}

	gid, err := crypto.ComputeGroupID(txns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyGroup, err)
	}

	for i := range txns {
		txns[i].Group = gid
	}

	return &Group{
		id:    gid,
		txns:  txns,
		legs:  make([][]byte, len(txns)),
		txids: make([]string, len(txns)),
	}, nil
}

// ID is the digest binding the group.
func (g *Group) ID() types.Digest {
	return g.id
}

// Len is the number of member transactions.
func (g *Group) Len() int {
	return len(g.txns)
}

// SignLeg authorizes one member with a participant's private key.
func (g *Group) SignLeg(i int, sk ed25519.PrivateKey) error {
	if i < 0 || i >= len(g.txns) {
		return ErrLegOutOfRange
	}

	txid, stx, err := crypto.SignTransaction(sk, g.txns[i])
	if err != nil {
		return fmt.Errorf("sign group member %d: %w", i, err)
	}

	g.txids[i] = txid
	g.legs[i] = stx
	return nil
}

// AuthorizeLeg authorizes one member with the escrow's program logic
// instead of a signature. The network evaluates the compiled program
// against the transaction and accepts the leg only if the logic
// permits that specific transfer.
func (g *Group) AuthorizeLeg(i int, esc *Escrow) error {
	if i < 0 || i >= len(g.txns) {
		return ErrLegOutOfRange
	}
	if esc == nil || len(esc.Program) == 0 {
		return ErrMissingProgram
	}

	txid, stx, err := crypto.SignLogicSigAccountTransaction(esc.lsig, g.txns[i])
	if err != nil {
		return fmt.Errorf("authorize group member %d: %w", i, err)
	}

	g.txids[i] = txid
	g.legs[i] = stx
	return nil
}

// Raw concatenates the authorized members for submission in a single
// network call. Partial submission is not a thing: Raw refuses to
// produce bytes while any member is still unauthorized.
func (g *Group) Raw() ([]byte, error) {
	var raw []byte
	for i, leg := range g.legs {
		if leg == nil {
			return nil, fmt.Errorf("%w: member %d", ErrGroupNotAuthorized, i)
		}
		raw = append(raw, leg...)
	}
	return raw, nil
}
