package marketplace

import (
	"bytes"
	"context"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// fakeLedger is an in-memory Gateway for tests. It applies a submitted
// group with the same all-or-nothing contract as the real network:
// every member must carry the correct group id and validate, or no
// state changes at all.
type fakeLedger struct {
	mu sync.Mutex

	nextAsset uint64
	nextApp   uint64
	round     uint64
	txSeq     int

	balances map[types.Address]uint64
	holdings map[types.Address]map[uint64]uint64
	assets   map[uint64]*fakeAsset
	apps     map[uint64]*fakeApp
	pending  map[string]PendingInfo

	lastCompiled []byte

	failPayments  bool
	failAppCreate bool
}

type fakeAsset struct {
	creator  types.Address
	clawback types.Address
	params   types.AssetParams
}

const (
	appStateNew = iota
	appStateEscrowSet
	appStateSelling
)

type fakeApp struct {
	assetID uint64
	admin   types.Address
	owner   types.Address
	escrow  types.Address
	price   uint64
	state   int
}

var testGenesisHash = sha512.Sum512_256([]byte("marketplace-test-genesis"))

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		nextAsset: 100,
		nextApp:   1000,
		balances:  make(map[types.Address]uint64),
		holdings:  make(map[types.Address]map[uint64]uint64),
		assets:    make(map[uint64]*fakeAsset),
		apps:      make(map[uint64]*fakeApp),
		pending:   make(map[string]PendingInfo),
	}
}

func (l *fakeLedger) fund(addr types.Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] += amount
}

func (l *fakeLedger) balance(addr types.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr]
}

func (l *fakeLedger) holding(addr types.Address, assetID uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holdings[addr][assetID]
}

func (l *fakeLedger) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	return types.SuggestedParams{
		Fee:             1000,
		FlatFee:         true,
		FirstRoundValid: 1,
		LastRoundValid:  1001,
		GenesisID:       "marketplace-test-v1",
		GenesisHash:     testGenesisHash[:],
	}, nil
}

func (l *fakeLedger) CompileProgram(ctx context.Context, source []byte) ([]byte, error) {
	if len(source) == 0 {
		return nil, errors.New("empty program source")
	}
	digest := sha512.Sum512_256(source)
	l.mu.Lock()
	l.lastCompiled = source
	l.mu.Unlock()
	return append([]byte{0x04}, digest[:]...), nil
}

func (l *fakeLedger) AssetHolding(ctx context.Context, addr types.Address, assetID uint64) (AssetHolding, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	amount, ok := l.holdings[addr][assetID]
	return AssetHolding{OptedIn: ok, Amount: amount}, nil
}

func (l *fakeLedger) WaitForConfirmation(ctx context.Context, txid string) (PendingInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, ok := l.pending[txid]
	if !ok {
		return PendingInfo{}, fmt.Errorf("unknown transaction %s", txid)
	}
	return info, nil
}

func (l *fakeLedger) Submit(ctx context.Context, raw []byte) (string, error) {
	stxns, err := decodeSignedTxns(raw)
	if err != nil {
		return "", err
	}
	if len(stxns) == 0 {
		return "", errors.New("empty submission")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(stxns) > 1 {
		if err := checkGroupBinding(stxns); err != nil {
			return "", err
		}
	}

	// validate every member before applying anything
	for i := range stxns {
		if err := l.validate(&stxns[i], stxns); err != nil {
			return "", fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	l.round++
	info := PendingInfo{ConfirmedRound: l.round}
	for i := range stxns {
		applied := l.apply(&stxns[i].Txn)
		if applied.AssetIndex != 0 {
			info.AssetIndex = applied.AssetIndex
		}
		if applied.ApplicationIndex != 0 {
			info.ApplicationIndex = applied.ApplicationIndex
		}
	}

	l.txSeq++
	txid := fmt.Sprintf("tx-%d", l.txSeq)
	l.pending[txid] = info
	return txid, nil
}

func decodeSignedTxns(raw []byte) ([]types.SignedTxn, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	var out []types.SignedTxn
	for {
		var st types.SignedTxn
		err := dec.Decode(&st)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// checkGroupBinding recomputes the group digest over the members in
// submission order and requires every member to carry it.
func checkGroupBinding(stxns []types.SignedTxn) error {
	txns := make([]types.Transaction, len(stxns))
	for i := range stxns {
		txns[i] = stxns[i].Txn
		txns[i].Group = types.Digest{}
	}

	gid, err := crypto.ComputeGroupID(txns)
	if err != nil {
		return err
	}

	for i := range stxns {
		if stxns[i].Txn.Group != gid {
			return fmt.Errorf("transaction %d has an invalid group id", i)
		}
	}
	return nil
}

func (l *fakeLedger) validate(st *types.SignedTxn, group []types.SignedTxn) error {
	txn := &st.Txn

	// authorization first: either a signature or program logic whose
	// derived address is the sender
	if len(st.Lsig.Logic) > 0 {
		if crypto.AddressFromProgram(st.Lsig.Logic) != txn.Sender {
			return errors.New("logic signature does not control the sender")
		}
	} else if st.Sig == (types.Signature{}) {
		return errors.New("missing signature")
	}

	switch txn.Type {
	case types.PaymentTx:
		if l.failPayments {
			return errors.New("payment leg rejected")
		}
		if l.balances[txn.Sender] < uint64(txn.Amount) {
			return errors.New("insufficient balance")
		}
	case types.AssetConfigTx:
		if txn.ConfigAsset != 0 {
			if _, ok := l.assets[uint64(txn.ConfigAsset)]; !ok {
				return errors.New("unknown asset")
			}
		}
	case types.AssetTransferTx:
		return l.validateAssetTransfer(st)
	case types.ApplicationCallTx:
		return l.validateAppCall(txn, group)
	default:
		return fmt.Errorf("unsupported transaction type %s", txn.Type)
	}
	return nil
}

func (l *fakeLedger) validateAssetTransfer(st *types.SignedTxn) error {
	txn := &st.Txn
	assetID := uint64(txn.XferAsset)

	asset, ok := l.assets[assetID]
	if !ok {
		return errors.New("unknown asset")
	}

	// opt-in: zero self-transfer
	if txn.AssetSender.IsZero() && txn.AssetAmount == 0 && txn.AssetReceiver == txn.Sender {
		return nil
	}

	if !txn.AssetSender.IsZero() {
		// clawback transfer, only the clawback authority may do this
		if txn.Sender != asset.clawback {
			return errors.New("sender is not the clawback authority")
		}
		if len(st.Lsig.Logic) == 0 {
			return errors.New("escrow leg must be logic-authorized")
		}
		if l.holdings[txn.AssetSender][assetID] < txn.AssetAmount {
			return errors.New("revocation target does not hold the asset")
		}
	} else if l.holdings[txn.Sender][assetID] < txn.AssetAmount {
		return errors.New("sender does not hold the asset")
	}

	if _, ok := l.holdings[txn.AssetReceiver][assetID]; !ok {
		return errors.New("receiver is not opted in")
	}
	return nil
}

func (l *fakeLedger) validateAppCall(txn *types.Transaction, group []types.SignedTxn) error {
	if txn.ApplicationID == 0 {
		if l.failAppCreate {
			return errors.New("application creation rejected")
		}
		if len(txn.ApplicationArgs) != 2 {
			return errors.New("creation expects owner and admin arguments")
		}
		if len(txn.ForeignAssets) != 1 {
			return errors.New("creation expects the asset reference")
		}
		return nil
	}

	app, ok := l.apps[uint64(txn.ApplicationID)]
	if !ok {
		return errors.New("unknown application")
	}
	if len(txn.ApplicationArgs) == 0 {
		return errors.New("missing method argument")
	}

	switch string(txn.ApplicationArgs[0]) {
	case MethodInitializeEscrow:
		if txn.Sender != app.admin {
			return errors.New("only the admin may initialize the escrow")
		}
		if app.state != appStateNew {
			return errors.New("escrow already initialized")
		}
	case MethodMakeSellOffer:
		if txn.Sender != app.owner {
			return errors.New("only the owner may offer")
		}
		if app.state == appStateNew {
			return errors.New("escrow not initialized")
		}
		if len(txn.ApplicationArgs) != 2 {
			return errors.New("offer expects a price argument")
		}
	case MethodBuy:
		if app.state != appStateSelling {
			return errors.New("token is not on sale")
		}
		if len(group) != 3 {
			return errors.New("buy needs a group of three")
		}
		payment := &group[1].Txn
		release := &group[2].Txn
		if payment.Type != types.PaymentTx {
			return errors.New("second leg must be the payment")
		}
		if payment.Receiver != app.owner {
			return errors.New("payment must go to the owner")
		}
		if uint64(payment.Amount) != app.price {
			return errors.New("payment does not match the offer price")
		}
		if release.Type != types.AssetTransferTx {
			return errors.New("third leg must be the asset release")
		}
		if uint64(release.XferAsset) != app.assetID {
			return errors.New("release leg moves the wrong asset")
		}
		if release.Sender != app.escrow {
			return errors.New("release leg must come from the escrow")
		}
	default:
		return fmt.Errorf("unknown method %q", txn.ApplicationArgs[0])
	}
	return nil
}

// apply mutates ledger state; validation has already passed.
func (l *fakeLedger) apply(txn *types.Transaction) PendingInfo {
	switch txn.Type {
	case types.PaymentTx:
		l.balances[txn.Sender] -= uint64(txn.Amount)
		l.balances[txn.Receiver] += uint64(txn.Amount)

	case types.AssetConfigTx:
		if txn.ConfigAsset == 0 {
			id := l.nextAsset
			l.nextAsset++
			l.assets[id] = &fakeAsset{
				creator:  txn.Sender,
				clawback: txn.AssetParams.Clawback,
				params:   txn.AssetParams,
			}
			l.ensureHolding(txn.Sender, id)
			l.holdings[txn.Sender][id] = txn.AssetParams.Total
			return PendingInfo{AssetIndex: id}
		}
		l.assets[uint64(txn.ConfigAsset)].clawback = txn.AssetParams.Clawback

	case types.AssetTransferTx:
		assetID := uint64(txn.XferAsset)
		from := txn.Sender
		if !txn.AssetSender.IsZero() {
			from = txn.AssetSender
		}
		l.ensureHolding(txn.AssetReceiver, assetID)
		if from == txn.Sender && txn.AssetAmount == 0 && txn.AssetReceiver == txn.Sender {
			return PendingInfo{} // opt-in only
		}
		l.holdings[from][assetID] -= txn.AssetAmount
		l.holdings[txn.AssetReceiver][assetID] += txn.AssetAmount

	case types.ApplicationCallTx:
		if txn.ApplicationID == 0 {
			id := l.nextApp
			l.nextApp++
			var owner types.Address
			copy(owner[:], txn.ApplicationArgs[0])
			l.apps[id] = &fakeApp{
				assetID: uint64(txn.ForeignAssets[0]),
				admin:   txn.Sender,
				owner:   owner,
				state:   appStateNew,
			}
			return PendingInfo{ApplicationIndex: id}
		}

		app := l.apps[uint64(txn.ApplicationID)]
		switch string(txn.ApplicationArgs[0]) {
		case MethodInitializeEscrow:
			copy(app.escrow[:], txn.ApplicationArgs[1])
			app.state = appStateEscrowSet
		case MethodMakeSellOffer:
			app.price = decodeUint64(txn.ApplicationArgs[1])
			app.state = appStateSelling
		case MethodBuy:
			app.owner = txn.Sender // buyer signed legs 0 and 1
			app.price = 0
			app.state = appStateEscrowSet
		}
	}
	return PendingInfo{}
}

func (l *fakeLedger) ensureHolding(addr types.Address, assetID uint64) {
	if l.holdings[addr] == nil {
		l.holdings[addr] = make(map[uint64]uint64)
	}
	if _, ok := l.holdings[addr][assetID]; !ok {
		l.holdings[addr][assetID] = 0
	}
}

func decodeUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}
