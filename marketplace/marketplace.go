package marketplace

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/bitmark-inc/logger"
)

// CredentialProvider resolves an account id to its signing material.
// Keys are treated as opaque capabilities; the marketplace uses them
// at the signing step and never stores them.
type CredentialProvider interface {
	Resolve(id string) (crypto.Account, error)
}

// TokenState tracks where a token is in its sale lifecycle.
type TokenState int

const (
	StateDeployed TokenState = iota
	StateEscrowConfigured
	StateListed
	StateSold
)

func (s TokenState) String() string {
	switch s {
	case StateDeployed:
		return "deployed"
	case StateEscrowConfigured:
		return "escrow-configured"
	case StateListed:
		return "listed"
	case StateSold:
		return "sold"
	}
	return "unknown"
}

// Token is one registered NFT together with the contract instance that
// trades it.
type Token struct {
	AppID   uint64
	AssetID uint64
	Owner   types.Address
	Escrow  types.Address
	Funded  bool
	State   TokenState
	Info    TokenInfo
}

// escrowFunding is the minimum balance the escrow is funded with, once
// per token, before its first listing.
const escrowFunding = 1000000

// DefaultSellPrice is used when a sell request does not name a price.
const DefaultSellPrice = 1000000

// Marketplace owns the token registry and the outstanding-offer table
// and drives mint, deploy, list and settle against the ledger. Tokens
// are independent: operations on different tokens may run
// concurrently, operations on the same token are serialized locally.
type Marketplace struct {
	gw      Gateway
	creds   CredentialProvider
	escrows *EscrowAuthority
	log     *logger.L

	mu     sync.Mutex
	tokens map[uint64]*Token
	offers map[uint64]uint64
	locks  map[uint64]*sync.Mutex
}

func New(gw Gateway, creds CredentialProvider) *Marketplace {
	return &Marketplace{
		gw:      gw,
		creds:   creds,
		escrows: NewEscrowAuthority(gw),
		log:     logger.New("marketplace"),
		tokens:  make(map[uint64]*Token),
		offers:  make(map[uint64]uint64),
		locks:   make(map[uint64]*sync.Mutex),
	}
}

// tokenLock returns the serialization point for one token. The ledger
// is the real arbiter of races; this only stops two local calls from
// interleaving on the same offer entry.
func (m *Marketplace) tokenLock(appID uint64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[appID]
	if !ok {
		l = new(sync.Mutex)
		m.locks[appID] = l
	}
	return l
}

func (m *Marketplace) signAndSubmit(ctx context.Context, sk ed25519.PrivateKey, txn types.Transaction) (PendingInfo, error) {
	_, stx, err := crypto.SignTransaction(sk, txn)
	if err != nil {
		return PendingInfo{}, err
	}

	txid, err := m.gw.Submit(ctx, stx)
	if err != nil {
		return PendingInfo{}, err
	}

	return m.gw.WaitForConfirmation(ctx, txid)
}

// Register mints the token, deploys a fresh contract instance scoped
// to it, derives the escrow and hands the asset's clawback over to it
// while revoking the creator's own manager, reserve and freeze
// authorities. Returns the application id that identifies the token
// from here on.
//
// If the mint confirms but the deployment is rejected the asset is
// orphaned; there is no compensating transaction, the error names the
// orphaned asset id for manual remediation.
func (m *Marketplace) Register(ctx context.Context, creatorID string, info TokenInfo) (uint64, error) {
	creator, err := m.creds.Resolve(creatorID)
	if err != nil {
		return 0, fmt.Errorf("%w: creator %s", ErrUnknownAccount, creatorID)
	}

	sp, err := m.gw.SuggestedParams(ctx)
	if err != nil {
		return 0, err
	}

	createTxn, err := BuildAssetCreate(creator.Address, info, sp)
	if err != nil {
		return 0, err
	}

	created, err := m.signAndSubmit(ctx, creator.PrivateKey, createTxn)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMintRejected, err)
	}
	assetID := created.AssetIndex
	m.log.Infof("minted asset %d for %s", assetID, creatorID)

	approval, err := m.gw.CompileProgram(ctx, approvalSource)
	if err != nil {
		return 0, fmt.Errorf("%w: asset %d: approval program: %v", ErrOrphanedToken, assetID, err)
	}
	clearProg, err := m.gw.CompileProgram(ctx, clearSource)
	if err != nil {
		return 0, fmt.Errorf("%w: asset %d: clear program: %v", ErrOrphanedToken, assetID, err)
	}

	deployTxn, err := BuildAppCreate(creator.Address, creator.Address, assetID, approval, clearProg, sp)
	if err != nil {
		return 0, fmt.Errorf("%w: asset %d: %v", ErrOrphanedToken, assetID, err)
	}

	deployed, err := m.signAndSubmit(ctx, creator.PrivateKey, deployTxn)
	if err != nil {
		return 0, fmt.Errorf("%w: asset %d: %v", ErrOrphanedToken, assetID, err)
	}
	appID := deployed.ApplicationIndex
	m.log.Infof("deployed app %d for asset %d", appID, assetID)

	esc, err := m.escrows.Derive(ctx, appID, assetID)
	if err != nil {
		return 0, err
	}

	configTxn, err := BuildAssetConfig(creator.Address, assetID, esc.Address, sp)
	if err != nil {
		return 0, err
	}
	if _, err := m.signAndSubmit(ctx, creator.PrivateKey, configTxn); err != nil {
		return 0, fmt.Errorf("%w: asset %d: %v", ErrConfigRejected, assetID, err)
	}

	m.mu.Lock()
	m.tokens[appID] = &Token{
		AppID:   appID,
		AssetID: assetID,
		Owner:   creator.Address,
		Escrow:  esc.Address,
		State:   StateDeployed,
		Info:    info,
	}
	m.mu.Unlock()

	return appID, nil
}

// ListForSale puts the token on the market at the given price. Only
// the recorded owner may list; a non-owner call aborts before anything
// reaches the ledger. The first listing funds the escrow's minimum
// balance and registers its address with the contract; relisting after
// a sale skips both.
func (m *Marketplace) ListForSale(ctx context.Context, sellerID string, appID, price uint64) error {
	if price == 0 {
		return ErrZeroPrice
	}

	seller, err := m.creds.Resolve(sellerID)
	if err != nil {
		return fmt.Errorf("%w: seller %s", ErrUnknownAccount, sellerID)
	}

	lock := m.tokenLock(appID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	tok := m.tokens[appID]
	m.mu.Unlock()
	if tok == nil {
		return fmt.Errorf("%w: app %d", ErrUnknownToken, appID)
	}
	if tok.Owner != seller.Address {
		return ErrNotOwner
	}

	sp, err := m.gw.SuggestedParams(ctx)
	if err != nil {
		return err
	}

	esc, err := m.escrows.Derive(ctx, appID, tok.AssetID)
	if err != nil {
		return err
	}

	if !tok.Funded {
		fundTxn, err := BuildPayment(seller.Address, esc.Address, escrowFunding, "escrow funding", sp)
		if err != nil {
			return err
		}
		if _, err := m.signAndSubmit(ctx, seller.PrivateKey, fundTxn); err != nil {
			return fmt.Errorf("%w: fund escrow: %v", ErrFundingRejected, err)
		}

		initTxn, err := BuildAppCall(seller.Address, appID, MethodInitializeEscrow,
			[][]byte{addressArg(esc.Address)}, []uint64{tok.AssetID}, sp)
		if err != nil {
			return err
		}
		if _, err := m.signAndSubmit(ctx, seller.PrivateKey, initTxn); err != nil {
			return fmt.Errorf("%w: initialize escrow: %v", ErrFundingRejected, err)
		}

		m.mu.Lock()
		tok.Funded = true
		tok.State = StateEscrowConfigured
		m.mu.Unlock()
	}

	offerTxn, err := BuildAppCall(seller.Address, appID, MethodMakeSellOffer,
		[][]byte{uint64Arg(price)}, nil, sp)
	if err != nil {
		return err
	}
	if _, err := m.signAndSubmit(ctx, seller.PrivateKey, offerTxn); err != nil {
		return fmt.Errorf("%w: make sell offer: %v", ErrListingRejected, err)
	}

	m.mu.Lock()
	m.offers[appID] = price
	tok.State = StateListed
	m.mu.Unlock()

	m.log.Infof("app %d listed at %d by %s", appID, price, sellerID)
	return nil
}

// Buy settles the outstanding offer for the token as one atomic group:
// the application call authorizing the sale, the buyer's payment to
// the seller at the recorded price, and the escrow's clawback transfer
// of the asset to the buyer. Either the whole group confirms or
// nothing changes; a network rejection leaves the offer intact so the
// call is safely retryable.
func (m *Marketplace) Buy(ctx context.Context, buyerID string, appID uint64) (string, error) {
	buyer, err := m.creds.Resolve(buyerID)
	if err != nil {
		return "", fmt.Errorf("%w: buyer %s", ErrUnknownAccount, buyerID)
	}

	lock := m.tokenLock(appID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	tok := m.tokens[appID]
	price, offered := m.offers[appID]
	m.mu.Unlock()
	if tok == nil {
		return "", fmt.Errorf("%w: app %d", ErrUnknownToken, appID)
	}
	if !offered {
		return "", fmt.Errorf("%w: app %d", ErrNoActiveOffer, appID)
	}

	sp, err := m.gw.SuggestedParams(ctx)
	if err != nil {
		return "", err
	}

	// the receiving account must be opted in to hold the asset
	holding, err := m.gw.AssetHolding(ctx, buyer.Address, tok.AssetID)
	if err != nil {
		return "", err
	}
	if !holding.OptedIn {
		optInTxn, err := BuildAssetOptIn(buyer.Address, tok.AssetID, sp)
		if err != nil {
			return "", err
		}
		if _, err := m.signAndSubmit(ctx, buyer.PrivateKey, optInTxn); err != nil {
			return "", fmt.Errorf("%w: %v", ErrOptInRejected, err)
		}
	}

	esc, err := m.escrows.Derive(ctx, appID, tok.AssetID)
	if err != nil {
		return "", err
	}

	appCallTxn, err := BuildAppCall(buyer.Address, appID, MethodBuy, nil, nil, sp)
	if err != nil {
		return "", err
	}
	paymentTxn, err := BuildPayment(buyer.Address, tok.Owner, price, "", sp)
	if err != nil {
		return "", err
	}
	releaseTxn, err := BuildAssetTransfer(esc.Address, buyer.Address, tok.AssetID, 1, tok.Owner, sp)
	if err != nil {
		return "", err
	}

	group, err := AssembleGroup(appCallTxn, paymentTxn, releaseTxn)
	if err != nil {
		return "", err
	}
	if err := group.SignLeg(0, buyer.PrivateKey); err != nil {
		return "", err
	}
	if err := group.SignLeg(1, buyer.PrivateKey); err != nil {
		return "", err
	}
	if err := group.AuthorizeLeg(2, esc); err != nil {
		return "", err
	}

	raw, err := group.Raw()
	if err != nil {
		return "", err
	}

	txid, err := m.gw.Submit(ctx, raw)
	if err != nil {
		return "", m.classifyRejection(ctx, tok, err)
	}
	if _, err := m.gw.WaitForConfirmation(ctx, txid); err != nil {
		return "", m.classifyRejection(ctx, tok, err)
	}

	m.mu.Lock()
	delete(m.offers, appID)
	tok.Owner = buyer.Address
	tok.State = StateSold
	m.mu.Unlock()

	m.log.Infof("app %d sold to %s for %d", appID, buyerID, price)
	return txid, nil
}

// classifyRejection separates "another sale already took the asset"
// from every other group rejection. When the recorded owner no longer
// holds the asset a concurrent group must have settled first.
func (m *Marketplace) classifyRejection(ctx context.Context, tok *Token, cause error) error {
	holding, err := m.gw.AssetHolding(ctx, tok.Owner, tok.AssetID)
	if err == nil && holding.Amount == 0 {
		return fmt.Errorf("%w: app %d: %v", ErrSaleConflict, tok.AppID, cause)
	}
	return fmt.Errorf("%w: app %d: %v", ErrPurchaseRejected, tok.AppID, cause)
}

// TokenStatus is a read-only snapshot of a token and its offer.
type TokenStatus struct {
	Token
	Offered   bool
	SellPrice uint64
}

// Token reports the current registry entry for the application id.
func (m *Marketplace) Token(appID uint64) (TokenStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok := m.tokens[appID]
	if tok == nil {
		return TokenStatus{}, fmt.Errorf("%w: app %d", ErrUnknownToken, appID)
	}

	price, offered := m.offers[appID]
	return TokenStatus{Token: *tok, Offered: offered, SellPrice: price}, nil
}
