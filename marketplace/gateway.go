package marketplace

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/bitmark-inc/logger"
)

// PendingInfo is what a confirmed transaction reports back: the round
// it landed in and, for creation transactions, the id the ledger
// assigned.
type PendingInfo struct {
	ConfirmedRound   uint64
	AssetIndex       uint64
	ApplicationIndex uint64
}

// Gateway is the narrow submit/confirm contract the marketplace needs
// from the network. The ledger behind it is the sole source of
// atomicity: a submitted group either confirms with every member
// applied or fails with none of them applied.
type Gateway interface {
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
	Submit(ctx context.Context, raw []byte) (string, error)
	WaitForConfirmation(ctx context.Context, txid string) (PendingInfo, error)
	CompileProgram(ctx context.Context, source []byte) ([]byte, error)
	AssetHolding(ctx context.Context, addr types.Address, assetID uint64) (AssetHolding, error)
}

// AssetHolding reports an account's relationship with one asset:
// whether the account is registered to hold it at all, and how many
// units it currently holds.
type AssetHolding struct {
	OptedIn bool
	Amount  uint64
}

// confirmationWindow is how many rounds a submitted transaction is
// given to land before the wait gives up.
const confirmationWindow = 10

// AlgodGateway talks to an algod node.
type AlgodGateway struct {
	client *algod.Client
	log    *logger.L
}

// NewAlgodGateway connects to the node at address. The token is sent
// both as the node API token and as an X-API-Key header so hosted
// gateways work too.
func NewAlgodGateway(address, token string) (*AlgodGateway, error) {
	headers := []*common.Header{{Key: "X-API-Key", Value: token}}
	client, err := algod.MakeClientWithHeaders(address, token, headers)
	if err != nil {
		return nil, err
	}

	return &AlgodGateway{
		client: client,
		log:    logger.New("algod"),
	}, nil
}

func (g *AlgodGateway) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	sp, err := g.client.SuggestedParams().Do(ctx)
	if err != nil {
		g.log.Errorf("suggested params: %v", err)
		return types.SuggestedParams{}, err
	}
	return sp, nil
}

func (g *AlgodGateway) Submit(ctx context.Context, raw []byte) (string, error) {
	txid, err := g.client.SendRawTransaction(raw).Do(ctx)
	if err != nil {
		g.log.Errorf("submit: %v", err)
		return "", err
	}
	return txid, nil
}

func (g *AlgodGateway) WaitForConfirmation(ctx context.Context, txid string) (PendingInfo, error) {
	info, err := transaction.WaitForConfirmation(g.client, txid, confirmationWindow, ctx)
	if err != nil {
		g.log.Errorf("confirm %s: %v", txid, err)
		return PendingInfo{}, err
	}
	if info.PoolError != "" {
		g.log.Errorf("confirm %s: %s", txid, info.PoolError)
		return PendingInfo{}, fmt.Errorf("transaction %s rejected: %s", txid, info.PoolError)
	}

	return PendingInfo{
		ConfirmedRound:   info.ConfirmedRound,
		AssetIndex:       info.AssetIndex,
		ApplicationIndex: info.ApplicationIndex,
	}, nil
}

func (g *AlgodGateway) CompileProgram(ctx context.Context, source []byte) ([]byte, error) {
	result, err := g.client.TealCompile(source).Do(ctx)
	if err != nil {
		g.log.Errorf("compile: %v", err)
		return nil, err
	}

	program, err := base64.StdEncoding.DecodeString(result.Result)
	if err != nil {
		return nil, fmt.Errorf("decode compiled program: %w", err)
	}
	return program, nil
}

func (g *AlgodGateway) AssetHolding(ctx context.Context, addr types.Address, assetID uint64) (AssetHolding, error) {
	account, err := g.client.AccountInformation(addr.String()).Do(ctx)
	if err != nil {
		g.log.Errorf("account %s: %v", addr, err)
		return AssetHolding{}, err
	}

	for _, holding := range account.Assets {
		if holding.AssetId == assetID {
			return AssetHolding{OptedIn: true, Amount: holding.Amount}, nil
		}
	}
	return AssetHolding{}, nil
}
