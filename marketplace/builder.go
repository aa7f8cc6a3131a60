package marketplace

import (
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// TokenInfo is the descriptive metadata of a token. Everything here is
// immutable once the asset is created.
type TokenInfo struct {
	UnitName     string `json:"unit_name"`
	AssetName    string `json:"asset_name"`
	Description  string `json:"description"`
	URL          string `json:"url"`
	MetadataHash string `json:"-"`
}

// BuildAssetCreate declares a new non-fungible asset: total supply 1,
// no decimals, default frozen, all four authorities held by the
// creator until the escrow takes over the clawback.
func BuildAssetCreate(creator types.Address, info TokenInfo, sp types.SuggestedParams) (types.Transaction, error) {
	if creator.IsZero() {
		return types.Transaction{}, ErrMissingAddress
	}
	if info.UnitName == "" {
		return types.Transaction{}, ErrMissingUnitName
	}
	if info.AssetName == "" {
		return types.Transaction{}, ErrMissingAssetName
	}
	if n := len(info.MetadataHash); n != 0 && n != 32 {
		return types.Transaction{}, ErrBadMetadataHash
	}

	addr := creator.String()
	return transaction.MakeAssetCreateTxn(
		addr, []byte(info.Description), sp,
		1, 0, true,
		addr, addr, addr, addr,
		info.UnitName, info.AssetName, info.URL, info.MetadataHash,
	)
}

// BuildAssetConfig revokes the creator's manager, reserve and freeze
// authorities and hands the clawback to the escrow. After this the
// escrow is the only address able to move the frozen asset.
func BuildAssetConfig(manager types.Address, assetID uint64, clawback types.Address, sp types.SuggestedParams) (types.Transaction, error) {
	if manager.IsZero() || clawback.IsZero() {
		return types.Transaction{}, ErrMissingAddress
	}
	if assetID == 0 {
		return types.Transaction{}, ErrMissingAssetId
	}

	return transaction.MakeAssetConfigTxn(
		manager.String(), nil, sp, assetID,
		"", "", "", clawback.String(),
		false,
	)
}

// BuildAssetOptIn registers the account's willingness to hold the
// asset (a zero self-transfer).
func BuildAssetOptIn(account types.Address, assetID uint64, sp types.SuggestedParams) (types.Transaction, error) {
	if account.IsZero() {
		return types.Transaction{}, ErrMissingAddress
	}
	if assetID == 0 {
		return types.Transaction{}, ErrMissingAssetId
	}

	return transaction.MakeAssetAcceptanceTxn(account.String(), nil, sp, assetID)
}

// BuildAppCreate deploys a marketplace application scoped to one
// asset. The contract expects the raw owner and admin addresses as the
// two creation arguments and the asset as a foreign reference.
func BuildAppCreate(creator, owner types.Address, assetID uint64, approval, clear []byte, sp types.SuggestedParams) (types.Transaction, error) {
	if creator.IsZero() || owner.IsZero() {
		return types.Transaction{}, ErrMissingAddress
	}
	if assetID == 0 {
		return types.Transaction{}, ErrMissingAssetId
	}
	if len(approval) == 0 || len(clear) == 0 {
		return types.Transaction{}, ErrMissingProgram
	}

	appArgs := [][]byte{addressArg(owner), addressArg(creator)}
	return transaction.MakeApplicationCreateTx(
		false, approval, clear, globalSchema, localSchema,
		appArgs, nil, nil, []uint64{assetID},
		sp, creator, nil, types.Digest{}, [32]byte{}, types.Address{},
	)
}

// BuildAppCall invokes a named entry point. Arguments are positional;
// the method name always goes first.
func BuildAppCall(caller types.Address, appID uint64, method string, args [][]byte, foreignAssets []uint64, sp types.SuggestedParams) (types.Transaction, error) {
	if caller.IsZero() {
		return types.Transaction{}, ErrMissingAddress
	}
	if appID == 0 {
		return types.Transaction{}, ErrMissingAppId
	}
	if method == "" {
		return types.Transaction{}, ErrMissingMethod
	}

	appArgs := append([][]byte{[]byte(method)}, args...)
	return transaction.MakeApplicationNoOpTx(
		appID, appArgs, nil, nil, foreignAssets,
		sp, caller, nil, types.Digest{}, [32]byte{}, types.Address{},
	)
}

// BuildPayment moves native currency between two accounts.
func BuildPayment(from, to types.Address, amount uint64, note string, sp types.SuggestedParams) (types.Transaction, error) {
	if from.IsZero() || to.IsZero() {
		return types.Transaction{}, ErrMissingAddress
	}

	return transaction.MakePaymentTxn(from.String(), to.String(), amount, []byte(note), "", sp)
}

// BuildAssetTransfer moves one unit of the asset. With a revocation
// target set the transfer is a clawback: the sender must be the
// asset's clawback authority and the unit is pulled from the target,
// not from the sender's own holding.
func BuildAssetTransfer(from, to types.Address, assetID, amount uint64, revocationTarget types.Address, sp types.SuggestedParams) (types.Transaction, error) {
	if from.IsZero() || to.IsZero() {
		return types.Transaction{}, ErrMissingAddress
	}
	if assetID == 0 {
		return types.Transaction{}, ErrMissingAssetId
	}

	if revocationTarget.IsZero() {
		return transaction.MakeAssetTransferTxn(from.String(), to.String(), amount, nil, sp, "", assetID)
	}

	return transaction.MakeAssetRevocationTxn(from.String(), revocationTarget.String(), amount, to.String(), nil, sp, assetID)
}
