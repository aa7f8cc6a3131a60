package marketplace

// error instances
//
// Provides a single instance of errors to allow easy comparison
// without having to resort to partial string matches

// error base
type GenericError string

// to allow for different classes of errors
type InvalidError GenericError
type AuthError GenericError
type NotFoundError GenericError
type ConflictError GenericError
type RejectedError GenericError
type OrphanError GenericError

// common errors - keep in alphabetic order
var (
	ErrBadMetadataHash     = InvalidError("metadata hash must be empty or 32 bytes")
	ErrBadProgramParameter = InvalidError("escrow template parameter is invalid")
	ErrEmptyGroup          = InvalidError("atomic group needs at least one transaction")
	ErrGroupNotAuthorized  = InvalidError("atomic group has an unauthorized member")
	ErrLegOutOfRange       = InvalidError("group member index is out of range")
	ErrMissingAddress      = InvalidError("address is required")
	ErrMissingAppId        = InvalidError("application id is required")
	ErrMissingAssetId      = InvalidError("asset id is required")
	ErrMissingAssetName    = InvalidError("asset name is required")
	ErrMissingMethod       = InvalidError("application method is required")
	ErrMissingProgram      = InvalidError("compiled program is required")
	ErrMissingUnitName     = InvalidError("unit name is required")
	ErrZeroPrice           = InvalidError("sell price must be positive")

	ErrNotOwner = AuthError("only the recorded owner can offer the token")

	ErrUnknownAccount = NotFoundError("account is not registered")
	ErrUnknownToken   = NotFoundError("token is not registered")

	ErrNoActiveOffer = ConflictError("no active sell offer for the token")
	ErrSaleConflict  = ConflictError("token was taken by a concurrent sale")

	ErrConfigRejected   = RejectedError("clawback handover was rejected by the ledger")
	ErrFundingRejected  = RejectedError("escrow funding was rejected by the ledger")
	ErrListingRejected  = RejectedError("sell offer was rejected by the ledger")
	ErrMintRejected     = RejectedError("asset creation was rejected by the ledger")
	ErrOptInRejected    = RejectedError("asset opt-in was rejected by the ledger")
	ErrPurchaseRejected = RejectedError("sale group was rejected by the ledger")

	ErrOrphanedToken = OrphanError("asset minted but marketplace deployment failed")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e InvalidError) Error() string  { return string(e) }
func (e AuthError) Error() string     { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ConflictError) Error() string { return string(e) }
func (e RejectedError) Error() string { return string(e) }
func (e OrphanError) Error() string   { return string(e) }
