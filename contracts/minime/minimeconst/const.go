/*
Package minimeconst contains constants of the MiniMe token contract shared
between the contract itself and off-chain code reading its storage.
*/
package minimeconst

// Storage layout. Single-byte keys hold token settings, prefixed keys hold
// balance histories and allowances.
const (
	ControllerKey          = "C"
	ParentTokenKey         = "P"
	ParentSnapShotBlockKey = "S"
	CreationBlockKey       = "B"
	NameKey                = "N"
	DecimalsKey            = "D"
	SymbolKey              = "Y"
	TransfersEnabledKey    = "E"
	BalanceLimitKey        = "L"

	// AccountHistoryPrefix followed by an account script hash is a history
	// key of the account balance.
	AccountHistoryPrefix = 'a'
	// SupplyHistoryKey is a history key of the total supply.
	SupplyHistoryKey = 's'

	// CheckpointPrefix followed by a history key and a little-endian
	// checkpoint index is a key of the serialized checkpoint.
	CheckpointPrefix = 'h'
	// CheckpointCountPrefix followed by a history key holds the number of
	// checkpoints in the history.
	CheckpointCountPrefix = 'n'

	// AllowancePrefix followed by owner and spender script hashes holds the
	// approved amount.
	AllowancePrefix = 'w'
)

// DefaultBalanceLimit is a decimal representation of 2^128-1, the maximum
// balance and total supply of the token unless another limit is set on
// deployment.
const DefaultBalanceLimit = "340282366920938463463374607431768211455"

// Exception messages thrown by the contract.
const (
	ErrUnauthorized        = "unauthorized"
	ErrArithmeticOverflow  = "arithmetic overflow"
	ErrInsufficientBalance = "insufficient balance"
	ErrTransfersDisabled   = "transfers are disabled"
	ErrInvalidRecipient    = "invalid recipient"
	ErrInvalidAccount      = "invalid account"
	ErrNegativeAmount      = "negative amount"
	ErrControllerRejected  = "rejected by controller"
	ErrParentSnapshot      = "parent snapshot block is not in the past"
	ErrPaymentsRejected    = "payments are not accepted"
	ErrAllowanceNotReset   = "allowance must be reset to zero first"
	ErrInvalidToken        = "invalid token"
	ErrTransferFailed      = "token transfer failed"
)
