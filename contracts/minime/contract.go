package minime

import (
	"github.com/nspcc-dev/minime-contract/common"
	"github.com/nspcc-dev/minime-contract/contracts/minime/minimeconst"
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/convert"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/ledger"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// Checkpoint is a value of the account balance or the total supply which is
// in effect starting from FromBlock.
type Checkpoint struct {
	// Index of the block the value was written in
	FromBlock int
	// Balance or total supply
	Value int
}

// zeroAccount is a script hash of 20 zero bytes.
const zeroAccount = "\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"

// nolint:unused
func _deploy(data any, isUpdate bool) {
	ctx := storage.GetContext()
	args := data.([]any)

	if isUpdate {
		version := args[len(args)-1].(int)
		common.CheckVersion(version)
		return
	}

	if len(args) < 7 {
		panic("invalid number of deployment arguments")
	}

	var controller, parent interop.Hash160
	if args[0] != nil {
		controller = args[0].(interop.Hash160)
	}
	if len(controller) == 0 {
		controller = runtime.GetScriptContainer().Sender
	}
	checkAccount(controller)

	if args[1] != nil {
		parent = args[1].(interop.Hash160)
	}
	if len(parent) != 0 {
		checkAccount(parent)
		storage.Put(ctx, minimeconst.ParentTokenKey, parent)
	}

	snapshot := args[2].(int)
	name := args[3].(string)
	decimals := args[4].(int)
	symbol := args[5].(string)
	enabled := args[6].(bool)

	if snapshot < 0 {
		panic("negative parent snapshot block")
	}
	if decimals < 0 {
		panic("negative decimals")
	}
	if len(symbol) == 0 {
		panic("empty symbol")
	}

	limit := std.Atoi(minimeconst.DefaultBalanceLimit, 10)
	if len(args) > 7 && args[7] != nil {
		limit = args[7].(int)
		if limit <= 0 {
			panic("non-positive balance limit")
		}
	}

	// supply inherited at a future snapshot block is not known yet
	if len(parent) != 0 && snapshot < currentBlock() {
		supply := contract.Call(parent, "totalSupplyAt", contract.ReadOnly, snapshot).(int)
		if supply > limit {
			panic(minimeconst.ErrArithmeticOverflow)
		}
	}

	storage.Put(ctx, minimeconst.ControllerKey, controller)
	storage.Put(ctx, minimeconst.ParentSnapShotBlockKey, snapshot)
	storage.Put(ctx, minimeconst.CreationBlockKey, currentBlock())
	storage.Put(ctx, minimeconst.NameKey, name)
	storage.Put(ctx, minimeconst.DecimalsKey, decimals)
	storage.Put(ctx, minimeconst.SymbolKey, symbol)
	storage.Put(ctx, minimeconst.TransfersEnabledKey, enabled)
	storage.Put(ctx, minimeconst.BalanceLimitKey, limit)

	runtime.Log("minime contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by the controller.
func Update(nefFile, manifest []byte, data any) {
	checkController(storage.GetReadOnlyContext())

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, nefFile, manifest, common.AppendVersion(data))
	runtime.Log("minime contract updated")
}

// Symbol is a NEP-17 standard method that returns the token symbol.
func Symbol() string {
	return storage.Get(storage.GetReadOnlyContext(), minimeconst.SymbolKey).(string)
}

// Decimals is a NEP-17 standard method that returns precision of the token.
func Decimals() int {
	return storage.Get(storage.GetReadOnlyContext(), minimeconst.DecimalsKey).(int)
}

// Name returns display name of the token set on deployment.
func Name() string {
	return storage.Get(storage.GetReadOnlyContext(), minimeconst.NameKey).(string)
}

// TotalSupply is a NEP-17 standard method that returns the current total
// amount of tokens.
func TotalSupply() int {
	return supplyAt(storage.GetReadOnlyContext(), currentBlock())
}

// TotalSupplyAt returns total amount of tokens at the specified block.
func TotalSupplyAt(block int) int {
	return supplyAt(storage.GetReadOnlyContext(), block)
}

// BalanceOf is a NEP-17 standard method that returns the current balance of
// the specified account.
func BalanceOf(account interop.Hash160) int {
	checkAccount(account)
	return balanceAt(storage.GetReadOnlyContext(), account, currentBlock())
}

// BalanceOfAt returns balance of the specified account at the specified block.
// Balances of clone tokens before their first own checkpoint are taken from
// the parent token at the parent snapshot block.
func BalanceOfAt(account interop.Hash160, block int) int {
	checkAccount(account)
	return balanceAt(storage.GetReadOnlyContext(), account, block)
}

// BalanceHistory returns iterator over all checkpoints of the account balance.
// Iterator values are Checkpoint structures ordered by storage key, so
// callers should sort them by FromBlock.
func BalanceHistory(account interop.Hash160) iterator.Iterator {
	checkAccount(account)
	return storage.Find(storage.GetReadOnlyContext(), checkpointPrefix(accountKey(account)),
		storage.ValuesOnly|storage.DeserializeValues)
}

// SupplyHistory is the same as BalanceHistory but for the total supply.
func SupplyHistory() iterator.Iterator {
	return storage.Find(storage.GetReadOnlyContext(), checkpointPrefix(supplyKey()),
		storage.ValuesOnly|storage.DeserializeValues)
}

// Controller returns script hash of the token controller.
func Controller() interop.Hash160 {
	return getController(storage.GetReadOnlyContext())
}

// ParentToken returns script hash of the token this one is cloned from or
// nothing for a root token.
func ParentToken() interop.Hash160 {
	parent := storage.Get(storage.GetReadOnlyContext(), minimeconst.ParentTokenKey)
	if parent == nil {
		return nil
	}
	return parent.(interop.Hash160)
}

// ParentSnapShotBlock returns the block of the parent token balances the clone
// token starts from.
func ParentSnapShotBlock() int {
	return common.GetInt(storage.GetReadOnlyContext(), minimeconst.ParentSnapShotBlockKey)
}

// CreationBlock returns index of the block the token was deployed in.
func CreationBlock() int {
	return common.GetInt(storage.GetReadOnlyContext(), minimeconst.CreationBlockKey)
}

// TransfersEnabled returns true if token holders are allowed to transfer
// tokens.
func TransfersEnabled() bool {
	return transfersEnabled(storage.GetReadOnlyContext())
}

// BalanceLimit returns the maximum balance and total supply of the token.
func BalanceLimit() int {
	return balanceLimit(storage.GetReadOnlyContext())
}

// Allowance returns amount spender is still allowed to withdraw from owner.
func Allowance(owner, spender interop.Hash160) int {
	checkAccount(owner)
	checkAccount(spender)
	return common.GetInt(storage.GetReadOnlyContext(), allowanceKey(owner, spender))
}

// Transfer is a NEP-17 standard method that transfers tokens from one account
// to another. It can be invoked only by the account owner (or a contract
// with the owner script hash) while transfers are enabled.
//
// Transfer returns false if from is not witnessed or does not have enough
// tokens. It panics if transfers are disabled, if to is not a valid recipient,
// if the controller contract rejects the transfer or if the recipient balance
// would exceed the balance limit.
func Transfer(from, to interop.Hash160, amount int, data any) bool {
	ctx := storage.GetContext()

	checkAmount(amount)
	checkAccount(from)

	if !transfersEnabled(ctx) {
		panic(minimeconst.ErrTransfersDisabled)
	}

	if !common.IsAuthorized(from) {
		runtime.Log("sender witness check failed")
		return false
	}

	return doTransfer(ctx, from, to, amount, data)
}

// TransferFrom transfers tokens from one account to another on behalf of
// spender. The controller may move any tokens at will, other spenders need
// enabled transfers and a sufficient allowance approved by from.
//
// TransferFrom returns false if spender is not witnessed, the allowance is not
// sufficient or from does not have enough tokens. Otherwise it fails the same
// way Transfer does.
func TransferFrom(spender, from, to interop.Hash160, amount int, data any) bool {
	ctx := storage.GetContext()

	checkAmount(amount)
	checkAccount(spender)
	checkAccount(from)

	if !common.IsAuthorized(spender) {
		runtime.Log("spender witness check failed")
		return false
	}

	if spender.Equals(getController(ctx)) {
		return doTransfer(ctx, from, to, amount, data)
	}

	if !transfersEnabled(ctx) {
		panic(minimeconst.ErrTransfersDisabled)
	}

	key := allowanceKey(from, spender)
	allowed := common.GetInt(ctx, key)
	if allowed < amount {
		runtime.Log("allowance exceeded")
		return false
	}

	// the allowance is spent before the transfer so that recipient callbacks
	// observe the decreased value
	putAllowance(ctx, key, allowed-amount)

	if !doTransfer(ctx, from, to, amount, data) {
		putAllowance(ctx, key, allowed)
		return false
	}

	return true
}

// Approve allows spender to withdraw tokens from owner account multiple times
// up to the amount. It can be invoked only by the owner while transfers are
// enabled. Changing a non-zero allowance requires setting it to zero first.
//
// It produces Approval notification.
func Approve(owner, spender interop.Hash160, amount int) bool {
	ctx := storage.GetContext()

	checkAmount(amount)
	checkAccount(owner)
	checkAccount(spender)

	if !transfersEnabled(ctx) {
		panic(minimeconst.ErrTransfersDisabled)
	}

	if !common.IsAuthorized(owner) {
		runtime.Log("owner witness check failed")
		return false
	}

	key := allowanceKey(owner, spender)
	if amount != 0 && common.GetInt(ctx, key) != 0 {
		panic(minimeconst.ErrAllowanceNotReset)
	}

	controller := getController(ctx)
	if common.IsContract(controller) {
		if !contract.Call(controller, "onApprove", contract.All, owner, spender, amount).(bool) {
			panic(minimeconst.ErrControllerRejected)
		}
	}

	putAllowance(ctx, key, amount)
	runtime.Notify("Approval", owner, spender, amount)

	return true
}

// GenerateTokens mints amount of tokens to the owner account and increases
// total supply. It can be invoked only by the controller.
//
// It panics if either the total supply or the owner balance would exceed the
// balance limit. It produces Transfer notification from null account and
// calls onNEP17Payment of the owner if it is a contract.
func GenerateTokens(owner interop.Hash160, amount int) bool {
	ctx := storage.GetContext()

	checkController(ctx)
	checkAmount(amount)
	checkAccount(owner)

	var (
		now     = currentBlock()
		limit   = balanceLimit(ctx)
		supply  = supplyAt(ctx, now)
		balance = balanceAt(ctx, owner, now)
	)

	if amount > limit-supply || amount > limit-balance {
		panic(minimeconst.ErrArithmeticOverflow)
	}

	updateValueAtNow(ctx, supplyKey(), supply+amount)
	updateValueAtNow(ctx, accountKey(owner), balance+amount)

	postTransfer(nil, owner, amount, nil)

	return true
}

// DestroyTokens burns amount of tokens from the owner account and decreases
// total supply. It can be invoked only by the controller.
//
// It produces Transfer notification to null account.
func DestroyTokens(owner interop.Hash160, amount int) bool {
	ctx := storage.GetContext()

	checkController(ctx)
	checkAmount(amount)
	checkAccount(owner)

	var (
		now     = currentBlock()
		supply  = supplyAt(ctx, now)
		balance = balanceAt(ctx, owner, now)
	)

	if supply < amount || balance < amount {
		panic(minimeconst.ErrInsufficientBalance)
	}

	updateValueAtNow(ctx, supplyKey(), supply-amount)
	updateValueAtNow(ctx, accountKey(owner), balance-amount)

	var to interop.Hash160
	runtime.Notify("Transfer", owner, to, amount)

	return true
}

// EnableTransfers enables or disables transfers of the token holders. It can
// be invoked only by the controller.
func EnableTransfers(enabled bool) {
	ctx := storage.GetContext()

	checkController(ctx)

	storage.Put(ctx, minimeconst.TransfersEnabledKey, enabled)
}

// ChangeController passes control over the token to another account or
// contract. It can be invoked only by the current controller.
func ChangeController(newController interop.Hash160) {
	ctx := storage.GetContext()

	checkController(ctx)
	checkAccount(newController)

	storage.Put(ctx, minimeconst.ControllerKey, newController)
}

// ClaimTokens transfers all NEP-17 tokens of the specified contract held by
// the token contract to the controller. It can be invoked only by the
// controller.
//
// It produces ClaimedTokens notification.
func ClaimTokens(token interop.Hash160) {
	ctx := storage.GetReadOnlyContext()

	controller := checkController(ctx)
	checkAccount(token)

	self := runtime.GetExecutingScriptHash()
	if token.Equals(self) {
		panic(minimeconst.ErrInvalidToken)
	}

	balance := contract.Call(token, "balanceOf", contract.ReadOnly, self).(int)
	if balance > 0 {
		ok := contract.Call(token, "transfer", contract.All, self, controller, balance, nil).(bool)
		if !ok {
			panic(minimeconst.ErrTransferFailed)
		}
	}

	runtime.Notify("ClaimedTokens", token, controller, balance)
}

// OnNEP17Payment accepts NEP-17 assets only if the controller is a contract
// and its proxyPayment method approves the payment.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	controller := getController(storage.GetReadOnlyContext())
	asset := runtime.GetCallingScriptHash()

	if !common.IsContract(controller) ||
		!contract.Call(controller, "proxyPayment", contract.All, asset, from, amount).(bool) {
		panic(minimeconst.ErrPaymentsRejected)
	}
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func doTransfer(ctx storage.Context, from, to interop.Hash160, amount int, data any) bool {
	if !isValidRecipient(to) {
		panic(minimeconst.ErrInvalidRecipient)
	}

	if amount == 0 {
		postTransfer(from, to, amount, data)
		return true
	}

	now := currentBlock()
	if common.GetInt(ctx, minimeconst.ParentSnapShotBlockKey) >= now {
		panic(minimeconst.ErrParentSnapshot)
	}

	balanceFrom := balanceAt(ctx, from, now)
	if balanceFrom < amount {
		runtime.Log(minimeconst.ErrInsufficientBalance)
		return false
	}

	controller := getController(ctx)
	if common.IsContract(controller) {
		if !contract.Call(controller, "onTransfer", contract.All, from, to, amount).(bool) {
			panic(minimeconst.ErrControllerRejected)
		}
	}

	updateValueAtNow(ctx, accountKey(from), balanceFrom-amount)

	// read after the debit so that self-transfers are not treated as overflow
	balanceTo := balanceAt(ctx, to, now)
	if amount > balanceLimit(ctx)-balanceTo {
		panic(minimeconst.ErrArithmeticOverflow)
	}

	updateValueAtNow(ctx, accountKey(to), balanceTo+amount)

	postTransfer(from, to, amount, data)

	return true
}

func postTransfer(from, to interop.Hash160, amount int, data any) {
	runtime.Notify("Transfer", from, to, amount)

	if common.IsContract(to) {
		contract.Call(to, "onNEP17Payment", contract.All, from, amount, data)
	}
}

// currentBlock returns index of the block being persisted.
func currentBlock() int {
	return ledger.CurrentIndex() + 1
}

func balanceAt(ctx storage.Context, account interop.Hash160, block int) int {
	v, ok := valueAt(ctx, accountKey(account), block)
	if ok {
		return v
	}

	parent := storage.Get(ctx, minimeconst.ParentTokenKey)
	if parent == nil {
		return 0
	}

	snapshot := common.GetInt(ctx, minimeconst.ParentSnapShotBlockKey)
	return contract.Call(parent.(interop.Hash160), "balanceOfAt", contract.ReadOnly,
		account, common.Min(block, snapshot)).(int)
}

func supplyAt(ctx storage.Context, block int) int {
	v, ok := valueAt(ctx, supplyKey(), block)
	if ok {
		return v
	}

	parent := storage.Get(ctx, minimeconst.ParentTokenKey)
	if parent == nil {
		return 0
	}

	snapshot := common.GetInt(ctx, minimeconst.ParentSnapShotBlockKey)
	return contract.Call(parent.(interop.Hash160), "totalSupplyAt", contract.ReadOnly,
		common.Min(block, snapshot)).(int)
}

// valueAt returns the value of the history in effect at the specified block.
// The second result is false if the history is empty or starts after the
// block.
func valueAt(ctx storage.Context, key []byte, block int) (int, bool) {
	n := common.GetInt(ctx, countKey(key))
	if n == 0 {
		return 0, false
	}

	if block < getCheckpoint(ctx, key, 0).FromBlock {
		return 0, false
	}

	last := getCheckpoint(ctx, key, n-1)
	if block >= last.FromBlock {
		return last.Value, true
	}

	lo, hi := 0, n-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if getCheckpoint(ctx, key, mid).FromBlock <= block {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return getCheckpoint(ctx, key, lo).Value, true
}

// updateValueAtNow records the value of the history in effect starting from
// the current block. Checkpoints of the previous blocks are never changed.
func updateValueAtNow(ctx storage.Context, key []byte, value int) {
	now := currentBlock()
	n := common.GetInt(ctx, countKey(key))

	if n > 0 && getCheckpoint(ctx, key, n-1).FromBlock == now {
		common.SetSerialized(ctx, checkpointKey(key, n-1), Checkpoint{FromBlock: now, Value: value})
		return
	}

	common.SetSerialized(ctx, checkpointKey(key, n), Checkpoint{FromBlock: now, Value: value})
	storage.Put(ctx, countKey(key), n+1)
}

func getCheckpoint(ctx storage.Context, key []byte, i int) Checkpoint {
	data := storage.Get(ctx, checkpointKey(key, i))
	return std.Deserialize(data.([]byte)).(Checkpoint)
}

func accountKey(account interop.Hash160) []byte {
	return append([]byte{minimeconst.AccountHistoryPrefix}, account...)
}

func supplyKey() []byte {
	return []byte{minimeconst.SupplyHistoryKey}
}

func countKey(key []byte) []byte {
	return append([]byte{minimeconst.CheckpointCountPrefix}, key...)
}

func checkpointPrefix(key []byte) []byte {
	return append([]byte{minimeconst.CheckpointPrefix}, key...)
}

func checkpointKey(key []byte, i int) []byte {
	return append(checkpointPrefix(key), convert.ToBytes(i)...)
}

func allowanceKey(owner, spender interop.Hash160) []byte {
	key := append([]byte{minimeconst.AllowancePrefix}, owner...)
	return append(key, spender...)
}

func putAllowance(ctx storage.Context, key []byte, amount int) {
	if amount == 0 {
		storage.Delete(ctx, key)
		return
	}
	storage.Put(ctx, key, amount)
}

func getController(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, minimeconst.ControllerKey).(interop.Hash160)
}

// checkController panics if the controller has not witnessed the invocation.
// It returns the controller script hash.
func checkController(ctx storage.Context) interop.Hash160 {
	controller := getController(ctx)
	common.CheckAuthorized(controller, minimeconst.ErrUnauthorized)
	return controller
}

func transfersEnabled(ctx storage.Context) bool {
	return storage.Get(ctx, minimeconst.TransfersEnabledKey).(bool)
}

func balanceLimit(ctx storage.Context) int {
	return storage.Get(ctx, minimeconst.BalanceLimitKey).(int)
}

func isValidRecipient(to interop.Hash160) bool {
	return len(to) == interop.Hash160Len &&
		!to.Equals(zeroAccount) &&
		!to.Equals(runtime.GetExecutingScriptHash())
}

func checkAccount(account interop.Hash160) {
	if len(account) != interop.Hash160Len {
		panic(minimeconst.ErrInvalidAccount)
	}
}

func checkAmount(amount int) {
	if amount < 0 {
		panic(minimeconst.ErrNegativeAmount)
	}
}
