package tokenctrl

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const (
	allowTransfersKey = "t"
	allowApprovalsKey = "a"
	allowPaymentsKey  = "p"
	paymentKey        = "l"
)

type Payment struct {
	From   interop.Hash160
	Amount int
	Data   any
}

// nolint:unused
func _deploy(data any, isUpdate bool) {
	SetPolicy(true, true, false)
}

func SetPolicy(transfers, approvals, payments bool) {
	ctx := storage.GetContext()
	storage.Put(ctx, allowTransfersKey, transfers)
	storage.Put(ctx, allowApprovalsKey, approvals)
	storage.Put(ctx, allowPaymentsKey, payments)
}

func OnTransfer(from, to interop.Hash160, amount int) bool {
	return storage.Get(storage.GetReadOnlyContext(), allowTransfersKey).(bool)
}

func OnApprove(owner, spender interop.Hash160, amount int) bool {
	return storage.Get(storage.GetReadOnlyContext(), allowApprovalsKey).(bool)
}

func ProxyPayment(asset, from interop.Hash160, amount int) bool {
	return storage.Get(storage.GetReadOnlyContext(), allowPaymentsKey).(bool)
}

func Mint(token, to interop.Hash160, amount int) bool {
	return contract.Call(token, "generateTokens", contract.All, to, amount).(bool)
}

func Burn(token, from interop.Hash160, amount int) bool {
	return contract.Call(token, "destroyTokens", contract.All, from, amount).(bool)
}

func Enable(token interop.Hash160, enabled bool) {
	contract.Call(token, "enableTransfers", contract.All, enabled)
}

func Claim(token, asset interop.Hash160) {
	contract.Call(token, "claimTokens", contract.All, asset)
}

func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	storage.Put(storage.GetContext(), paymentKey, std.Serialize(Payment{
		From:   from,
		Amount: amount,
		Data:   data,
	}))
}

func LastPayment() Payment {
	val := storage.Get(storage.GetReadOnlyContext(), paymentKey)
	if val == nil {
		return Payment{}
	}
	return std.Deserialize(val.([]byte)).(Payment)
}
