/*
Package minime implements MiniMe token contract which is a NEP-17 compatible
token with the history of balances.

Every change of an account balance or of the total supply is recorded as a
checkpoint tagged with the index of the block it happened in. Checkpoints of
past blocks are never changed, so balances and total supply can be queried at
any block in the past. This makes it possible to create clone tokens: a clone
token references its parent token and a snapshot block and inherits all
parent balances at that block without copying them.

Token is governed by a single controller which is an account or a contract.
Only the controller can generate and destroy tokens, enable or disable
transfers between holders and pass control to another controller. If the
controller is a contract, it is asked to approve every transfer and approval
(onTransfer and onApprove methods) and to accept NEP-17 payments sent to the
token (proxyPayment method).

Balances and total supply never exceed the balance limit set on deployment
(2^128-1 by default). Operations that would exceed it fail with an exception
leaving the state unchanged. Clone deployment fails the same way if the parent
total supply at the snapshot block is above the clone limit. A clone with the
snapshot block in the future can't be checked on deployment, so the parent
may issue more tokens than the clone limit allows before the snapshot. Such
clone refuses to generate tokens and to transfer them to the holders whose
balances would go over the limit.

# Contract notifications

Transfer notification. This is a NEP-17 standard notification. From is null
for generated tokens, to is null for destroyed tokens. Contract recipients of
transferred and generated tokens get onNEP17Payment call, data is null for
generated tokens.

	Transfer:
	  - name: from
	    type: Hash160
	  - name: to
	    type: Hash160
	  - name: amount
	    type: Integer

Approval notification. Contract produces it when the owner allows the spender
to transfer owner's tokens.

	Approval:
	  - name: owner
	    type: Hash160
	  - name: spender
	    type: Hash160
	  - name: amount
	    type: Integer

ClaimedTokens notification. Contract produces it when the controller
extracts NEP-17 tokens held by the token contract.

	ClaimedTokens:
	  - name: token
	    type: Hash160
	  - name: controller
	    type: Hash160
	  - name: amount
	    type: Integer
*/
package minime
