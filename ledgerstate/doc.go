/*
Package ledgerstate decodes storage of the MiniMe token contract and answers
balance queries offline.

Storage items are taken from the contract dumps (see dump package) or from the
findstates RPC results. Decoded State serves point-in-time reads the same way
the contract does, including reads of clone tokens which fall back to the
parent token state at the parent snapshot block. Audit checks ledger
invariants of the decoded state.
*/
package ledgerstate
