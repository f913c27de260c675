/*
Package dump provides I/O operations for collected states of MiniMe token
contracts.

A dump keeps contract states along with their storage items pulled at some
block, so token ledgers can be decoded and audited offline (see ledgerstate
package) and reproduced in tests. Dumps are stored in the file system using
human-readable encoding.
*/
package dump
