/*
Package wallet owns every balance change in the system.

Each user has one wallet holding a single balance. A change is described
by a Delta (signed amount plus entry type) and applied with ApplyDelta,
which locks the wallet row, refuses debits beyond the available balance,
updates the running totals and appends one LedgerEntry, all in one
transaction.

Multi-leg operations such as transfers open a transaction themselves and
call ApplyDeltaTx once per leg with the same repositories.Store, then call
Committed with the resulting mutations after the commit:

	err := store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
	    out, err := ledger.ApplyDeltaTx(ctx, tx, wallet.Delta{...})
	    ...
	})
	ledger.Committed(ctx, out, in)

Committed updates the daily metrics, clears cached wallets and publishes
wallet.mutated events. Failures there are logged, never returned.

Entries created with CreatePendingTx do not affect the balance until
SettlePendingTx completes them. A pending entry is settled or failed at
most once.
*/
package wallet
