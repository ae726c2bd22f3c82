/*
Package executor is the façade the request-handling layer talks to. It owns
transactions and hides which backend runs underneath.

# Execution

Execute builds one operation into a query type and runs it through a
pipeline. With a transaction id the pipeline runs on that transaction.
Without one, writes run in an implicit transaction committed on success and
rolled back on failure, and reads run directly on a pooled connection.

ExecuteAll runs a batch in one of two modes:

  - transactional: all operations run in order on one transaction (the
    supplied one, or an implicit one). The first failure stops the batch;
    every other operation is reported as not applied.
  - independent: operations fan out concurrently, bounded by the configured
    limit. Each failure is reported in its slot; the others are unaffected.

Results are returned in submission order in both modes.

# Transactions

StartTx acquires a connection and opens a transaction, giving up after the
acquisition timeout. Open transactions live in a registry with a per-entry
time to live. When an entry expires it is evicted and rolled back. Using a
transaction id after commit, rollback or expiry reports ErrTransactionClosed
(or ErrTransactionExpired) rather than failing obscurely.

A transaction is used by one operation at a time; concurrent calls on the
same id are serialized.

# Identifiers

Transaction ids come from a generator owned by each executor, so several
executors in one process (tests, for instance) never share state.
*/
package executor
