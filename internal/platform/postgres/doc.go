// Package postgres provides PostgreSQL implementations of the store
// interfaces defined in internal/store, together with the embedded goose
// migrations that create their tables.
//
// Every store accepts a store.DBTX, so the same implementation serves both
// pooled connections and transactions (see WithTx).
package postgres
