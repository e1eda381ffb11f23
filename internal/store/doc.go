// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the booking, matching and outbox logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// Stores that take part in a transaction expose WithTx; services obtain a
// transaction from a TxRunner and bind every store they touch to it.
package store
