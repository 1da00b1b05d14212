// Package store persists subscription records.
//
// Postgres is the production implementation and wraps the sqlc-generated
// repository. Memory keeps records in process and is used by tests and by
// local runs that have no database.
//
// Both implementations translate driver-level outcomes into the domain
// sentinels ErrSubscriptionNotFound and ErrDuplicateSubscription. Any other
// error is a storage failure and is returned as is.
package store
