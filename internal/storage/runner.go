// Package storage provides the transactional boundary shared by the consent,
// audit, and user-data stores.
package storage

import "context"

// Runner executes fn inside one logical transaction. Writes performed by
// stores through the returned context commit or roll back together; reads see
// a single consistent snapshot.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
