// Package tx lets the employee id service group counter writes without
// knowing which database backs them.
package tx

import (
	"context"
)

// Manager runs a unit of counter work atomically. Seeding uses it so a
// batch of raised counters lands together or not at all.
type Manager interface {
	// RunInTransaction commits when fn returns nil and rolls back otherwise.
	// A call made inside fn joins the outer transaction.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager is a Manager that can also open read-only transactions,
// used to list counters from one consistent snapshot.
type ReadOnlyManager interface {
	Manager

	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
