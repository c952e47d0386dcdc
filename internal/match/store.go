package match

import (
	"context"
	"errors"

	"github.com/gammonhub/gammon-server-go/internal/board"
)

var (
	// ErrNotFound is returned when no match exists for an ID.
	ErrNotFound = errors.New("match not found")
	// ErrConflict is returned when an Update lost an optimistic
	// concurrency race; the caller reloads and retries.
	ErrConflict = errors.New("match version conflict")
)

// Filter narrows a List call. Zero values mean "any".
type Filter struct {
	Status   Status
	Variant  board.Variant
	MinStake float64
	MaxStake float64
	Limit    int
}

// Store persists matches. Update performs a compare-and-set on
// Match.Version: it succeeds only when the stored version equals the
// one on the passed match, then bumps it. This gives the per-match
// read-modify-persist exclusivity the coordinator relies on.
type Store interface {
	Create(ctx context.Context, m *Match) error
	Get(ctx context.Context, id string) (*Match, error)
	Update(ctx context.Context, m *Match) error
	List(ctx context.Context, f Filter) ([]*Match, error)

	// ListUnsettled returns completed matches whose settlement has
	// not been recorded yet; used by the settlement recovery sweep.
	ListUnsettled(ctx context.Context) ([]*Match, error)
	MarkSettled(ctx context.Context, id string) error
}
