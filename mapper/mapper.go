package mapper

import (
	"context"

	"github.com/syssam/rdb/dialect"
	"github.com/syssam/rdb/entity"
	"github.com/syssam/rdb/query"
)

// Mapper executes query descriptors against storage.
type Mapper interface {
	// Select returns the matched records. Streamed descriptors yield a
	// Cursor that runs on first iteration, others a fetched List.
	Select(ctx context.Context, q *query.Descriptor) (entity.Collection, error)
	Count(ctx context.Context, q *query.Descriptor) (int, error)
	Max(ctx context.Context, q *query.Descriptor, attr string) (float64, error)
	Min(ctx context.Context, q *query.Descriptor, attr string) (float64, error)
	Sum(ctx context.Context, q *query.Descriptor, attr string) (float64, error)
	// SelectRelated returns the records related to owner. A nil q selects
	// every related record.
	SelectRelated(ctx context.Context, owner *entity.Entity, relation string, q *query.Descriptor) (Related, error)
	CountRelated(ctx context.Context, owner *entity.Entity, relation string, q *query.Descriptor) (int, error)
}

// Related is the result of SelectRelated. To-many relations set
// Collection; to-one relations set Entity, which is nil when no record is
// related.
type Related struct {
	Collection entity.Collection
	Entity     *entity.Entity
}

// QueryComposer turns descriptors into SQL text and arguments.
type QueryComposer interface {
	ComposeSelect(q *query.Descriptor) (string, []any, error)
	ComposeCount(q *query.Descriptor) (string, []any, error)
	ComposeAggregate(q *query.Descriptor, function, attr string) (string, []any, error)
	ComposeRelated(owner *entity.Entity, relation string, q *query.Descriptor) (string, []any, error)
	ComposeCountRelated(owner *entity.Entity, relation string, q *query.Descriptor) (string, []any, error)
}

// Connection prepares statements.
type Connection = dialect.Preparer

// Statement is a prepared statement read one row at a time.
type Statement = dialect.Stmt

// Factory creates the records and collections returned by a mapper.
type Factory interface {
	entity.RecordFactory
	entity.CollectionFactory
}
