// Package exec is the pull-based vectorized executor: every operator
// exposes the schema/next/reset trio over github.com/apache/arrow-go/v18
// arrow.Record batches, bottom-up, per spec §4.7.5.
package exec

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/htapcore/engine/pkg/catalog"
)

// Operator is one node of the executable pipeline.
type Operator interface {
	// Schema is the operator's static output schema.
	Schema() []catalog.FieldMeta
	// Next advances the operator, returning the next batch, or ok=false at
	// end of stream.
	Next() (arrow.Record, bool, error)
	// Reset re-initializes the operator so it can be driven through another
	// full pass.
	Reset() error
}
