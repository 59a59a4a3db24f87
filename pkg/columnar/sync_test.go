package columnar

import (
	"testing"

	"github.com/htapcore/engine/pkg/types"
)

func TestSyncFromDeltaChunksBatches(t *testing.T) {
	fields := []FieldDef{{Name: "id", Type: types.TypeInt64}}

	rows := [][]byte{[]byte("1"), []byte("2"), []byte("3"), []byte("4"), []byte("5")}
	source := func(visit func([]byte) error) error {
		for _, r := range rows {
			if err := visit(r); err != nil {
				return err
			}
		}
		return nil
	}
	decode := func(v []byte) ([]types.Scalar, error) {
		return []types.Scalar{types.Int64(int64(v[0] - '0'))}, nil
	}

	batches, err := SyncFromDelta(fields, 2, source, decode)
	if err != nil {
		t.Fatalf("SyncFromDelta failed: %v", err)
	}
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()

	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3 (2+2+1)", len(batches))
	}
	if batches[0].NumRows() != 2 || batches[2].NumRows() != 1 {
		t.Fatalf("batch sizes = %d,%d,%d want 2,2,1", batches[0].NumRows(), batches[1].NumRows(), batches[2].NumRows())
	}
}

func TestSyncFromDeltaPropagatesDecodeError(t *testing.T) {
	fields := []FieldDef{{Name: "id", Type: types.TypeInt64}}
	source := func(visit func([]byte) error) error { return visit([]byte("x")) }
	decode := func(v []byte) ([]types.Scalar, error) {
		return nil, &testDecodeErr{}
	}
	if _, err := SyncFromDelta(fields, 10, source, decode); err == nil {
		t.Fatal("expected decode error to propagate")
	}
}

type testDecodeErr struct{}

func (e *testDecodeErr) Error() string { return "decode failed" }
