package columnar

import (
	"bytes"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/klauspost/compress/zstd"

	"github.com/htapcore/engine/pkg/errors"
)

// WriteIPC serializes batches (which must all share one schema) to path
// using Arrow's IPC stream format, zstd-compressed, for warm reload on
// restart without replaying the WAL through the delta store.
func WriteIPC(path string, batches []arrow.Record) error {
	if len(batches) == 0 {
		return nil
	}
	var raw bytes.Buffer
	w := ipc.NewWriter(&raw, ipc.WithSchema(batches[0].Schema()))
	for _, b := range batches {
		if err := w.Write(b); err != nil {
			return errors.WrapStorage(err)
		}
	}
	if err := w.Close(); err != nil {
		return errors.WrapStorage(err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return errors.WrapStorage(err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw.Bytes(), nil)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return errors.WrapStorage(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.WrapStorage(err)
	}
	return nil
}

// ReadIPC reloads a batch list previously written by WriteIPC.
func ReadIPC(path string) ([]arrow.Record, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapStorage(err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.WrapStorage(err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, errors.WrapStorage(err)
	}

	r, err := ipc.NewReader(bytes.NewReader(raw), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.WrapStorage(err)
	}
	defer r.Release()

	var batches []arrow.Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapStorage(err)
		}
		rec.Retain()
		batches = append(batches, rec)
	}
	return batches, nil
}
