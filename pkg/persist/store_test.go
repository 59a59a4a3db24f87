package persist

import "testing"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put("orders", []byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	v, ok, err := s.Get("orders", []byte("k1"))
	if err != nil || !ok || string(v) != "v1" {
		t.Fatalf("Get = %q,%v,%v want v1,true,nil", v, ok, err)
	}

	if err := s.Delete("orders", []byte("k1")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	_, ok, err = s.Get("orders", []byte("k1"))
	if err != nil || ok {
		t.Fatalf("expected key gone after delete, ok=%v err=%v", ok, err)
	}
}

func TestScanIsTableScoped(t *testing.T) {
	s := openTestStore(t)

	s.Put("a", []byte("1"), []byte("a1"))
	s.Put("a", []byte("2"), []byte("a2"))
	s.Put("b", []byte("1"), []byte("b1"))

	var got []string
	err := s.Scan("a", nil, nil, func(kv KV) error {
		got = append(got, string(kv.Key)+"="+string(kv.Value))
		return nil
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(got) != 2 || got[0] != "1=a1" || got[1] != "2=a2" {
		t.Fatalf("unexpected scan result: %v", got)
	}
}

func TestPutBatchAndCount(t *testing.T) {
	s := openTestStore(t)

	keys := [][]byte{[]byte("1"), []byte("2"), []byte("3")}
	vals := [][]byte{[]byte("x"), []byte("y"), []byte("z")}
	if err := s.PutBatch("t", keys, vals); err != nil {
		t.Fatalf("PutBatch failed: %v", err)
	}

	n, err := s.Count("t")
	if err != nil || n != 3 {
		t.Fatalf("Count = %d,%v want 3,nil", n, err)
	}
}

func TestDropTableRemovesOnlyThatTable(t *testing.T) {
	s := openTestStore(t)
	s.Put("a", []byte("1"), []byte("a1"))
	s.Put("b", []byte("1"), []byte("b1"))

	if err := s.DropTable("a"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}

	n, _ := s.Count("a")
	if n != 0 {
		t.Fatalf("expected table a empty after drop, got %d", n)
	}
	n, _ = s.Count("b")
	if n != 1 {
		t.Fatalf("expected table b untouched, got %d", n)
	}
}
