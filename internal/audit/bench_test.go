package audit

import (
	"path/filepath"
	"testing"

	"github.com/ppiankov/conative/internal/contract"
)

func BenchmarkRecord(b *testing.B) {
	al, err := Open(filepath.Join(b.TempDir(), "bench.jsonl"))
	if err != nil {
		b.Fatal(err)
	}
	defer al.Close()

	entry := testEntry(contract.Allow)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		al.Record(entry)
	}
}

func BenchmarkVerify1000(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench.jsonl")
	al, err := Open(path)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		al.Record(testEntry(contract.Block))
	}
	al.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Verify(path)
	}
}
