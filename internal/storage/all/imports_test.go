package all

import (
	"testing"

	"ingest/internal/storage"
)

func TestAllKindsRegistered(t *testing.T) {
	got := storage.Kinds()
	want := []string{"bigquery", "mssql", "mysql", "postgres", "sqlite"}
	if len(got) != len(want) {
		t.Fatalf("Kinds() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Kinds() = %v, want %v", got, want)
		}
	}
}
