package history

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `timestamp,solar_power_kw,load_total_kw
2026-02-01 02:00:00,0.5,
2026-02-01 00:00:00,,3.2
2026-02-01 01:00:00,1.5,4.0
`

func TestParse_SortsAndFills(t *testing.T) {
	recs, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if !recs[i-1].Timestamp.Before(recs[i].Timestamp) {
			t.Fatalf("records not sorted")
		}
	}
	// first row has no solar reading: initial fill
	if recs[0].SolarKw != 0 || recs[0].LoadKw != 3.2 {
		t.Fatalf("row 0 = %+v", recs[0])
	}
	// last row has no load reading: forward fill
	if recs[2].LoadKw != 4.0 || recs[2].SolarKw != 0.5 {
		t.Fatalf("row 2 = %+v", recs[2])
	}
}

func TestParse_NonFiniteCellsAreFilled(t *testing.T) {
	data := `timestamp,solar_power_kw,load_total_kw
2026-02-01 00:00:00,1.5,3.2
2026-02-01 01:00:00,NaN,+Inf
2026-02-01 02:00:00,-Inf,nan
`
	recs, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i, r := range recs[1:] {
		if r.SolarKw != 1.5 || r.LoadKw != 3.2 {
			t.Fatalf("row %d = %+v", i+1, r)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if _, err := Parse(strings.NewReader("timestamp,solar_power_kw,load_total_kw\n")); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if _, err := Parse(strings.NewReader("timestamp,solar\n2026-01-01 00:00,1\n")); err == nil {
		t.Fatalf("expected missing column error")
	}
	if _, err := Parse(strings.NewReader("timestamp,solar_power_kw,load_total_kw\nyesterday,1,2\n")); err == nil {
		t.Fatalf("expected timestamp error")
	}
}

func TestLoadAndTail(t *testing.T) {
	p := filepath.Join(t.TempDir(), "h.csv")
	if err := os.WriteFile(p, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	recs, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := Tail(recs, 2); len(got) != 2 || got[1].SolarKw != 0.5 {
		t.Fatalf("tail = %+v", got)
	}
	if got := Tail(recs, 0); len(got) != 3 {
		t.Fatalf("tail(0) should keep all")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}
