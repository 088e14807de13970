package main

import (
	"testing"

	"github.com/planck-hfi/hillipop/internal/spectra"
)

func TestParseRange(t *testing.T) {
	r, err := parseRange("30:2500")
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if r.Lmin != 30 || r.Lmax != 2500 {
		t.Errorf("range = [%d, %d], want [30, 2500]", r.Lmin, r.Lmax)
	}

	for _, bad := range []string{"30", "x:100", "30:y", "100:30", "-1:100"} {
		if _, err := parseRange(bad); err == nil {
			t.Errorf("parseRange(%q) succeeded, want error", bad)
		}
	}
}

func TestRepeat(t *testing.T) {
	rs := repeat(spectra.Range{Lmin: 30, Lmax: 2000}, 3)
	if len(rs) != 3 {
		t.Fatalf("got %d ranges, want 3", len(rs))
	}
	for i, r := range rs {
		if r.Lmin != 30 || r.Lmax != 2000 {
			t.Errorf("range %d = [%d, %d], want [30, 2000]", i, r.Lmin, r.Lmax)
		}
	}
}

func TestDeltaRanges(t *testing.T) {
	rs, err := deltaRanges(spectra.Range{Lmin: 30, Lmax: 129}, 25)
	if err != nil {
		t.Fatalf("deltaRanges: %v", err)
	}
	if len(rs) != 4 {
		t.Fatalf("got %d bins, want 4", len(rs))
	}
	if rs[0].Lmin != 30 || rs[0].Lmax != 54 {
		t.Errorf("first bin = [%d, %d], want [30, 54]", rs[0].Lmin, rs[0].Lmax)
	}
	if rs[3].Lmin != 105 || rs[3].Lmax != 129 {
		t.Errorf("last bin = [%d, %d], want [105, 129]", rs[3].Lmin, rs[3].Lmax)
	}
	for i := 1; i < len(rs); i++ {
		if rs[i].Lmin != rs[i-1].Lmax+1 {
			t.Errorf("bins %d and %d are not contiguous", i-1, i)
		}
	}

	if _, err := deltaRanges(spectra.Range{Lmin: 30, Lmax: 100}, 0); err == nil {
		t.Error("expected error for zero bin width")
	}
}
