package target

import (
	"sync"
	"testing"

	"droneops-referee/internal/config"
)

func newTestRegistry() *Registry {
	return NewRegistry([]config.Target{
		{Vessel: "shipA", SmallObjects: []string{"buoy1", "buoy2"}, LargeObjects: []string{"crate"}},
		{Vessel: "shipB"},
		{SmallObjects: []string{"orphan"}},
	})
}

func TestRegistryCatalog(t *testing.T) {
	r := newTestRegistry()
	if r.Len() != 2 {
		t.Fatalf("expected 2 vessels, got %d", r.Len())
	}
	if r.Known("shipX") || !r.Known("shipB") {
		t.Fatalf("unexpected catalog membership")
	}
	if got := r.Vessels(); got[0] != "shipA" || got[1] != "shipB" {
		t.Fatalf("unexpected vessel order %v", got)
	}
}

func TestReportVessel(t *testing.T) {
	r := newTestRegistry()
	if known, first := r.ReportVessel("shipA"); !known || !first {
		t.Fatalf("first report should succeed")
	}
	if known, first := r.ReportVessel("shipA"); !known || first {
		t.Fatalf("second report should be a duplicate")
	}
	if known, _ := r.ReportVessel("shipX"); known {
		t.Fatalf("unknown vessel reported as known")
	}
}

func TestObjectClaims(t *testing.T) {
	r := newTestRegistry()
	cases := []struct {
		name  string
		claim func() Claim
		want  Claim
	}{
		{"new small", func() Claim { return r.ReportSmall("shipA", "buoy1") }, ClaimNew},
		{"duplicate small", func() Claim { return r.ReportSmall("shipA", "buoy1") }, ClaimDuplicate},
		{"large id as small", func() Claim { return r.ReportSmall("shipA", "crate") }, ClaimInvalid},
		{"other vessel", func() Claim { return r.ReportSmall("shipB", "buoy2") }, ClaimInvalid},
		{"new large", func() Claim { return r.ReportLarge("shipA", "crate") }, ClaimNew},
		{"unknown vessel", func() Claim { return r.ReportLarge("shipX", "crate") }, ClaimInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.claim(); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}

	p := r.Progress()
	if len(p) != 2 || p[0].SmallReported != 1 || p[0].SmallTotal != 2 || p[0].LargeReported != 1 || p[0].LargeTotal != 1 {
		t.Fatalf("unexpected progress %+v", p)
	}
}

func TestConcurrentClaims(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup
	results := make(chan Claim, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- r.ReportSmall("shipA", "buoy2")
			r.Progress()
		}()
	}
	wg.Wait()
	close(results)
	news := 0
	for c := range results {
		if c == ClaimNew {
			news++
		}
	}
	if news != 1 {
		t.Fatalf("expected exactly one new claim, got %d", news)
	}
}
