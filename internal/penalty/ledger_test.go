package penalty

import (
	"sync"
	"testing"
)

func TestIdentificationSchedule(t *testing.T) {
	for _, cat := range []Category{VesselID, SmallObjectID, LargeObjectID} {
		l := NewLedger()
		want := []int{180, 240, Infinite, Infinite}
		for i, w := range want {
			out := l.Apply(cat, "shipA")
			if out.Tier != i+1 || out.Penalty != w {
				t.Fatalf("%s: violation %d got %+v", cat, i+1, out)
			}
			if out.Terminal != (w == Infinite) {
				t.Fatalf("%s: violation %d terminal=%v", cat, i+1, out.Terminal)
			}
		}
		if l.Total() != Infinite || !l.IsInfinite() {
			t.Fatalf("%s: expected infinite total, got %d", cat, l.Total())
		}
	}
}

func TestShortSchedules(t *testing.T) {
	cases := map[Category]int{
		SmallObjectRetrieve: 120,
		LargeObjectRetrieve: 120,
		Boundary:            300,
	}
	for cat, first := range cases {
		l := NewLedger()
		if out := l.Apply(cat, ""); out.Penalty != first || out.Terminal {
			t.Fatalf("%s: unexpected first outcome %+v", cat, out)
		}
		if l.Total() != first {
			t.Fatalf("%s: expected total %d, got %d", cat, first, l.Total())
		}
		if out := l.Apply(cat, ""); !out.Terminal {
			t.Fatalf("%s: second violation should be terminal", cat)
		}
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewLedger()
	l.Apply(SmallObjectID, "shipA")
	l.Apply(SmallObjectID, "shipA")
	out := l.Apply(SmallObjectID, "shipB")
	if out.Tier != 1 || out.Penalty != 180 {
		t.Fatalf("shipB should start at tier 1, got %+v", out)
	}
	out = l.Apply(LargeObjectID, "shipA")
	if out.Tier != 1 {
		t.Fatalf("large objects are ledgered separately, got %+v", out)
	}
	if l.Total() != 180+240+180+180 {
		t.Fatalf("unexpected total %d", l.Total())
	}
	if l.Count(SmallObjectID, "shipA") != 2 {
		t.Fatalf("unexpected count %d", l.Count(SmallObjectID, "shipA"))
	}
}

func TestInfiniteIsSticky(t *testing.T) {
	l := NewLedger()
	l.Apply(Boundary, "")
	l.Apply(Boundary, "")
	l.Apply(VesselID, "")
	if l.Total() != Infinite {
		t.Fatalf("finite additions after terminal tier must not change total")
	}
}

func TestConcurrentApply(t *testing.T) {
	l := NewLedger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Apply(VesselID, string(rune('a'+i%26))+string(rune('A'+i/26)))
		}(i)
	}
	wg.Wait()
	if l.Total() != 50*180 {
		t.Fatalf("expected %d, got %d", 50*180, l.Total())
	}
}
