package internaldefs

import (
	"strings"
	"testing"
)

func TestCumulative(t *testing.T) {
	got := Cumulative([]uint64{1, 2, 3})
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("Cumulative = %v, want %v", got, want)
	}
	if Cumulative(nil) != [8]uint64{} {
		t.Fatalf("nil buckets must be all zero")
	}
}

func TestNamesUniqueAndPrefixed(t *testing.T) {
	seen := map[string]bool{AuditDropped.Name: true}
	ids := map[uint16]bool{}
	for _, d := range append(append([]Def{}, CounterDefs...), HistogramDefs...) {
		if !strings.HasPrefix(d.Name, "authcore_") {
			t.Fatalf("%s lacks the authcore_ prefix", d.Name)
		}
		if seen[d.Name] {
			t.Fatalf("duplicate metric name %s", d.Name)
		}
		if ids[uint16(d.ID)] {
			t.Fatalf("duplicate metric id %d", d.ID)
		}
		seen[d.Name] = true
		ids[uint16(d.ID)] = true
	}
}
