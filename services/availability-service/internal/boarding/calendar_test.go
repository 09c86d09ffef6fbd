package boarding

import (
	"reflect"
	"testing"
)

func TestDiff_AddsAndRemoves(t *testing.T) {
	d := Diff(
		[]string{"2024-07-01", "2024-07-02"},
		[]string{"2024-07-02", "2024-07-03"},
	)
	if !reflect.DeepEqual(d.ToAdd, []string{"2024-07-03"}) {
		t.Fatalf("unexpected ToAdd %v", d.ToAdd)
	}
	if !reflect.DeepEqual(d.ToRemove, []string{"2024-07-01"}) {
		t.Fatalf("unexpected ToRemove %v", d.ToRemove)
	}
}

func TestDiff_SameSetIsEmpty(t *testing.T) {
	d := Diff([]string{"2024-07-02", "2024-07-01"}, []string{"2024-07-01", "2024-07-02", "2024-07-01"})
	if !d.Empty() {
		t.Fatalf("expected empty delta, got %+v", d)
	}
}

func TestApply_ReachesUpdated(t *testing.T) {
	existing := []string{"2024-07-01", "2024-07-02"}
	updated := []string{"2024-07-02", "2024-07-03", "2024-07-04"}

	c := New(existing...)
	c.Apply(Diff(existing, updated))
	if !reflect.DeepEqual(c.Dates(), updated) {
		t.Fatalf("expected %v, got %v", updated, c.Dates())
	}
}

func TestAddRemove(t *testing.T) {
	c := New()
	if added, err := c.Add("2024-07-01"); err != nil || !added {
		t.Fatalf("expected add, got %v %v", added, err)
	}
	if added, _ := c.Add("2024-07-01"); added {
		t.Fatalf("second add should report already present")
	}
	if _, err := c.Add("July 1"); err == nil {
		t.Fatalf("expected invalid date error")
	}
	if !c.Remove("2024-07-01") || c.Remove("2024-07-01") {
		t.Fatalf("remove should succeed once")
	}
}
