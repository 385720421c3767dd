package driver

import "testing"

func TestStatusBufferCommitIsAtomic(t *testing.T) {
	d := NewDState(nil)
	s := NewStatusBuffer(d)

	s.Init()
	s.Set("OL")
	s.Set("CHRG")
	// value must not be visible before Commit
	if v, ok := d.Getinfo("ups.status"); ok {
		t.Errorf("ups.status visible before commit: %q", v)
	}
	s.Commit()

	v, ok := d.Getinfo("ups.status")
	if !ok {
		t.Fatal("expected ups.status to be set after commit")
	}
	if v != "OL CHRG" {
		t.Errorf("got %q, want %q", v, "OL CHRG")
	}
}

func TestStatusBufferDedupPreservesOrder(t *testing.T) {
	s := NewStatusBuffer(NewDState(nil))
	s.Init()
	s.Set("OL")
	s.Set("OL")
	s.Set("BOOST")
	toks := s.Tokens()
	if len(toks) != 2 || toks[0] != "OL" || toks[1] != "BOOST" {
		t.Errorf("got %v, want [OL BOOST]", toks)
	}
}

func TestStatusBufferEmptyCommitClears(t *testing.T) {
	d := NewDState(nil)
	s := NewStatusBuffer(d)
	s.Init()
	s.Set("OL")
	s.Commit()

	s.Init()
	s.Commit()

	if _, ok := d.Getinfo("ups.status"); ok {
		t.Error("expected ups.status to be cleared by an empty commit")
	}
}

func TestAlarmBufferIsIndependentVariable(t *testing.T) {
	d := NewDState(nil)
	status := NewStatusBuffer(d)
	alarm := NewAlarmBuffer(d)

	status.Init()
	status.Set("OL")
	status.Commit()

	alarm.Init()
	alarm.Set("Replace battery")
	alarm.Commit()

	sv, _ := d.Getinfo("ups.status")
	av, _ := d.Getinfo("ups.alarm")
	if sv != "OL" || av != "Replace battery" {
		t.Errorf("status=%q alarm=%q, want independent values", sv, av)
	}
}
