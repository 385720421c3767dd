package driver

import "testing"

func TestApplyRejectsUnknownOptionOnInitialLoad(t *testing.T) {
	pt := NewParamTable()
	pt.beginLoad(false)
	if err := pt.Apply("bogus=1"); err == nil {
		t.Fatal("expected ConfigError for unknown option")
	} else if _, ok := err.(*ConfigError); !ok {
		t.Errorf("got %T, want *ConfigError", err)
	}
}

func TestApplySkipsUnknownOptionOnReload(t *testing.T) {
	pt := NewParamTable()
	pt.beginLoad(true)
	if err := pt.Apply("bogus=1"); err != nil {
		t.Fatalf("expected silent skip on reload, got %v", err)
	}
}

func TestApplyFlagRejectsValue(t *testing.T) {
	pt := NewParamTable()
	pt.beginLoad(false)
	if err := pt.Apply("nolock=yes"); err == nil {
		t.Fatal("expected error: flag option given a value")
	}
}

func TestApplyValueRequiresValue(t *testing.T) {
	pt := NewParamTable()
	pt.beginLoad(false)
	if err := pt.Apply("port"); err == nil {
		t.Fatal("expected error: value option given no value")
	}
}

func TestTestValReloadableTransitions(t *testing.T) {
	pt := NewParamTable()

	pt.beginLoad(false)
	if err := pt.Apply("port=/dev/ttyS0"); err != nil {
		t.Fatalf("unexpected error on initial load: %v", err)
	}
	if v, _ := pt.Getval("port"); v != "/dev/ttyS0" {
		t.Fatalf("got %q after initial load", v)
	}

	// reload with an unchanged value is a no-op (testValReloadable -1)
	pt.beginLoad(true)
	if err := pt.Apply("port=/dev/ttyS0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// reload with a changed value on a non-reloadable option is rejected silently
	pt.beginLoad(true)
	if err := pt.Apply("port=/dev/ttyS1"); err != nil {
		t.Fatalf("unexpected error (rejection must be silent): %v", err)
	}
	if v, _ := pt.Getval("port"); v != "/dev/ttyS0" {
		t.Errorf("non-reloadable port changed on reload: got %q", v)
	}

	// a reloadable option does accept the new value on reload
	pt.AddvarReloadable(VarValue, "pollinterval", "")
	pt.beginLoad(false)
	_ = pt.Apply("pollinterval=2")
	pt.beginLoad(true)
	if err := pt.Apply("pollinterval=5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := pt.Getval("pollinterval"); v != "5" {
		t.Errorf("reloadable option did not update: got %q", v)
	}
}

func TestTestvarReflectsSeenThisLoad(t *testing.T) {
	pt := NewParamTable()
	pt.beginLoad(false)
	_ = pt.Apply("nolock")
	if !pt.Testvar("nolock") {
		t.Error("expected Testvar(nolock) true after Apply")
	}
	pt.beginLoad(false)
	if pt.Testvar("nolock") {
		t.Error("expected Testvar(nolock) false after a fresh beginLoad that didn't re-apply it")
	}
}

func TestTestinfoReloadable(t *testing.T) {
	d := NewDState(nil)
	d.Setinfo("driver.parameter.foo", "old")

	if code := TestinfoReloadable(d, true, "driver.parameter.foo", "old", false); code != -1 {
		t.Errorf("unchanged value: got %d, want -1", code)
	}
	if code := TestinfoReloadable(d, true, "driver.parameter.foo", "new", false); code != 0 {
		t.Errorf("changed value, not reloadable, reloading: got %d, want 0", code)
	}
	if code := TestinfoReloadable(d, true, "driver.parameter.foo", "new", true); code != 1 {
		t.Errorf("changed value, reloadable, reloading: got %d, want 1", code)
	}
	if code := TestinfoReloadable(d, false, "driver.parameter.foo", "new", false); code != 1 {
		t.Errorf("changed value, not reloading at all: got %d, want 1", code)
	}
}
