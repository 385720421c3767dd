package driver

import "testing"

func TestSetinfoIsNoOpWhenUnchanged(t *testing.T) {
	d := NewDState(nil)
	var lines []string
	d.SetOnChange(func(l string) { lines = append(lines, l) })

	d.Setinfo("ups.mfr", "acme")
	d.Setinfo("ups.mfr", "acme")

	if len(lines) != 1 {
		t.Fatalf("got %d emitted lines, want 1: %v", len(lines), lines)
	}
}

func TestDelinfoIsIdempotent(t *testing.T) {
	d := NewDState(nil)
	d.Setinfo("ups.mfr", "acme")
	d.Delinfo("ups.mfr")
	d.Delinfo("ups.mfr") // must not panic or double-emit

	if _, ok := d.Getinfo("ups.mfr"); ok {
		t.Error("expected ups.mfr to be gone")
	}
}

func TestValidateSetRejectsReadOnly(t *testing.T) {
	d := NewDState(nil)
	d.Setinfo("ups.mfr", "acme")
	if err := d.validateSet("ups.mfr", "other"); err == nil {
		t.Fatal("expected READONLY rejection")
	} else if ce, ok := err.(*CommandError); !ok || ce.Code != ErrReadOnly {
		t.Errorf("got %v, want READONLY", err)
	}
}

func TestValidateSetEnumAndRange(t *testing.T) {
	d := NewDState(nil)
	d.Setinfo("ups.test.interval", "0")
	d.SetFlags("ups.test.interval", FlagRW, FlagNumber)
	d.AddRange("ups.test.interval", 0, 60)

	if err := d.validateSet("ups.test.interval", "30"); err != nil {
		t.Errorf("expected in-range value to validate, got %v", err)
	}
	if err := d.validateSet("ups.test.interval", "9999"); err == nil {
		t.Error("expected out-of-range rejection")
	}
	if err := d.validateSet("ups.test.interval", "not-a-number"); err == nil {
		t.Error("expected non-numeric rejection")
	}

	d.Setinfo("ups.test.mode", "auto")
	d.SetFlags("ups.test.mode", FlagRW, FlagString)
	d.AddEnum("ups.test.mode", "auto")
	d.AddEnum("ups.test.mode", "manual")
	if err := d.validateSet("ups.test.mode", "bogus"); err == nil {
		t.Error("expected INVALID-VALUE for unlisted enum")
	}
}

func TestDumpLinesEndsWithDumpdone(t *testing.T) {
	d := NewDState(nil)
	d.Setinfo("ups.mfr", "acme")
	d.AddCmd("test.battery.start")
	lines := d.dumpLines()
	if len(lines) == 0 || lines[len(lines)-1] != dumpdoneLine {
		t.Fatalf("dumpLines did not end with DUMPDONE: %v", lines)
	}
}

// TestDumpLinesMatchesS1Scenario pins the literal DUMPALL body
// spec.md §8 S1 names for a single-variable, single-command store:
// exactly SETINFO, ADDCMD, DUMPDONE — no freshness line.
func TestDumpLinesMatchesS1Scenario(t *testing.T) {
	d := NewDState(nil)
	d.Setinfo("ups.status", "OL")
	d.AddCmd("shutdown.return")

	got := d.dumpLines()
	want := []string{
		setinfoLine("ups.status", "OL"),
		addcmdLine("shutdown.return"),
		dumpdoneLine,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestClearDirtyResetsAllVars(t *testing.T) {
	d := NewDState(nil)
	d.Setinfo("a", "1")
	d.Setinfo("b", "2")
	d.clearDirty()
	for name, v := range d.vars {
		if v.dirty {
			t.Errorf("variable %s still dirty after clearDirty", name)
		}
	}
}

func TestAddCmdAndDelCmdAreIdempotent(t *testing.T) {
	d := NewDState(nil)
	d.AddCmd("test.battery.start")
	d.AddCmd("test.battery.start")
	if !d.HasCmd("test.battery.start") {
		t.Fatal("expected command to be registered")
	}
	d.DelCmd("test.battery.start")
	d.DelCmd("test.battery.start")
	if d.HasCmd("test.battery.start") {
		t.Error("expected command to be gone")
	}
}
