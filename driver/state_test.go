package driver

import "testing"

func TestRegisterDriverStateEnumSeedsAllValues(t *testing.T) {
	d := newTestDriver(&recordingCallbacks{})
	d.registerDriverStateEnum()

	v, ok := d.dstate.vars["driver.state"]
	if !ok {
		t.Fatal("expected driver.state to be seeded")
	}
	want := []string{"reconnect.trying", "reconnect.updateinfo", "quiet", "wait"}
	if len(v.enums) != len(want) {
		t.Fatalf("got %d enum values, want %d: %v", len(v.enums), len(want), v.enums)
	}
	for i, e := range want {
		if v.enums[i] != e {
			t.Errorf("enum[%d] = %q, want %q", i, v.enums[i], e)
		}
	}
	if v.value != "quiet" {
		t.Errorf("initial driver.state = %q, want %q", v.value, "quiet")
	}
}

func TestPublishDriverInfoIsReadOnly(t *testing.T) {
	d := newTestDriver(&recordingCallbacks{})
	d.publishDriverInfo()

	v, ok := d.dstate.vars["driver.version.internal"]
	if !ok {
		t.Fatal("expected driver.version.internal to be published")
	}
	if !v.hasFlag(FlagImmutable) {
		t.Error("expected driver.version.internal to be FlagImmutable")
	}
}
