package driver

import "testing"

func TestValidTrackingID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"", false},
		{"has space", false},
		{"tab\there", false},
	}
	for _, c := range cases {
		if got := validTrackingID(c.id); got != c.want {
			t.Errorf("validTrackingID(%q) = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestValidTrackingIDRejectsOverlong(t *testing.T) {
	long := make([]byte, maxTrackingIDLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if validTrackingID(string(long)) {
		t.Error("expected overlong id to be rejected")
	}
}

func TestTrackingRegistryArmAndTake(t *testing.T) {
	r := newTrackingRegistry()
	p := &ctrlPeer{}

	if _, ok := r.Take(p); ok {
		t.Fatal("expected no armed id before Arm")
	}

	r.Arm(p, "abc-123")
	id, ok := r.Take(p)
	if !ok || id != "abc-123" {
		t.Fatalf("got (%q, %v), want (\"abc-123\", true)", id, ok)
	}

	if _, ok := r.Take(p); ok {
		t.Error("expected Take to clear the armed id")
	}
}
