package driver

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfFixture(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ups.conf")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadConfigSectionExtractsPortAndOptions(t *testing.T) {
	path := writeConfFixture(t, `
[myups]
	driver = skeldrv
	port = /dev/ttyS0
	desc = "test unit"
	pollinterval = 5
	nolock
`)

	pt := NewParamTable()
	pt.AddvarReloadable(VarValue, "pollinterval", "")

	port, err := LoadConfigSection(path, "myups", pt, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != "/dev/ttyS0" {
		t.Errorf("got port %q, want /dev/ttyS0", port)
	}
	if v, _ := pt.Getval("pollinterval"); v != "5" {
		t.Errorf("got pollinterval %q, want 5", v)
	}
	if !pt.Testvar("nolock") {
		t.Error("expected nolock to be recorded as seen")
	}
}

func TestLoadConfigSectionUnknownSection(t *testing.T) {
	path := writeConfFixture(t, "[other]\nport = /dev/ttyS0\n")
	pt := NewParamTable()
	if _, err := LoadConfigSection(path, "myups", pt, false); err == nil {
		t.Fatal("expected ConfigError for missing section")
	}
}

func TestApplyCLIOverridesAfterConfig(t *testing.T) {
	path := writeConfFixture(t, "[myups]\nport = /dev/ttyS0\n")
	pt := NewParamTable()
	if _, err := LoadConfigSection(path, "myups", pt, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ApplyCLIOverrides(pt, []string{"nolock"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pt.Testvar("nolock") {
		t.Error("expected CLI override to apply nolock")
	}
}

func TestMirrorParametersSkipsSensitive(t *testing.T) {
	pt := NewParamTable()
	pt.Addvar(VarValue, "password", "")
	pt.Addvar(VarValue|VarSensitive, "secret", "")
	pt.beginLoad(false)
	_ = pt.Apply("password=hunter2")
	_ = pt.Apply("secret=topsecret")

	d := NewDState(nil)
	MirrorParameters(pt, d)

	if v, ok := d.Getinfo("driver.parameter.password"); !ok || v != "hunter2" {
		t.Errorf("expected driver.parameter.password to be mirrored, got %q ok=%v", v, ok)
	}
	if _, ok := d.Getinfo("driver.parameter.secret"); ok {
		t.Error("expected sensitive parameter not to be mirrored")
	}
}
