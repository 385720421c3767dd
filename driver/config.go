package driver

import (
	"fmt"

	"github.com/go-ini/ini"
)

// reservedConfigKeys are section keys that are not -x options
// (spec.md §6.4): "driver" (the driver binary serving the section)
// and "desc", which LoadConfigSection skips, plus "port", which it
// returns to the caller instead of parsing as an -x value.
var reservedConfigKeys = map[string]bool{
	"driver": true,
	"desc":   true,
	"port":   true,
}

// LoadConfigSection parses path (ups.conf) with go-ini and applies
// section's keys into pt, following the reload discipline already
// implemented by ParamTable.Apply. "port" is returned separately
// since §4.1 says the core only propagates it to the plug-in, never
// interprets it.
//
// isReload distinguishes the initial load from a SIGHUP-triggered
// reparse (spec.md §4.1, §8 property 5, §8 S6).
func LoadConfigSection(path, section string, pt *ParamTable, isReload bool) (port string, err error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		AllowBooleanKeys:    true,
	}, path)
	if err != nil {
		return "", fatalf(err, "reading config file %s", path)
	}

	if !cfg.HasSection(section) {
		return "", configErrorf("section [%s] not found in %s", section, path)
	}
	sec := cfg.Section(section)

	pt.beginLoad(isReload)

	for _, key := range sec.Keys() {
		name := key.Name()
		if reservedConfigKeys[name] {
			if name == "port" {
				port = key.String()
			}
			continue
		}
		raw := name
		if !key.IsBooleanType() {
			raw = fmt.Sprintf("%s=%s", name, key.Value())
		}
		if err := pt.Apply(raw); err != nil {
			return "", err
		}
	}
	if port == "" {
		if k, err := sec.GetKey("port"); err == nil {
			port = k.String()
		}
	}
	return port, nil
}

// ApplyCLIOverrides applies each "-x name[=value]" argument collected
// from argv on top of whatever the config file already loaded, per
// the same Apply() discipline (command line wins ties because it is
// applied last within the same load pass).
func ApplyCLIOverrides(pt *ParamTable, xopts []string) error {
	for _, raw := range xopts {
		if err := pt.Apply(raw); err != nil {
			return err
		}
	}
	return nil
}

// MirrorParameters publishes every non-SENSITIVE parameter that has a
// value into driver.parameter.<name> DState variables, the
// conventional NUT surface for "what was I configured with" (spec.md
// §3 "Parameter record ... SENSITIVE suppresses the value").
func MirrorParameters(pt *ParamTable, d *DState) {
	for _, name := range pt.order {
		e := pt.entries[name]
		if e.value == nil {
			continue
		}
		if e.typ&VarSensitive != 0 {
			continue
		}
		d.Setinfo("driver.parameter."+name, *e.value)
	}
}
