// Command skeldrv is the example driver skeleton of original_source's
// skel.c, rewritten against the driver package's Callbacks contract: a
// template for anyone wiring up a brand new device protocol.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/networkupstools/nutdrv/driver"
)

const (
	driverName    = "Skeleton UPS driver"
	driverVersion = "0.02"
)

func main() {
	opts, err := parseArgs(os.Args[0], os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.ShowHelp {
		printHelp(os.Args[0])
		return
	}
	if opts.ShowVersion {
		fmt.Printf("%s %s\n", driverName, driverVersion)
		return
	}

	cb := &skelCallbacks{}
	d := driver.NewDriver(opts, cb)

	os.Exit(d.Run(context.Background()))
}

func parseArgs(progname string, argv []string) (driver.Options, error) {
	fs := pflag.NewFlagSet(progname, pflag.ContinueOnError)

	var (
		upsName   = fs.StringP("name", "a", "", "ups.conf section name")
		section   = fs.StringP("section", "s", "", "config section, if different from -a")
		dcount    = fs.CountP("debug", "D", "raise debug verbosity, repeatable")
		quiet     = fs.BoolP("quiet", "q", false, "lower default verbosity")
		killPower = fs.BoolP("killpower", "k", false, "shut down the load and exit")
		help      = fs.BoolP("help", "h", false, "show help text and exit")
		version   = fs.BoolP("version", "V", false, "show version and exit")
		user      = fs.StringP("user", "u", "", "drop privileges to this user after device open")
		group     = fs.StringP("group", "g", "", "drop privileges to this group after device open")
		chrootDir = fs.StringP("chroot", "r", "", "chroot to this directory after device open")
		runDur    = fs.DurationP("duration", "d", 0, "if nonzero, run a single updateinfo cycle then exit")
		xopts     = fs.StringArrayP("xopt", "x", nil, "driver-specific name[=value] option, repeatable")
		confPath  = fs.String("config", "/etc/nut/ups.conf", "path to ups.conf")
		runDir    = fs.String("rundir", "", "directory for pidfile and control socket")
	)

	if err := fs.Parse(argv); err != nil {
		return driver.Options{}, err
	}

	var devicePath string
	if rest := fs.Args(); len(rest) > 0 {
		devicePath = rest[0]
	}

	return driver.Options{
		Progname:    "skeldrv",
		UpsName:     *upsName,
		Section:     *section,
		DCount:      *dcount,
		Quiet:       *quiet,
		KillPower:   *killPower,
		ShowHelp:    *help,
		ShowVersion: *version,
		User:        *user,
		Group:       *group,
		Chroot:      *chrootDir,
		RunDuration: *runDur,
		XOpts:       *xopts,
		ConfigPath:  *confPath,
		RunDir:      *runDir,
		DevicePath:  devicePath,
	}, nil
}

func printHelp(progname string) {
	fmt.Printf("usage: %s -a <ups_name> [OPTIONS] <device_path>\n", progname)
	fmt.Println("  -a, --name string       ups.conf section name")
	fmt.Println("  -k, --killpower         shut down the load and exit")
	fmt.Println("  -D, --debug             raise debug verbosity, repeatable")
	fmt.Println("  -x, --xopt name[=value] driver-specific option, repeatable")
	fmt.Println((&skelCallbacks{}).Help())
}

// skelCallbacks is a direct translation of skel.c's commented-out
// template bodies into the five-function Callbacks contract, kept
// template-shaped on purpose: real drivers replace the TODO bodies
// with protocol code, not the surrounding structure.
type skelCallbacks struct {
	driver.BaseCallbacks
}

func (c *skelCallbacks) MakeVarTable(d *driver.Driver) {
	// allow '-x xyzzy'
	d.Params().Addvar(driver.VarFlag, "xyzzy", "Enable xyzzy mode")
	// allow '-x foo=<some value>'
	d.Params().AddvarReloadable(driver.VarValue, "foo", "Override foo setting")
}

func (c *skelCallbacks) DriverInfo() driver.DriverInfo {
	return driver.DriverInfo{
		Name:    driverName,
		Version: driverVersion,
		Flags:   []driver.DriverFlag{driver.DriverExperimental},
	}
}

func (c *skelCallbacks) Help() string {
	return "  -x xyzzy          Enable xyzzy mode\n  -x foo=<value>    Override foo setting\n"
}

func (c *skelCallbacks) InitUPS(ctx context.Context, d *driver.Driver) error {
	// TODO: open the device at d.DevicePath() here; return an error
	// (not a panic) if the UPS cannot be found.
	if d.DevicePath() == "" {
		return fmt.Errorf("no device path given")
	}
	return nil
}

func (c *skelCallbacks) InitInfo(ctx context.Context, d *driver.Driver) error {
	d.DState().Setinfo("ups.mfr", "skel manufacturer")
	d.DState().Setinfo("ups.model", "longrun 15000")
	d.DState().Setinfo("device.mfr", "skel manufacturer")
	d.DState().Setinfo("device.model", "longrun 15000")

	serial, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("generating example serial number: %w", err)
	}
	d.DState().Setinfo("device.serial", serial.String())

	d.DState().SetFlags("ups.test.interval", driver.FlagRW, driver.FlagNumber)
	d.DState().AddRange("ups.test.interval", 0, 3600)

	d.DState().AddCmd("test.battery.stop")
	return nil
}

func (c *skelCallbacks) UpdateInfo(ctx context.Context, d *driver.Driver) {
	// TODO: read a status line from the device. A short/garbled read
	// should call d.DState().Datastale() and return without touching
	// ups.status.
	status := d.Status()
	status.Init()
	status.Set("OL")
	status.Commit()

	d.DState().Dataok()
}

func (c *skelCallbacks) Shutdown(ctx context.Context, d *driver.Driver) error {
	// TODO: tell the UPS to shut down, then return without sleeping.
	return fmt.Errorf("shutdown not supported")
}

func (c *skelCallbacks) Cleanup(d *driver.Driver) {}

func (c *skelCallbacks) InstCmd(name, extra string) driver.InstCmdResult {
	if name == "test.battery.stop" {
		// TODO: send the stop command to the device.
		return driver.InstCmdHandled
	}
	return driver.InstCmdUnknown
}

func (c *skelCallbacks) SetVar(name, val string) driver.SetVarResult {
	if name == "ups.test.interval" {
		// TODO: send the new interval to the device.
		return driver.SetVarHandled
	}
	return driver.SetVarUnknown
}
