package driver

import (
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

// dropPrivileges implements the user/group/chroot step of spec.md
// §4.7 boot step 8: it must run after InitUPS has opened the device
// (which commonly needs root to open a raw serial/USB node) and
// before InitInfo, matching the original driver's become_user()/
// chroot() ordering.
func (d *Driver) dropPrivileges() error {
	if d.opts.Chroot != "" {
		if err := unix.Chroot(d.opts.Chroot); err != nil {
			return fatalf(err, "chroot to %s", d.opts.Chroot)
		}
		if err := unix.Chdir("/"); err != nil {
			return fatalf(err, "chdir after chroot")
		}
	}

	if d.opts.Group != "" {
		gid, err := resolveGid(d.opts.Group)
		if err != nil {
			return err
		}
		if err := unix.Setgid(gid); err != nil {
			return fatalf(err, "setgid to %s", d.opts.Group)
		}
	}

	if d.opts.User != "" {
		uid, err := resolveUid(d.opts.User)
		if err != nil {
			return err
		}
		if err := unix.Setuid(uid); err != nil {
			return fatalf(err, "setuid to %s", d.opts.User)
		}
	}

	return nil
}

func resolveUid(name string) (int, error) {
	if u, err := user.Lookup(name); err == nil {
		n, err := strconv.Atoi(u.Uid)
		if err != nil {
			return 0, fatalf(err, "parsing uid for user %s", name)
		}
		return n, nil
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, fatalf(err, "unknown user %s", name)
	}
	return n, nil
}

func resolveGid(name string) (int, error) {
	if g, err := user.LookupGroup(name); err == nil {
		n, err := strconv.Atoi(g.Gid)
		if err != nil {
			return 0, fatalf(err, "parsing gid for group %s", name)
		}
		return n, nil
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, fatalf(err, "unknown group %s", name)
	}
	return n, nil
}
