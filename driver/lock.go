package driver

import (
	"fmt"

	"github.com/gofrs/flock"
)

// DeviceLock is the advisory lock taken on the device path before
// InitUPS opens it, skipped entirely when the `nolock` option is set
// (spec.md §4.1, §4.7 boot step 5).
type DeviceLock struct {
	fl *flock.Flock
}

// AcquireDeviceLock tries, once, to take an exclusive advisory lock
// on devicePath+".lock". A nil *DeviceLock with nil error means
// locking was skipped (nolock); a non-nil error means another driver
// instance already holds the device.
func AcquireDeviceLock(devicePath string, skip bool) (*DeviceLock, error) {
	if skip || devicePath == "" {
		return nil, nil
	}
	fl := flock.New(devicePath + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fatalf(err, "locking device %s", devicePath)
	}
	if !ok {
		return nil, fatalf(nil, "device %s is already locked by another driver instance", devicePath)
	}
	return &DeviceLock{fl: fl}, nil
}

// Release drops the lock; safe to call on a nil *DeviceLock (the
// nolock/no-path case).
func (l *DeviceLock) Release() error {
	if l == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlocking device: %w", err)
	}
	return nil
}
