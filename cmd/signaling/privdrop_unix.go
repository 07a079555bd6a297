//go:build unix

package main

import (
	"syscall"

	"github.com/pkg/errors"
)

func dropPrivileges(uid int) error {
	if err := syscall.Setuid(uid); err != nil {
		return errors.Wrapf(err, "setuid %d", uid)
	}
	return nil
}
