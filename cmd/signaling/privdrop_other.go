//go:build !unix

package main

import "github.com/pkg/errors"

func dropPrivileges(uid int) error {
	return errors.Errorf("uid %d: dropping privileges is not supported on this platform", uid)
}
