//go:build !linux
// +build !linux

package redirect

import "golang.org/x/sys/unix"

func Dup(oldfd, newfd int) error {
	return unix.Dup2(oldfd, newfd)
}
