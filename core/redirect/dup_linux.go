package redirect

import "golang.org/x/sys/unix"

// Dup places oldfd in slot newfd without the close-on-exec flag.
func Dup(oldfd, newfd int) error {
	return unix.Dup3(oldfd, newfd, 0)
}
