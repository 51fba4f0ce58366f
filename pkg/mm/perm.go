package mm

import (
	"strings"

	"github.com/core-tools/hsu-kernel-go/pkg/errors"
)

// Permission is a bit set of access rights on a mapped page.
type Permission uint8

const (
	PermRead    Permission = 1 << 0
	PermWrite   Permission = 1 << 1
	PermExecute Permission = 1 << 2
	PermUser    Permission = 1 << 3
)

const portMask = uint64(PermRead | PermWrite | PermExecute)

// PermissionFromPort decodes the 3-bit syscall port field. At least one of
// R/W/X must be set and no bit outside the low three may be set.
func PermissionFromPort(port uint64) (Permission, error) {
	if port&^portMask != 0 {
		return 0, errors.NewValidationError("port has bits outside R/W/X", nil).WithContext("port", port)
	}
	if port&portMask == 0 {
		return 0, errors.NewValidationError("port requests no access", nil).WithContext("port", port)
	}
	return Permission(port) | PermUser, nil
}

// ParsePermission decodes a manifest permission string such as "rw" or "rx".
func ParsePermission(s string) (Permission, error) {
	var perm Permission
	for _, c := range strings.ToLower(s) {
		switch c {
		case 'r':
			perm |= PermRead
		case 'w':
			perm |= PermWrite
		case 'x':
			perm |= PermExecute
		default:
			return 0, errors.NewValidationError("unknown permission flag", nil).WithContext("flag", string(c))
		}
	}
	if perm == 0 {
		return 0, errors.NewValidationError("empty permission string", nil)
	}
	return perm | PermUser, nil
}

func (p Permission) String() string {
	var b strings.Builder
	if p&PermRead != 0 {
		b.WriteByte('r')
	}
	if p&PermWrite != 0 {
		b.WriteByte('w')
	}
	if p&PermExecute != 0 {
		b.WriteByte('x')
	}
	if p&PermUser != 0 {
		b.WriteByte('u')
	}
	return b.String()
}
