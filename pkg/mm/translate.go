package mm

import (
	"github.com/core-tools/hsu-kernel-go/pkg/errors"
)

// Token grants translated access to one address space. Every kernel read or
// write through a user pointer goes through a token; raw indexing into frame
// storage from outside this package is not offered.
type Token struct {
	ms *MemorySet
}

func (ms *MemorySet) Token() Token {
	return Token{ms: ms}
}

// WriteBytes copies data into user memory at addr, spanning pages as needed.
// Every touched page must be mapped.
func (t Token) WriteBytes(addr VirtAddr, data []byte) error {
	for len(data) > 0 {
		page, exists := t.ms.pages[addr.FloorPage()]
		if !exists {
			return errors.NewProcessError("user address not mapped", nil).
				WithContext("addr", uint64(addr))
		}
		offset := addr.PageOffset()
		n := copy(page.frame.Data[offset:], data)
		data = data[n:]
		addr += VirtAddr(n)
	}
	return nil
}

// ReadBytes copies n bytes of user memory starting at addr.
func (t Token) ReadBytes(addr VirtAddr, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for n > 0 {
		page, exists := t.ms.pages[addr.FloorPage()]
		if !exists {
			return nil, errors.NewProcessError("user address not mapped", nil).
				WithContext("addr", uint64(addr))
		}
		offset := addr.PageOffset()
		chunk := page.frame.Data[offset:]
		if len(chunk) > n {
			chunk = chunk[:n]
		}
		out = append(out, chunk...)
		n -= len(chunk)
		addr += VirtAddr(len(chunk))
	}
	return out, nil
}

// ReadCString reads a NUL-terminated string at addr, at most max bytes long.
func (t Token) ReadCString(addr VirtAddr, max int) (string, error) {
	var out []byte
	for len(out) < max {
		page, exists := t.ms.pages[addr.FloorPage()]
		if !exists {
			return "", errors.NewProcessError("user address not mapped", nil).
				WithContext("addr", uint64(addr))
		}
		b := page.frame.Data[addr.PageOffset()]
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
		addr++
	}
	return "", errors.NewValidationError("unterminated string in user memory", nil).
		WithContext("max", max)
}
