//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux I2C access backed by the i2c-dev character devices (/dev/i2c-*).
//
// Every transfer is issued through I2C_RDWR as a single message. DDC/CI
// displays expect a stop condition between the request and the reply, so
// writes and reads are never combined with a repeated start.

const (
	i2cMrd  = 0x0001
	i2cRdwr = 0x0707

	maxMsgLen = 0xFFFF
)

type msg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type rdwrData struct {
	msgs  uintptr
	nmsgs uint32
}

// Bus is an opened I2C adapter (e.g., /dev/i2c-5).
//
// Bus is not safe for concurrent transfers.
type Bus struct {
	f    *os.File
	path string
}

func Open(path string) (*Bus, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: %w", err)
	}
	return &Bus{f: f, path: path}, nil
}

func (b *Bus) Path() string {
	if b == nil {
		return ""
	}
	return b.path
}

func (b *Bus) Close() error {
	if b == nil || b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}

func (b *Bus) Dev(addr uint16) *Dev {
	if b == nil {
		return nil
	}
	return &Dev{bus: b, addr: addr}
}

// Dev is a peripheral at a 7-bit address on a Bus.
type Dev struct {
	bus  *Bus
	addr uint16
}

func (d *Dev) Addr() uint16 {
	if d == nil {
		return 0
	}
	return d.addr
}

func (d *Dev) Write(p []byte) error {
	return d.transfer(p, 0)
}

func (d *Dev) Read(p []byte) error {
	return d.transfer(p, i2cMrd)
}

func (d *Dev) transfer(p []byte, flags uint16) error {
	if d == nil || d.bus == nil || d.bus.f == nil {
		return errors.New("i2c device is nil")
	}
	if d.addr == 0 || d.addr > 0x7F {
		return fmt.Errorf("invalid i2c addr 0x%X", d.addr)
	}
	if len(p) == 0 {
		return nil
	}
	if len(p) > maxMsgLen {
		return fmt.Errorf("i2c: message too long (%d bytes)", len(p))
	}

	m := msg{addr: d.addr, flags: flags, len: uint16(len(p)), buf: uintptr(unsafe.Pointer(&p[0]))}
	data := rdwrData{msgs: uintptr(unsafe.Pointer(&m)), nmsgs: 1}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.bus.f.Fd(), uintptr(i2cRdwr), uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		return fmt.Errorf("i2c: %s addr 0x%02X: %w", d.bus.path, d.addr, errno)
	}
	return nil
}
