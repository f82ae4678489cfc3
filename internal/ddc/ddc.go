// Package ddc implements the subset of DDC/CI needed to read and write
// MCCS VCP features over an I2C adapter.
package ddc

import (
	"errors"
	"fmt"
	"time"

	"ddcbright/internal/i2c"
	"ddcbright/internal/vcp"
)

var sleep = time.Sleep

const (
	// DefaultAddress is the 7-bit DDC/CI slave address of a display.
	DefaultAddress = 0x37

	// Address bytes as they appear on the wire (8-bit form).
	displayAddr = 0x6E
	hostAddr    = 0x51
	// Virtual host address used when checksumming replies.
	replyChecksumSeed = 0x50

	opGetVCP      = 0x01
	opGetVCPReply = 0x02
	opSetVCP      = 0x03

	lenFlag       = 0x80
	getReplyLen   = 11
	nullMsgLength = 0x80
	nullMsgCheck  = 0xBE

	DefaultGetDelay = 40 * time.Millisecond
	DefaultSetDelay = 50 * time.Millisecond
)

var (
	ErrChecksum     = errors.New("ddc: reply checksum mismatch")
	ErrNullResponse = errors.New("ddc: display sent null response")
	ErrUnsupported  = errors.New("ddc: feature not supported by display")
	ErrMalformed    = errors.New("ddc: malformed reply")
)

// transport is the raw byte channel to the display; *i2c.Dev satisfies it.
type transport interface {
	Write(p []byte) error
	Read(p []byte) error
}

type Config struct {
	// Address is the 7-bit I2C address; zero means DefaultAddress.
	Address uint16
	// GetDelay is the wait between a Get VCP request and reading the reply.
	GetDelay time.Duration
	// SetDelay is the wait after a Set VCP request before the display
	// accepts another message.
	SetDelay time.Duration
}

// Channel is a DDC/CI session with one display. Not safe for concurrent use.
type Channel struct {
	bus *i2c.Bus
	dev transport
	cfg Config
}

// Open opens the I2C adapter at path (e.g., /dev/i2c-5).
func Open(path string, cfg Config) (*Channel, error) {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	bus, err := i2c.Open(path)
	if err != nil {
		return nil, err
	}
	return &Channel{bus: bus, dev: bus.Dev(cfg.Address), cfg: cfg}, nil
}

func newWithTransport(dev transport, cfg Config) *Channel {
	return &Channel{dev: dev, cfg: cfg}
}

func (c *Channel) Close() error {
	if c == nil || c.bus == nil {
		return nil
	}
	err := c.bus.Close()
	c.bus = nil
	return err
}

// GetVCP reads the current and maximum value of feature code.
func (c *Channel) GetVCP(code vcp.Code) (vcp.Reading, error) {
	if c == nil || c.dev == nil {
		return vcp.Reading{}, fmt.Errorf("ddc: channel is nil")
	}
	if err := c.dev.Write(encodeRequest([]byte{opGetVCP, byte(code)})); err != nil {
		return vcp.Reading{}, fmt.Errorf("ddc: get vcp %s request: %w", code, err)
	}
	sleep(c.cfg.GetDelay)

	buf := make([]byte, getReplyLen)
	if err := c.dev.Read(buf); err != nil {
		return vcp.Reading{}, fmt.Errorf("ddc: get vcp %s reply: %w", code, err)
	}
	r, err := decodeGetReply(code, buf)
	if err != nil {
		return vcp.Reading{}, fmt.Errorf("get vcp %s: %w", code, err)
	}
	return r, nil
}

// SetVCP writes value to feature code. Displays do not acknowledge the write.
func (c *Channel) SetVCP(code vcp.Code, value uint16) error {
	if c == nil || c.dev == nil {
		return fmt.Errorf("ddc: channel is nil")
	}
	payload := []byte{opSetVCP, byte(code), byte(value >> 8), byte(value)}
	if err := c.dev.Write(encodeRequest(payload)); err != nil {
		return fmt.Errorf("ddc: set vcp %s=%d: %w", code, value, err)
	}
	sleep(c.cfg.SetDelay)
	return nil
}

// encodeRequest frames payload as host->display message:
// source, length|0x80, payload..., checksum.
func encodeRequest(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+3)
	out = append(out, hostAddr, lenFlag|byte(len(payload)))
	out = append(out, payload...)
	return append(out, checksum(displayAddr, out))
}

// decodeGetReply validates an 11-byte Get VCP Feature reply:
// 6E 88 02 rc code type maxH maxL curH curL chk.
func decodeGetReply(code vcp.Code, b []byte) (vcp.Reading, error) {
	if len(b) < 3 {
		return vcp.Reading{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(b))
	}
	if b[1] == nullMsgLength && b[2] == nullMsgCheck {
		return vcp.Reading{}, ErrNullResponse
	}
	if len(b) < getReplyLen {
		return vcp.Reading{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(b))
	}
	n := int(b[1] &^ lenFlag)
	if b[1]&lenFlag == 0 || n+3 != getReplyLen {
		return vcp.Reading{}, fmt.Errorf("%w: length byte 0x%02X", ErrMalformed, b[1])
	}
	if want := checksum(replyChecksumSeed, b[:getReplyLen-1]); b[getReplyLen-1] != want {
		return vcp.Reading{}, fmt.Errorf("%w: got 0x%02X want 0x%02X", ErrChecksum, b[getReplyLen-1], want)
	}
	if b[2] != opGetVCPReply {
		return vcp.Reading{}, fmt.Errorf("%w: opcode 0x%02X", ErrMalformed, b[2])
	}
	switch b[3] {
	case 0x00:
	case 0x01:
		return vcp.Reading{}, fmt.Errorf("%w: %s", ErrUnsupported, code)
	default:
		return vcp.Reading{}, fmt.Errorf("%w: result code 0x%02X", ErrMalformed, b[3])
	}
	if vcp.Code(b[4]) != code {
		return vcp.Reading{}, fmt.Errorf("%w: reply for %s, asked %s", ErrMalformed, vcp.Code(b[4]), code)
	}
	return vcp.Reading{
		Max:   uint16(b[6])<<8 | uint16(b[7]),
		Value: uint16(b[8])<<8 | uint16(b[9]),
	}, nil
}

func checksum(seed byte, b []byte) byte {
	sum := seed
	for _, x := range b {
		sum ^= x
	}
	return sum
}
