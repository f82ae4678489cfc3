package main

import (
	"errors"
	"fmt"
	"io"
	"log"

	"ddcbright/internal/backlight"
	"ddcbright/internal/config"
	"ddcbright/internal/ddc"
	"ddcbright/internal/drm"
	"ddcbright/internal/vcp"
)

type request struct {
	Output string
	Code   vcp.Code
	// Value is nil for a read-only invocation.
	Value *vcp.ValueSpec
}

// channel is the DDC session used by run; *ddc.Channel satisfies it.
type channel interface {
	GetVCP(code vcp.Code) (vcp.Reading, error)
	SetVCP(code vcp.Code, value uint16) error
	Close() error
}

var openChannel = func(path string, cfg ddc.Config) (channel, error) {
	c, err := ddc.Open(path, cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func parseRequest(args []string) (request, error) {
	if len(args) < 2 || len(args) > 3 {
		return request{}, fmt.Errorf("expected <output> <feature-code> [value], got %d args", len(args))
	}
	code, err := vcp.ParseCode(args[1])
	if err != nil {
		return request{}, err
	}
	req := request{Output: args[0], Code: code}
	if len(args) == 3 {
		spec, err := vcp.ParseValueSpec(args[2])
		if err != nil {
			return request{}, err
		}
		req.Value = &spec
	}
	return req, nil
}

// run resolves the output, performs the DDC exchange, then persists and
// prints the report. Nothing is written unless every step succeeded.
func run(cfg config.Config, req request, stdout io.Writer) error {
	ref, err := drm.NewResolver(cfg.SysfsRoot).Resolve(req.Output)
	if err != nil {
		return err
	}
	devPath := ref.Path(cfg.DevDir)
	log.Printf("output=%s device=%s feature=%s", req.Output, devPath, req.Code)

	ch, err := openChannel(devPath, ddc.Config{
		Address:  cfg.DDC.Address,
		GetDelay: cfg.DDC.GetDelay,
		SetDelay: cfg.DDC.SetDelay,
	})
	if err != nil {
		return err
	}
	reading, err := exchange(ch, req, cfg.VerifyAfterSet)
	if cerr := ch.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close %s: %w", devPath, cerr))
	}
	if err != nil {
		return err
	}

	report := backlight.NewReport(reading.Value, reading.Max)
	path, err := backlight.WriteSnapshot(cfg.StateDir, req.Output, report)
	if err != nil {
		return err
	}
	log.Printf("snapshot written path=%s", path)

	b, err := report.JSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", b)
	return err
}

// exchange reads the feature once and, when a value was requested, writes
// the adjusted value. The written value is reported as-is unless verify is
// set, in which case the display is read again.
func exchange(ch channel, req request, verify bool) (vcp.Reading, error) {
	cur, err := ch.GetVCP(req.Code)
	if err != nil {
		return vcp.Reading{}, err
	}
	log.Printf("read feature=%s value=%d max=%d", req.Code, cur.Value, cur.Max)
	if req.Value == nil {
		return cur, nil
	}

	next := vcp.Adjust(cur, *req.Value)
	if err := ch.SetVCP(req.Code, next); err != nil {
		return vcp.Reading{}, err
	}
	log.Printf("set feature=%s spec=%s value=%d", req.Code, req.Value, next)
	if verify {
		return ch.GetVCP(req.Code)
	}
	return vcp.Reading{Value: next, Max: cur.Max}, nil
}
