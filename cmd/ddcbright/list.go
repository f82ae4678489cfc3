package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ddcbright/internal/drm"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List DRM outputs and their DDC i2c adapters",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			outs, err := drm.NewResolver(a.cfg.SysfsRoot).List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, o := range outs {
				dev := string(o.Device)
				if dev == "" {
					dev = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Name, dev, o.Status)
			}
			return tw.Flush()
		},
	}
}
