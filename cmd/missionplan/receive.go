package main

import (
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/missionplan/internal/transport"
)

// receiveCmd is the robot side of the transport: it accepts plans and
// stores each one as a file.
func receiveCmd(a *app) *cobra.Command {
	var (
		dir  string
		once bool
	)
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Accept mission plans sent by 'run' and store them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if dir == "" {
				dir = a.cfg.LogDir()
			}
			addr := net.JoinHostPort(a.cfg.Transport.Host, strconv.Itoa(a.cfg.Transport.Port))
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			defer ln.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "waiting for plans on %s\n", ln.Addr())

			for {
				path, err := transport.Receive(ctx, ln, dir)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "received %s\n", path)
				if once {
					return nil
				}
			}
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory for received plans (default: log directory)")
	cmd.Flags().BoolVar(&once, "once", false, "exit after the first plan")
	return cmd
}
