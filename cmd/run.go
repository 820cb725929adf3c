package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fornellas/slogxt/log"

	"github.com/fwsender/fws/firmware"
	machineMod "github.com/fwsender/fws/machine"
)

var RunCmd = &cobra.Command{
	Use:   "run [command]",
	Short: "Send a single command to the machine and wait for its acknowledgement.",
	Args:  cobra.ExactArgs(1),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		line := args[0]
		if strings.Contains(line, "\n") {
			return fmt.Errorf("command must be a single line: %#v", line)
		}

		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"dialect", dialectName,
		)

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		controller, err := GetController()
		if err != nil {
			return err
		}

		events := controller.Events("run", 50)

		if err := controller.Connect(ctx); err != nil {
			return err
		}
		defer func() { err = errors.Join(err, controller.Disconnect(context.WithoutCancel(ctx))) }()

		if err := controller.Submit(firmware.Queued(line)); err != nil {
			return err
		}

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case event, ok := <-events:
				if !ok {
					return fmt.Errorf("event channel closed")
				}
				switch event := event.(type) {
				case machineMod.CommandAcknowledgedEvent:
					if event.Line == line {
						logger.Info("ok")
						return nil
					}
				case machineMod.CommandFailedEvent:
					if event.Line == line {
						return fmt.Errorf("error %d: %s", event.Code, event.Message)
					}
				case machineMod.ConnectionLostEvent:
					return event.Err
				}
			}
		}
	}),
}

func init() {
	AddPortFlags(RunCmd)
	RootCmd.AddCommand(RunCmd)
}
