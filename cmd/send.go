package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fornellas/slogxt/log"

	machineMod "github.com/fwsender/fws/machine"
)

var SendCmd = &cobra.Command{
	Use:   "send [path]",
	Short: "Stream a program file to the machine using character-counting flow control.",
	Args:  cobra.ExactArgs(1),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		path := args[0]

		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"dialect", dialectName,
			"path", path,
		)

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, f.Close()) }()

		controller, err := GetController()
		if err != nil {
			return err
		}

		if err := controller.Connect(ctx); err != nil {
			return err
		}
		defer func() { err = errors.Join(err, controller.Disconnect(context.WithoutCancel(ctx))) }()

		streamer := machineMod.NewStreamer(controller)
		if err := streamer.Run(ctx, f); err != nil {
			return err
		}

		logger.Info("Program sent")
		return nil
	}),
}

func init() {
	AddPortFlags(SendCmd)
	RootCmd.AddCommand(SendCmd)
}
