package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fornellas/slogxt/log"
)

var jogAxis string
var defaultJogAxis = "X"

var jogDistance float64
var defaultJogDistance = 1.0

var jogFeedRate float64
var defaultJogFeedRate = 500.0

var JogCmd = &cobra.Command{
	Use:   "jog",
	Short: "Jog one axis by a relative distance.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		if len(jogAxis) != 1 {
			return fmt.Errorf("--axis must be a single letter: %#v", jogAxis)
		}

		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"dialect", dialectName,
			"axis", jogAxis,
			"distance", jogDistance,
		)

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		controller, err := GetController()
		if err != nil {
			return err
		}

		if err := controller.Connect(ctx); err != nil {
			return err
		}
		defer func() { err = errors.Join(err, controller.Disconnect(context.WithoutCancel(ctx))) }()

		if err := controller.Jog(jogAxis[0], jogDistance, jogFeedRate); err != nil {
			return err
		}

		logger.Info("Jog submitted")
		return nil
	}),
}

func init() {
	AddPortFlags(JogCmd)

	JogCmd.Flags().StringVar(&jogAxis, "axis", defaultJogAxis, "Axis letter to jog")
	JogCmd.Flags().Float64Var(&jogDistance, "distance", defaultJogDistance, "Relative distance to jog")
	JogCmd.Flags().Float64Var(&jogFeedRate, "feed-rate", defaultJogFeedRate, "Jog feed rate")

	RootCmd.AddCommand(JogCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		jogAxis = defaultJogAxis
		jogDistance = defaultJogDistance
		jogFeedRate = defaultJogFeedRate
	})
}
