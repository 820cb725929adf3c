package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fornellas/slogxt/log"

	machineMod "github.com/fwsender/fws/machine"
)

var MonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Connect to the machine and log controller events until interrupted.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
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

		events := controller.Events("monitor", 50)

		if err := controller.Connect(ctx); err != nil {
			return err
		}
		defer func() { err = errors.Join(err, controller.Disconnect(context.WithoutCancel(ctx))) }()

		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-events:
				if !ok {
					return nil
				}
				switch event := event.(type) {
				case machineMod.StateChangedEvent:
					logger.Info("State changed", "from", event.From, "to", event.To)
				case machineMod.StatusUpdatedEvent:
					logger.Debug("Status", "report", event.Report.Raw)
				case machineMod.CommandAcknowledgedEvent:
					logger.Debug("Acknowledged", "line", event.Line)
				case machineMod.CommandFailedEvent:
					logger.Error("Command failed", "line", event.Line, "code", event.Code, "message", event.Message)
				case machineMod.AlarmRaisedEvent:
					logger.Error("Alarm", "code", event.Code, "err", event.Err)
				case machineMod.VersionDetectedEvent:
					logger.Info("Version detected", "version", event.Version, "capabilities", event.Capabilities)
				case machineMod.ConnectionLostEvent:
					logger.Error("Connection lost", "err", event.Err)
					return event.Err
				case machineMod.ConnectionStalledEvent:
					logger.Warn("Connection stalled", "since", event.Since)
				case machineMod.DiagnosticEvent:
					logger.Warn("Diagnostic", "text", event.Text)
				}
			}
		}
	}),
}

func init() {
	AddPortFlags(MonitorCmd)
	RootCmd.AddCommand(MonitorCmd)
}
