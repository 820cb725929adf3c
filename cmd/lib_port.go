package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/fwsender/fws/firmware"
	"github.com/fwsender/fws/machine"
	"github.com/fwsender/fws/serialtcp"
)

var portName string
var defaultPortName = ""

var address string
var defaultAddress = ""

var dialectName string
var defaultDialectName = "grbl"

var baudRate int
var defaultBaudRate = machine.DefaultBaudRate

var rxBufferSize int
var defaultRxBufferSize = firmware.DefaultRxBufferSize

var pollRateMs int
var defaultPollRateMs = 100

func AddPortFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&portName, "port-name", "p", defaultPortName, "Serial port name to open")
	cmd.PersistentFlags().StringVarP(&address, "address", "a", defaultAddress, "TCP address to connect to")
	cmd.PersistentFlags().StringVarP(
		&dialectName, "dialect", "d", defaultDialectName,
		fmt.Sprintf("Firmware dialect, one of %v", firmware.DialectNames()),
	)
	cmd.PersistentFlags().IntVar(&baudRate, "baud-rate", defaultBaudRate, "Serial baud rate")
	cmd.PersistentFlags().IntVar(
		&rxBufferSize, "rx-buffer-size", defaultRxBufferSize,
		"Firmware serial receive buffer capacity in bytes, used for flow control",
	)
	cmd.PersistentFlags().IntVar(
		&pollRateMs, "poll-rate-ms", defaultPollRateMs,
		"Status report query interval in milliseconds",
	)
}

func GetOpenPortFn() (func(context.Context, *serial.Mode) (serial.Port, error), error) {
	if portName != "" && address != "" {
		return nil, fmt.Errorf("flags --port-name and --address can not be set simultaneously")
	}

	if portName != "" {
		return func(_ context.Context, mode *serial.Mode) (serial.Port, error) {
			return serial.Open(portName, mode)
		}, nil
	}

	if address != "" {
		return func(ctx context.Context, _ *serial.Mode) (serial.Port, error) {
			return serialtcp.TcpPortDial(ctx, address, 10*time.Second)
		}, nil
	}

	return nil, fmt.Errorf("either --port-name or --address must be set")
}

// GetController builds a Controller from the port and engine flags.
func GetController() (*machine.Controller, error) {
	dialect, err := firmware.ParseDialect(dialectName)
	if err != nil {
		return nil, err
	}

	openPortFn, err := GetOpenPortFn()
	if err != nil {
		return nil, err
	}

	return machine.NewController(dialect.Protocol(), openPortFn, machine.Config{
		RxBufferSize: rxBufferSize,
		PollRate:     time.Duration(pollRateMs) * time.Millisecond,
		BaudRate:     baudRate,
	}), nil
}

func init() {
	resetFlagsFns = append(resetFlagsFns, func() {
		portName = defaultPortName
		address = defaultAddress
		dialectName = defaultDialectName
		baudRate = defaultBaudRate
		rxBufferSize = defaultRxBufferSize
		pollRateMs = defaultPollRateMs
	})
}
