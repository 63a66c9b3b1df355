// Command firmware runs the tag core on a serial byte stream, with the
// IMU and battery simulated. The host side is imuhost.
package main

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/itohio/imutag/pkg/config"
	"github.com/itohio/imutag/pkg/core"
	"github.com/itohio/imutag/pkg/task"
	"github.com/itohio/imutag/pkg/transport"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., /dev/ttyGS0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		nameFlag   = flag.String("name", "", "Device name override (e.g., IMU2R)")
		strictFlag = flag.Bool("strict", false, "Reject time-sync commands with out-of-range fields")
	)
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		glog.Exitf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Transport.Port = *portFlag
	}
	if *nameFlag != "" {
		cfg.Device.Name = *nameFlag
	}
	if *strictFlag {
		cfg.Command.Strict = true
	}

	port, err := transport.OpenSerial(cfg.Transport.Port, cfg.Transport.BaudRate, cfg.Transport.ReadTimeout)
	if err != nil {
		glog.Exitf("Failed to open transport: %v", err)
	}
	defer port.Close()

	peripherals, err := core.Simulated(cfg)
	if err != nil {
		glog.Exitf("Failed to set up peripherals: %v", err)
	}

	tag := core.New(cfg, port, peripherals)
	glog.Infof("%s on %s at %d baud", cfg.Device.Name, port.Name(), cfg.Transport.BaudRate)

	if err := task.NewRunner(context.Background()).HandleSignals().Go(tag).Wait(); err != nil {
		glog.Errorf("%s stopped: %v", cfg.Device.Name, err)
	}
}
