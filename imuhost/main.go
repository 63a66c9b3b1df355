// Command imuhost receives frames from a tag, splits them into per-sample
// rows and records them to CSV, SQLite and MQTT.
//
// Commands on stdin:
//
//	tt  send the host time to the tag
//	rr  start recording
//	ss  stop recording
//	st  print statistics
//	dd  disconnect and exit
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/itohio/imutag/pkg/config"
	"github.com/itohio/imutag/pkg/host"
	"github.com/itohio/imutag/pkg/host/sink"
	"github.com/itohio/imutag/pkg/task"
)

// runFunc adapts a function to task.Runnable.
type runFunc func(ctx context.Context) error

func (f runFunc) Run(ctx context.Context) error { return f(ctx) }

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use a simulated tag instead of the serial port")
		csvFlag    = flag.String("csv", "", "Directory for CSV files (overrides config)")
		dbFlag     = flag.String("db", "", "SQLite database path (overrides config)")
		mqttFlag   = flag.String("mqtt", "", "MQTT broker URL (overrides config)")
		recordFlag = flag.Bool("record", false, "Start recording immediately")
		syncFlag   = flag.Bool("sync", true, "Send the host time on connect")
		listFlag   = flag.Bool("list", false, "List serial ports and exit")
	)
	flag.Parse()
	defer glog.Flush()

	if *listFlag {
		ports, err := host.Ports()
		if err != nil {
			glog.Exitf("%v", err)
		}
		for _, p := range ports {
			fmt.Println(p.Name)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		glog.Exitf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Host.Port = *portFlag
	}
	if *csvFlag != "" {
		cfg.Host.CSVDir = *csvFlag
	}
	if *dbFlag != "" {
		cfg.Host.SQLitePath = *dbFlag
	}
	if *mqttFlag != "" {
		cfg.Host.MQTTBroker = *mqttFlag
	}

	var device host.Device
	if *mockFlag {
		device = host.NewMock(cfg)
	} else {
		device = host.New(cfg.Host.Port, cfg.Host.BaudRate, cfg.Host.BufferSize, cfg.Device.Name)
	}

	recorder, err := newRecorder(&cfg.Host)
	if err != nil {
		glog.Exitf("Failed to set up sinks: %v", err)
	}

	if err := device.Connect(); err != nil {
		recorder.Close()
		glog.Exitf("Failed to connect: %v", err)
	}
	if *syncFlag {
		if err := device.SyncTime(time.Now()); err != nil {
			glog.Warningf("time sync failed: %v", err)
		}
	}
	recorder.Record(*recordFlag)

	rows := host.NewConverter(cfg.Host.BufferSize)(device.Frames())

	runner := task.NewRunner(context.Background()).HandleSignals()
	runner.Go(
		runFunc(func(ctx context.Context) error {
			return recorder.Run(ctx, rows)
		}),
		task.Every("stats", 10*time.Second, func() {
			glog.Infof("%v; %v", device.Stats(), recorder)
		}),
		runFunc(func(ctx context.Context) error {
			return commands(ctx, device, recorder, runner.Stop)
		}),
	)
	err = runner.Wait()
	if cErr := device.Close(); cErr != nil {
		glog.Errorf("closing device: %v", cErr)
	}
	if err != nil {
		glog.Errorf("stopped: %v", err)
	}
}

func newRecorder(cfg *config.HostConfig) (*host.Recorder, error) {
	var sinks []host.Sink
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	if cfg.CSVDir != "" {
		s, err := sink.NewCSV(cfg.CSVDir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.SQLitePath != "" {
		sinks = append(sinks, sink.NewSQLite(cfg.SQLitePath))
	}

	if cfg.MQTTBroker != "" {
		s, err := sink.DialMQTT(cfg.MQTTBroker, cfg.MQTTTopic, "imuhost-"+uuid.NewString())
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		glog.Warning("no sinks configured, rows will only be counted")
	}
	return host.NewRecorder(sinks...), nil
}

// commands reads operator commands from stdin until ctx is done. dd calls
// stop.
func commands(ctx context.Context, device host.Device, recorder *host.Recorder, stop func()) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				// stdin closed; keep recording until stopped by signal
				<-ctx.Done()
				return ctx.Err()
			}
			switch line {
			case "tt":
				if err := device.SyncTime(time.Now()); err != nil {
					glog.Errorf("time sync failed: %v", err)
				}
			case "rr":
				recorder.Record(true)
			case "ss":
				recorder.Record(false)
			case "st":
				fmt.Printf("%v; %v\n", device.Stats(), recorder)
			case "dd":
				stop()
				return nil
			case "":
			default:
				fmt.Println("commands: tt (sync time), rr (record), ss (stop), st (stats), dd (disconnect)")
			}
		}
	}
}
