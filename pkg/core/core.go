// Package core wires the tag's tasks together: IMU sampling, battery
// sampling and aggregation, the calendar cache, frame transmission and
// time-sync command handling, all sharing one transport.
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/itohio/imutag/pkg/battery"
	"github.com/itohio/imutag/pkg/clock"
	"github.com/itohio/imutag/pkg/command"
	"github.com/itohio/imutag/pkg/config"
	"github.com/itohio/imutag/pkg/device"
	"github.com/itohio/imutag/pkg/imu"
	"github.com/itohio/imutag/pkg/task"
	"github.com/itohio/imutag/pkg/transport"
)

// Peripherals are the hardware collaborators of the core.
type Peripherals struct {
	Sensor imu.Sensor
	ADC    battery.ADC
	Enable battery.Pin
	Millis imu.Millis
	RTC    clock.RTC
}

// Simulated returns peripherals backed by the device simulators and a
// software RTC set to the configured boot time.
func Simulated(cfg *config.Config) (Peripherals, error) {
	boot, err := clock.ParseBoot(cfg.Clock.BootTime)
	if err != nil {
		return Peripherals{}, fmt.Errorf("invalid boot time %q: %w", cfg.Clock.BootTime, err)
	}
	millis := imu.Millis(clock.Uptime())
	return Peripherals{
		Sensor: device.NewIMU(&cfg.Mock, millis),
		ADC:    device.NewBattery(&cfg.Mock, &cfg.Battery, millis),
		Enable: &device.Pin{},
		Millis: millis,
		RTC:    clock.NewMillisRTC(millis, boot),
	}, nil
}

// Core is the running tag.
type Core struct {
	cfg *config.Config
	t   transport.Transport

	Buffer      *imu.Buffer
	Sampler     *imu.Sampler
	Ring        *battery.Ring
	Battery     *battery.Sampler
	Aggregator  *battery.Aggregator
	Clock       *clock.Clock
	Transmitter *Transmitter
	Processor   *command.Processor
	Ingest      *command.Ingest

	tasks []*task.Periodic
}

// New builds a Core that writes frames to and reads commands from t.
func New(cfg *config.Config, t transport.Transport, p Peripherals) *Core {
	if cfg == nil {
		cfg = config.Default()
	}

	c := &Core{cfg: cfg, t: t}
	c.Buffer = imu.NewBuffer()
	c.Sampler = imu.NewSampler(p.Sensor, p.Millis, c.Buffer)
	c.Ring = &battery.Ring{}
	c.Battery = battery.NewSampler(p.ADC, p.Enable, c.Ring)
	c.Aggregator = battery.NewAggregator(c.Ring, battery.DefaultCurve,
		float32(cfg.Battery.MilliVoltsPerLSB), float32(cfg.Battery.Divider))
	c.Clock = clock.New(p.RTC)
	c.Transmitter = NewTransmitter(c.Buffer, c.Aggregator, p.Sensor, c.Clock,
		transport.NewBounded(t, cfg.Transport.Capacity),
		cfg.Schedule.TokenTimeout, cfg.Transport.Capacity)
	c.Processor = command.NewProcessor(c.Clock, cfg.Command.Strict)
	c.Ingest = command.NewIngest(t, c.Processor, cfg.Command.MaxLine,
		command.IdleTicks(cfg.Command.IdleTimeout, cfg.Schedule.Ingest))

	s := cfg.Schedule
	c.tasks = []*task.Periodic{
		task.EveryErr("imu", s.Sensor, c.Sampler.Tick),
		task.EveryErr("transmit", s.Transmit, c.transmit),
		task.Every("battery", s.BatterySample, c.Battery.Tick),
		task.Every("aggregate", s.BatteryAggregate, c.Aggregator.Tick),
		task.Every("clock", s.Clock, c.Clock.Refresh),
		task.EveryErr("ingest", s.Ingest, c.ingest),
		task.Every("process", s.Process, c.Processor.Tick),
	}
	return c
}

// Tasks returns the periodic tasks in start order.
func (c *Core) Tasks() []*task.Periodic {
	return c.tasks
}

func (c *Core) transmit(context.Context) error {
	_, err := c.Transmitter.Tick()
	if errors.Is(err, transport.ErrClosed) {
		return task.ErrStop
	}
	return err
}

func (c *Core) ingest(context.Context) error {
	err := c.Ingest.Tick()
	if errors.Is(err, transport.ErrClosed) {
		return task.ErrStop
	}
	return err
}

// Run runs every task until ctx is done or the transport is closed.
func (c *Core) Run(ctx context.Context) error {
	glog.Infof("%s started: %d tasks, frame limit %d bytes", c.cfg.Device.Name, len(c.tasks), c.cfg.Transport.Capacity)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runner := task.NewRunner(ctx)
	for _, p := range c.tasks {
		runner.Go(p)
	}
	go func() {
		<-c.closed(ctx)
		runner.Stop()
	}()

	err := runner.Wait()
	st := c.Transmitter.Stats()
	glog.Infof("%s stopped: %d frames sent, %d contended, %d dropped", c.cfg.Device.Name, st.Sent, st.Contended, st.Dropped)
	return err
}

// closed is signalled when the transport reports it has been closed or
// ctx is done.
func (c *Core) closed(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	r, ok := c.t.(interface{ Readable() <-chan struct{} })
	go func() {
		defer close(done)
		if !ok {
			<-ctx.Done()
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, open := <-r.Readable():
				if !open {
					return
				}
			}
		}
	}()
	return done
}
