package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/hil"
	"github.com/san-kum/quadsim/internal/teleop"
)

// runDevice serves the flight controller on a serial port, as the embedded
// side of a HIL session would.
func runDevice(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.HIL.Port == "" {
		return errors.New("no serial port: set --port, hil.port or QUADSIM_HIL_PORT")
	}
	sc, err := loadScenario(cfg, args)
	if err != nil {
		return err
	}
	sup, err := newSupervisor(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var src dynamo.CommandSource = sc
	if teleopPort != "" {
		tp, err := hil.OpenSerial(teleopPort, cfg.HIL.Baud)
		if err != nil {
			return err
		}
		defer tp.Close()
		link := teleop.NewLink(tp, log.With().Str("link", "teleop").Logger())
		go func() {
			if err := link.Serve(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("teleop link stopped")
			}
		}()
		src = link
	}

	sp, err := hil.OpenSerial(cfg.HIL.Port, cfg.HIL.Baud)
	if err != nil {
		return err
	}
	defer sp.Close()

	log.Info().Str("port", cfg.HIL.Port).Int("baud", cfg.HIL.Baud).Str("scenario", sc.Name).Msg("device ready")
	dev := hil.NewDevice(sp, sup, src, log)
	err = dev.Run(ctx)
	log.Info().Int("ticks", dev.Ticks()).Stringer("mode", sup.Mode()).Msg("device stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runRemote plays a scenario into a teleop link at the control rate and
// prints the returned telemetry once a second.
func runRemote(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.HIL.Port == "" {
		return errors.New("no serial port: set --port, hil.port or QUADSIM_HIL_PORT")
	}
	sc, err := loadScenario(cfg, args)
	if err != nil {
		return err
	}

	sp, err := hil.OpenSerial(cfg.HIL.Port, cfg.HIL.Baud)
	if err != nil {
		return err
	}
	defer sp.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	remote := teleop.NewRemote(sp)
	if err := remote.Start(); err != nil {
		return err
	}
	log.Info().Str("port", cfg.HIL.Port).Str("scenario", sc.Name).Msg("remote started")

	dt := cfg.Vehicle.Period()
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	steps := int(sc.Duration / dt)
	every := int(cfg.Vehicle.CtrlFreq)
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		tel, err := remote.Update(sc.Command(float64(i) * dt))
		if err != nil {
			return err
		}
		if i%every == 0 {
			roll, pitch, yaw := tel.Sensors.Orientation.Euler()
			fmt.Printf("t=%5.2fs  rpy=(%6.3f %6.3f %6.3f)  forces=%.3f\n",
				float64(i)*dt, roll, pitch, yaw, tel.Forces)
		}
	}
	return nil
}

func listPorts(cmd *cobra.Command, args []string) error {
	ports, err := hil.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}
	return nil
}
