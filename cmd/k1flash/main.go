// Command k1flash drives the serial bootloader on a Creality K1 nozzle or
// bed MCU: probe it, read its version record, flash a firmware image, start
// the flashed application, or ask a running Klipper application to reboot
// back into the bootloader.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/Fiddl3/k1-mcu-flasher/bootloader"
	"github.com/Fiddl3/k1-mcu-flasher/firmware"
	"github.com/Fiddl3/k1-mcu-flasher/internal/config"
	"github.com/Fiddl3/k1-mcu-flasher/internal/logging"
	"github.com/Fiddl3/k1-mcu-flasher/transport"
)

// CLI is the root command structure for k1flash.
type CLI struct {
	Port    string `short:"i" help:"Serial device of the MCU." placeholder:"DEVICE"`
	AppBaud int    `short:"b" help:"Application baud rate used when requesting the bootloader." placeholder:"BAUD"`
	Verbose bool   `short:"v" help:"Enable debug output."`
	Config  string `help:"Config file path. Without it, ., ~/.config/k1flash, and /etc/k1flash are searched." type:"path"`
	LogFile string `help:"Also write JSON logs to this file." type:"path"`

	Handshake         HandshakeCmd         `cmd:"" help:"Probe the bootloader until it answers."`
	Version           VersionCmd           `cmd:"" help:"Read the combined hardware and firmware version."`
	Update            UpdateCmd            `cmd:"" help:"Flash a firmware image, then start it."`
	Start             StartCmd             `cmd:"" help:"Start the flashed application."`
	RequestBootloader RequestBootloaderCmd `cmd:"" help:"Ask a running application to reboot into the bootloader."`
}

// appEnv carries everything a command needs at run time.
type appEnv struct {
	ctx context.Context
	cfg *config.Config
	log *zap.SugaredLogger

	base *zap.Logger
}

func newApp(cli *CLI) (*appEnv, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.Port != "" {
		cfg.Port = cli.Port
	}
	if cli.AppBaud != 0 {
		cfg.Serial.AppBaud = cli.AppBaud
	}
	if cli.LogFile != "" {
		cfg.Logging.File = cli.LogFile
	}

	base, err := logging.New(cfg.Logging, cli.Verbose)
	if err != nil {
		return nil, err
	}
	base = base.With(zap.String("run", uuid.NewString()))

	return &appEnv{
		cfg:  cfg,
		log:  base.Sugar(),
		base: base,
	}, nil
}

// newSession opens the configured port at the bootloader speed and wires a
// session on top of it. The caller owns the returned port and must close it.
func (a *appEnv) newSession(opts ...bootloader.Option) (*bootloader.Session, *transport.Port, error) {
	if a.cfg.Port == "" {
		return nil, nil, errors.New("no serial port configured, pass -i or set port in the config")
	}

	port, err := transport.Open(a.cfg.Port)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]bootloader.Option{
		bootloader.WithLogger(logging.NewAdapter(a.base)),
		bootloader.WithHandshakeWindow(a.cfg.Serial.HandshakeWindow),
		bootloader.WithHandshakePoll(a.cfg.Serial.HandshakePoll),
		bootloader.WithResponseTimeout(a.cfg.Serial.ResponseTimeout),
		bootloader.WithRequestBaud(a.cfg.Serial.AppBaud),
		bootloader.WithRequestSettle(a.cfg.Serial.RequestSettle),
	}, opts...)

	return bootloader.New(port, opts...), port, nil
}

// HandshakeCmd probes the bootloader.
type HandshakeCmd struct{}

func (c *HandshakeCmd) Run(app *appEnv) error {
	sess, port, err := app.newSession()
	if err != nil {
		return err
	}
	defer port.Close()

	if err := sess.Handshake(app.ctx); err != nil {
		return err
	}
	fmt.Printf("Handshake successful on %s\n", app.cfg.Port)
	return nil
}

// VersionCmd reads the version record.
type VersionCmd struct{}

func (c *VersionCmd) Run(app *appEnv) error {
	sess, port, err := app.newSession()
	if err != nil {
		return err
	}
	defer port.Close()

	if err := sess.Handshake(app.ctx); err != nil {
		return err
	}
	ver, err := sess.Version(app.ctx)
	if err != nil {
		return err
	}

	if s := ver.String(); s != "" {
		fmt.Printf("FW Version: %s\n", s)
	} else {
		fmt.Println("Bootloader reachable, no application version reported")
	}
	return nil
}

// UpdateCmd flashes a firmware image.
type UpdateCmd struct {
	File    string `arg:"" help:"Firmware image, raw binary or Intel hex (.hex, .ihx)." type:"existingfile"`
	NoStart bool   `help:"Leave the bootloader running instead of starting the application."`
}

func (c *UpdateCmd) Run(app *appEnv) error {
	img, err := firmware.Load(c.File)
	if err != nil {
		return err
	}
	app.log.Infow("firmware loaded",
		"file", c.File,
		"bytes", img.Len(),
		"sum", fmt.Sprintf("0x%02X", img.Sum()),
	)

	attempts := app.cfg.Update.Retries
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = app.flashOnce(img)
		if lastErr == nil {
			break
		}
		if app.ctx.Err() != nil {
			return lastErr
		}
		app.log.Errorw("firmware update attempt failed",
			"attempt", attempt,
			"of", attempts,
			"error", lastErr.Error(),
		)
	}
	if lastErr != nil {
		return fmt.Errorf("firmware update failed after %d attempts: %w", attempts, lastErr)
	}

	fmt.Println("Firmware updated successfully")
	if c.NoStart {
		return nil
	}
	return app.startApp()
}

// flashOnce runs one complete update attempt on a fresh session.
func (a *appEnv) flashOnce(img *firmware.Image) error {
	bar := newProgressBar(img.Len())
	sess, port, err := a.newSession(bootloader.WithProgressCallback(func(p bootloader.Progress) {
		switch p.Stage {
		case bootloader.StageTransfer:
			_ = bar.Set(p.BytesSent)
		case bootloader.StageComplete:
			_ = bar.Finish()
		}
	}))
	if err != nil {
		return err
	}
	defer port.Close()

	if err := sess.Handshake(a.ctx); err != nil {
		return err
	}
	if err := sess.UpdateFirmware(a.ctx, img); err != nil {
		fmt.Fprintln(os.Stderr)
		return err
	}
	return nil
}

// startApp hands control to the flashed application, retrying on a fresh
// handshake after each failure.
func (a *appEnv) startApp() error {
	sess, port, err := a.newSession()
	if err != nil {
		return err
	}
	defer port.Close()

	attempts := a.cfg.Update.Retries
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = sess.Handshake(a.ctx); lastErr == nil {
			if lastErr = sess.StartApp(a.ctx); lastErr == nil {
				fmt.Println("Application started")
				return nil
			}
		}
		if a.ctx.Err() != nil {
			break
		}
		a.log.Errorw("app start attempt failed",
			"attempt", attempt,
			"of", attempts,
			"error", lastErr.Error(),
		)
	}
	return fmt.Errorf("app start failed after %d attempts: %w", attempts, lastErr)
}

// StartCmd starts the flashed application.
type StartCmd struct{}

func (c *StartCmd) Run(app *appEnv) error {
	return app.startApp()
}

// RequestBootloaderCmd reboots a running application into the bootloader.
type RequestBootloaderCmd struct{}

func (c *RequestBootloaderCmd) Run(app *appEnv) error {
	sess, port, err := app.newSession()
	if err != nil {
		return err
	}
	defer port.Close()

	ver, err := sess.RequestBootloader(app.ctx)
	if err != nil {
		return err
	}

	if s := ver.String(); s != "" {
		fmt.Printf("Bootloader active: FW Version: %s\n", s)
	} else {
		fmt.Println("Bootloader active")
	}
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Flashing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("k1flash"),
		kong.Description("Firmware flasher for the serial bootloader on Creality K1 MCUs."),
		kong.UsageOnError(),
	)

	app, err := newApp(&cli)
	kctx.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app.ctx = ctx

	app.log.Debugw("command selected", "command", kctx.Command())

	err = kctx.Run(app)
	_ = app.base.Sync()
	kctx.FatalIfErrorf(err)
}
