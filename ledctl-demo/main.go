package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/antongulenko/golib"
	"github.com/joho/godotenv"
	"github.com/robotobyte/ledctl/ledctl"
	log "github.com/sirupsen/logrus"
)

type commandFunc func() error

var (
	cfg          = ledctl.DefaultConfig
	command      = "blink"
	pollInterval = 5 * time.Millisecond
	runTime      = 5 * time.Second
	phases       = uint(0)
	level        = uint(128)
	repeat       = uint(2)
	commands     = map[string]commandFunc{
		"none":      func() error { return nil },
		"on":        turnOn,
		"off":       turnOff,
		"blink":     blink,
		"fade":      fade,
		"oscillate": oscillate,
		"toggle":    toggle,
		"level":     holdLevel,
		"sequence":  playSequence,
		"sync":      syncedOscillate,
	}
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debugln("No .env file loaded:", err)
	}
	if envCommand, ok := os.LookupEnv("LEDCTL_COMMAND"); ok {
		command = envCommand
	}
	cfg.RegisterFlags()
	flag.StringVar(&command, "c", command, fmt.Sprintf("Command to execute, one of: %v", commandNames()))
	flag.DurationVar(&pollInterval, "poll", pollInterval, "Interval between controller update polls")
	flag.DurationVar(&runTime, "time", runTime, "How long to keep polling before exiting")
	flag.UintVar(&phases, "phases", phases, "Number of phases for blink/oscillate/fade (0 = forever)")
	flag.UintVar(&level, "level", level, "Output level for the level command (0..255)")
	flag.UintVar(&repeat, "repeat", repeat, "Repeat count for the sequence command (0 = forever)")
	golib.RegisterLogFlags()
	flag.Parse()
	golib.ConfigureLogging()
	golib.Checkerr(doMain())
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func doMain() error {
	commandFunc, ok := commands[command]
	if !ok {
		return fmt.Errorf("Unknown command %v, available commands: %v", command, commandNames())
	}
	return commandFunc()
}

func newController(name string) *ledctl.Controller {
	out := &ledctl.DummyOutput{Name: name}
	c := ledctl.New(out, cfg)
	golib.Checkerr(c.Init())
	return c
}

// poll drives the controllers until the run time elapses or a signal arrives,
// logging every output level change.
func poll(controllers ...*ledctl.Controller) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	deadline := time.After(runTime)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	levels := make([]uint8, len(controllers))
	for i, c := range controllers {
		levels[i] = c.Level()
		log.Printf("Controller %v: mode %v, level %v", i, c.Mode(), levels[i])
	}
	for {
		select {
		case sig := <-signals:
			log.Println("Received signal, stopping:", sig)
			return nil
		case <-deadline:
			log.Println("Run time elapsed")
			return nil
		case <-ticker.C:
			for i, c := range controllers {
				updated, err := c.UpdateNow()
				if err != nil {
					return err
				}
				if updated && c.Level() != levels[i] {
					levels[i] = c.Level()
					log.Printf("Controller %v: mode %v, level %v", i, c.Mode(), levels[i])
				}
			}
		}
	}
}

func turnOn() error {
	c := newController("demo")
	warn(c.TurnOn())
	return poll(c)
}

func turnOff() error {
	c := newController("demo")
	warn(c.TurnOn())
	warn(c.TurnOff())
	return poll(c)
}

func blink() error {
	c := newController("demo")
	warn(c.Blink(uint16(phases)))
	return poll(c)
}

func fade() error {
	cfg.Pwm = true
	c := newController("demo")
	warn(c.FadeUp())
	return poll(c)
}

func oscillate() error {
	cfg.Pwm = true
	c := newController("demo")
	warn(c.Oscillate(uint16(phases)))
	return poll(c)
}

func toggle() error {
	c := newController("demo")
	warn(c.TurnOn())
	warn(c.Toggle())
	return poll(c)
}

func holdLevel() error {
	cfg.Pwm = true
	c := newController("demo")
	warn(c.SetLevel(uint8(level)))
	return poll(c)
}

func playSequence() error {
	cfg.Pwm = true
	seq := ledctl.NewSequence()
	golib.Checkerr(seq.AddStep(500*time.Millisecond, ledctl.ModeOn))
	golib.Checkerr(seq.AddStep(300*time.Millisecond, ledctl.ModeFadeDown))
	golib.Checkerr(seq.AddStep(700*time.Millisecond, ledctl.ModeBlinkMax))
	golib.Checkerr(seq.AddStep(500*time.Millisecond, ledctl.ModeOff))

	c := newController("demo")
	c.InstallSequence(seq)
	c.SetSequenceRepeatCount(uint8(repeat))
	golib.Checkerr(c.StartSequence())
	return poll(c)
}

func syncedOscillate() error {
	cfg.Pwm = true
	var reg ledctl.SyncRegister
	first := newController("first")
	second := newController("second")
	first.AttachSync(&reg, true)
	second.AttachSync(&reg, false)
	first.InitSyncHandshake()
	second.InitSyncHandshake()

	warn(first.Oscillate(uint16(phases)))
	warn(second.Oscillate(uint16(phases)))
	return poll(first, second)
}

func warn(err error) {
	if err != nil {
		log.Warnln("Request value adjusted:", err)
	}
}
