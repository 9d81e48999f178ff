package ledctl

import (
	log "github.com/sirupsen/logrus"
)

// Output is the physical write primitive behind a Controller. The controller
// decides which of the two writes to use: a computed level of zero always
// results in WriteBinary(false), a nonzero level results in WriteLevel on
// PWM-capable outputs and WriteBinary(true) otherwise. Implementations must
// not block.
type Output interface {
	WriteBinary(on bool) error
	WriteLevel(level uint8) error
}

// DummyOutput records the last written state instead of driving hardware.
// Used for tests and for running the demo without peripherals.
type DummyOutput struct {
	Name string

	On    bool
	Level uint8

	BinaryWrites int
	LevelWrites  int
}

func (d *DummyOutput) WriteBinary(on bool) error {
	d.On = on
	if on {
		d.Level = 255
	} else {
		d.Level = 0
	}
	d.BinaryWrites++
	log.Debugf("Dummy output %v: binary %v", d.Name, on)
	return nil
}

func (d *DummyOutput) WriteLevel(level uint8) error {
	d.On = level > 0
	d.Level = level
	d.LevelWrites++
	log.Debugf("Dummy output %v: level %v", d.Name, level)
	return nil
}
