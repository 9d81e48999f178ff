package pca9685

import (
	log "github.com/sirupsen/logrus"
)

// I2cBus is the transport used to reach the PCA9685 chip.
type I2cBus interface {
	I2cWrite(addr byte, data ...byte) error
}

// Output drives a single PCA9685 channel as a dimmable output. A nonzero Freq
// sets the PWM frequency (FREQ_MIN..FREQ_MAX Hz); zero keeps the chip default.
type Output struct {
	Bus     I2cBus
	Addr    byte
	Channel byte
	Freq    float64
}

func (o *Output) Init() error {
	log.Debugf("Initializing PCA9685 at %02x, channel %v...", o.Addr, o.Channel)
	if o.Freq != 0 {
		// PRE_SCALE can only be written while the oscillator sleeps
		if err := o.Bus.I2cWrite(o.Addr, MODE1, MODE1_ALLCALL|MODE1_AI|MODE1_SLEEP); err != nil {
			return err
		}
		if err := o.Bus.I2cWrite(o.Addr, PRE_SCALE, Prescaler(o.Freq)); err != nil {
			return err
		}
	}
	if err := o.Bus.I2cWrite(o.Addr, MODE1, MODE1_ALLCALL|MODE1_AI); err != nil {
		return err
	}
	return o.WriteBinary(false)
}

func (o *Output) WriteBinary(on bool) error {
	onL, onH, offL, offH := FullValues(on)
	return o.write(onL, onH, offL, offH)
}

func (o *Output) WriteLevel(level uint8) error {
	switch level {
	case 0:
		return o.WriteBinary(false)
	case 255:
		return o.WriteBinary(true)
	}
	onL, onH, offL, offH := Values(float64(level) / 255)
	return o.write(onL, onH, offL, offH)
}

func (o *Output) write(onL, onH, offL, offH byte) error {
	return o.Bus.I2cWrite(o.Addr, LedRegister(o.Channel), onL, onH, offL, offH)
}
