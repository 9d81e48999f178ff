// Package periphout adapts a periph.io GPIO pin as a controller output.
package periphout

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

const DefaultFrequency = 25 * physic.KiloHertz

// Pin drives a gpio.PinOut, using hardware PWM for intermediate levels.
// Freq is the PWM frequency, DefaultFrequency when zero.
type Pin struct {
	Pin  gpio.PinOut
	Freq physic.Frequency
}

func (p *Pin) WriteBinary(on bool) error {
	return p.Pin.Out(gpio.Level(on))
}

func (p *Pin) WriteLevel(level uint8) error {
	switch level {
	case 0:
		return p.Pin.Out(gpio.Low)
	case 255:
		return p.Pin.Out(gpio.High)
	}
	freq := p.Freq
	if freq == 0 {
		freq = DefaultFrequency
	}
	duty := gpio.Duty(uint64(level) * uint64(gpio.DutyMax) / 255)
	return p.Pin.PWM(duty, freq)
}
