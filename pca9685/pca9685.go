package pca9685

import (
	"fmt"
	"math"
)

const (
	MODE1 = byte(iota)
	MODE2

	// The I2C addresses are stored in the 7 MSBs. Addresses must be left-shifted once.
	SUBADR1
	SUBADR2
	SUBADR3
	ALLCALLADR

	// Default for LEDn_...: all zero, except for FULL_OFF_BIT in LEDn_OFF_H.
	LED0_ON_L
	LED0_ON_H
	LED0_OFF_L
	LED0_OFF_H

	LED0 = LED0_ON_L
)

const (
	ALL_ON_L = byte(0xFA + iota)
	ALL_ON_H
	ALL_OFF_L
	ALL_OFF_H
	PRE_SCALE // Only settable in SLEEP mode. Default value: 0x30
	TEST_MODE

	ALL_LEDS = ALL_ON_L
)

// Default values all zero, except ALLCALL and SLEEP
const (
	MODE1_ALLCALL = byte(1 << iota) // 1: Respond to ALLCALL address
	MODE1_SUB3                      // 1: Respond to SUB3 address
	MODE1_SUB2                      // 1: Respond to SUB2 address
	MODE1_SUB1                      // 1: Respond to SUB1 address
	MODE1_SLEEP                     // 0: normal mode 1: oscillator off, low power mode
	MODE1_AI                        // 1: Register auto increment
	MODE1_EXTCLK                    // 1: use EXTCLK pin as clock source. Can only be cleared by power cycle or software reset.
	MODE1_RESTART                   // Write 1: wake up from SLEEP (write 0 no effect). Only possible if read as 1, after setting SLEEP.
)

const (
	ADDRESS     = byte(0x40) // 0100 0000
	ADDRESS_MAX = byte(0x7F) // 0111 1111

	SOFTWARE_RESET_ADDRESS = byte(0x03) // 0000 0011 // READ to trigger reset
)

const (
	NUM_OUTPUTS     = 16
	BYTE_PER_OUTPUT = 4

	TIMER_MAX        = 4095
	TIMER_RESOLUTION = TIMER_MAX + 1

	FULL_ON_BIT  = 0x10 // bit 4 of LEDn_ON_H.
	FULL_OFF_BIT = 0x10 // bit 4 of LEDn_OFF_H. Takes precedence over the FULL_ON_BIT.

	FREQ_MIN          = 23.84185791
	FREQ_MAX          = 1525.87890625
	FREQ_MIN_PRESALE  = byte(0xFF)
	FREQ_MAX_PRESCALE = byte(0x03) // Minimum value asserted by hardware
	DEFAULT_PRESCALE  = byte(0x30) // Default PRE_SCALE value, results in 200Hz with the internal oscillator

	INTERNAL_OSCILLATOR = 25000000 // 25 MHz
)

// LedRegister returns the first register of the 4-byte block controlling the given output.
func LedRegister(channel byte) byte {
	if channel >= NUM_OUTPUTS {
		panic(fmt.Sprintf("Invalid PCA9685 output channel %v", channel))
	}
	return LED0 + channel*BYTE_PER_OUTPUT
}

func Values(onTime float64) (byte, byte, byte, byte) {
	return ValuesDelayed(0, onTime)
}

// delay and onTime must be in [0; 1]
func ValuesDelayed(delayTime, onTime float64) (onL, onH, offL, offH byte) {
	if delayTime < 0 || delayTime > 1 || onTime < 0 || onTime > 1 {
		panic(fmt.Sprintf("Invalid timer values delay=%v onTime=%v", delayTime, onTime))
	}
	delayCount := round(delayTime*TIMER_RESOLUTION - 1)
	onCount := round(onTime * TIMER_RESOLUTION) // The onCount is added to delayCount, so the -1 correction is not required anymore
	if delayTime == 0 {
		delayCount = 0
		if onCount > 0 {
			onCount-- // Apply -1 correction since delayCount is zero
		}
	}
	if onTime == 0 {
		onCount = 0
	}

	on := delayCount
	off := on + onCount
	if off > TIMER_RESOLUTION {
		// Because of the delay, the first on-time is pushed into the second PWM cycle, and must be corrected
		off -= TIMER_RESOLUTION
	}
	onL, onH = byte(on), byte(on>>8)
	offL, offH = byte(off), byte(off>>8)
	return
}

func round(f float64) int {
	return int(math.Floor(f + .5))
}

func FullOnValues() (byte, byte, byte, byte) {
	return 0, FULL_ON_BIT, 0, 0
}

func FullOffValues() (byte, byte, byte, byte) {
	return 0, 0, 0, FULL_OFF_BIT
}

func FullValues(on bool) (byte, byte, byte, byte) {
	if on {
		return FullOnValues()
	} else {
		return FullOffValues()
	}
}

func PrescalerExternalClock(externalOscillator float64, frequency float64) byte {
	v := externalOscillator / (float64(TIMER_RESOLUTION) * frequency)
	return byte(round(v)) - 1
}

func Prescaler(frequency float64) byte {
	return PrescalerExternalClock(INTERNAL_OSCILLATOR, frequency)
}
