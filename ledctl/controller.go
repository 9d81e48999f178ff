package ledctl

import (
	"flag"
	"fmt"
	"time"
)

var DefaultConfig = Config{
	BlinkPeriod:     time.Second,
	OscillatePeriod: time.Second,
	RefreshInterval: 20 * time.Millisecond,
}

// Config carries the construction-time settings of a Controller. Zero values
// are replaced by the corresponding DefaultConfig values.
type Config struct {
	Pwm          bool // Output is capable of proportional (PWM) drive
	InvertSignal bool // Output is active low

	BlinkPeriod     time.Duration // One blink period covers two phases
	OscillatePeriod time.Duration // One oscillation period covers two phases
	RefreshInterval time.Duration // Delay between level updates for fade and oscillate

	Clock Clock // Defaults to NewSystemClock()
}

func (c *Config) RegisterFlags() {
	flag.BoolVar(&c.Pwm, "pwm", c.Pwm, "Drive the output proportionally (PWM) instead of binary on/off")
	flag.BoolVar(&c.InvertSignal, "invert", c.InvertSignal, "Invert the output signal (active low output)")
	flag.DurationVar(&c.BlinkPeriod, "blink-period", c.BlinkPeriod, "Blink period (one period is two phases)")
	flag.DurationVar(&c.OscillatePeriod, "oscillate-period", c.OscillatePeriod, "Oscillation period (one period is two phases)")
	flag.DurationVar(&c.RefreshInterval, "refresh", c.RefreshInterval, "Interval between level updates for fade and oscillate")
}

// Controller drives a single dimmable output through high-level intents like
// on, off, blink, fade and oscillate. It never owns a timer: the caller polls
// UpdateNow at its own cadence and the controller performs at most one state
// transition and one output write per call. Not safe for concurrent use.
type Controller struct {
	output Output
	clock  Clock

	pwm    bool
	invert bool

	modeSetting Mode // last requested (resolved) mode
	modeActive  Mode // currently executing mode
	level       uint16
	dirUp       bool

	levelMin  uint16
	levelMax  uint16
	levelMid  uint16
	levelStep uint16

	refreshIntervalMs uint32
	blinkPeriodMs     uint32
	oscillatePeriodMs uint32
	remainingPhases   uint16

	updateIntervalMs uint32 // 0 means steady, no periodic update needed
	lastDriveTime    uint32

	syncReg  *SyncRegister
	syncBit  uint16
	syncMask uint16

	player *sequencePlayer
}

// New creates a Controller for the given output. Out-of-range configuration
// values are coerced to the nearest valid value.
func New(output Output, config Config) *Controller {
	if config.BlinkPeriod == 0 {
		config.BlinkPeriod = DefaultConfig.BlinkPeriod
	}
	if config.OscillatePeriod == 0 {
		config.OscillatePeriod = DefaultConfig.OscillatePeriod
	}
	if config.RefreshInterval == 0 {
		config.RefreshInterval = DefaultConfig.RefreshInterval
	}
	if config.Clock == nil {
		config.Clock = NewSystemClock()
	}

	c := &Controller{
		output:   output,
		clock:    config.Clock,
		pwm:      config.Pwm,
		invert:   config.InvertSignal,
		levelMin: levelAbsMin,
		levelMax: levelAbsMax,
	}
	_ = c.SetRefreshInterval(config.RefreshInterval)
	_ = c.SetBlinkPeriod(config.BlinkPeriod)
	_ = c.SetOscillatePeriod(config.OscillatePeriod)
	c.calcLevelMid()
	c.computeState(ModeOff, 0, 0)
	return c
}

// Init performs the initial output write, establishing the off state.
func (c *Controller) Init() error {
	c.computeState(ModeOff, 0, 0)
	return c.drive(true)
}

// TurnOff turns the output completely off.
func (c *Controller) TurnOff() error {
	return c.request(ModeOff, 0, 0)
}

// TurnOn turns the output fully on.
func (c *Controller) TurnOn() error {
	return c.request(ModeOn, 0, 0)
}

// TurnLow sets the output to the configured minimum level.
func (c *Controller) TurnLow() error {
	return c.request(ModeLow, 0, 0)
}

// TurnHigh sets the output to the configured maximum level.
func (c *Controller) TurnHigh() error {
	return c.request(ModeHigh, 0, 0)
}

// Toggle toggles the output, between off/on or low/high depending on which
// flavor was last active.
func (c *Controller) Toggle() error {
	return c.request(ModeToggle, 0, 0)
}

// ToggleMax toggles the output between completely off and fully on.
func (c *Controller) ToggleMax() error {
	return c.request(ModeToggleMax, 0, 0)
}

// ToggleLevel toggles the output between the minimum and maximum level.
func (c *Controller) ToggleLevel() error {
	return c.request(ModeToggleLevel, 0, 0)
}

// Blink starts blinking, between off/on or low/high depending on context.
// A phaseCount of 0 blinks until a new mode is requested; otherwise blinking
// stops after that many phases. Requires polling of UpdateNow, one call per
// phase is sufficient.
func (c *Controller) Blink(phaseCount uint16) error {
	return c.request(ModeBlink, phaseCount, 0)
}

// BlinkMax blinks between completely off and fully on.
func (c *Controller) BlinkMax(phaseCount uint16) error {
	return c.request(ModeBlinkMax, phaseCount, 0)
}

// BlinkLevel blinks between the minimum and maximum level.
func (c *Controller) BlinkLevel(phaseCount uint16) error {
	return c.request(ModeBlinkLevel, phaseCount, 0)
}

// StepUp raises the level by the auto-computed step.
func (c *Controller) StepUp() error {
	return c.request(ModeStepUp, 0, 0)
}

// StepUpBy raises the level by the given step.
func (c *Controller) StepUpBy(amount uint8) error {
	return c.request(ModeStepUp, 0, uint16(amount)<<levelFracBits)
}

// StepDown lowers the level by the auto-computed step.
func (c *Controller) StepDown() error {
	return c.request(ModeStepDown, 0, 0)
}

// StepDownBy lowers the level by the given step.
func (c *Controller) StepDownBy(amount uint8) error {
	return c.request(ModeStepDown, 0, uint16(amount)<<levelFracBits)
}

// FadeUp starts a fade towards the maximum level. Requires polling of
// UpdateNow, ideally at least once per refresh interval.
func (c *Controller) FadeUp() error {
	return c.request(ModeFadeUp, 0, 0)
}

// FadeDown starts a fade towards the minimum level.
func (c *Controller) FadeDown() error {
	return c.request(ModeFadeDown, 0, 0)
}

// FadeReverse reverses the direction of the last fade.
func (c *Controller) FadeReverse() error {
	return c.request(ModeFadeReverse, 0, 0)
}

// Oscillate repeatedly fades the output up and down. A phaseCount of 0
// oscillates until a new mode is requested; otherwise the oscillation stops
// after that many up or down sweeps.
func (c *Controller) Oscillate(phaseCount uint16) error {
	return c.request(ModeOscillate, phaseCount, 0)
}

// Hold stops the output at its current level.
func (c *Controller) Hold() error {
	return c.request(ModeHoldLevel, 0, 0)
}

// SetMode requests an arbitrary mode. phaseCount limits blink and oscillate
// modes, stepAmount overrides the auto-computed step for step modes; both are
// ignored by the other modes and default when zero.
func (c *Controller) SetMode(mode Mode, phaseCount uint16, stepAmount uint8) error {
	return c.request(mode, phaseCount, uint16(stepAmount)<<levelFracBits)
}

// request is the external mode entry point: it stops a running sequence and
// applies the mode through the resolver.
func (c *Controller) request(mode Mode, phaseCount, stepFixed uint16) error {
	c.StopSequence()
	return c.applyMode(mode, phaseCount, stepFixed, false)
}

// applyMode resolves and executes a mode change. Repeating the previously
// requested mode is a no-op unless the resolved mode is transient or force is
// set (sequence steps are always forced).
func (c *Controller) applyMode(mode Mode, phaseCount, stepFixed uint16, force bool) error {
	resolved := resolveMode(mode, c.modeActive, c.pwm)
	if resolved == c.modeSetting && !force && !isTransient(resolved) {
		return nil
	}
	c.computeState(resolved, phaseCount, stepFixed)
	return c.drive(true)
}

// computeState executes one state transition for the given resolved mode: it
// updates the level, direction and active mode, and reports when the next
// periodic update is due through updateIntervalMs. Periodic modes are advanced
// by re-invoking computeState with the active mode and zero arguments.
func (c *Controller) computeState(mode Mode, phaseCount, stepFixed uint16) {
	if stepFixed == 0 {
		stepFixed = c.levelStep
	}
	c.modeSetting = mode

	switch mode {

	case ModeOff:
		c.dirUp = false
		c.level = levelAbsMin
		c.modeActive = ModeOff
		c.updateIntervalMs = 0

	case ModeOn:
		c.dirUp = true
		c.level = levelAbsMax
		c.modeActive = ModeOn
		c.updateIntervalMs = 0

	case ModeLow:
		c.dirUp = false
		c.level = c.levelMin
		c.modeActive = ModeLow
		c.updateIntervalMs = 0

	case ModeHigh:
		c.dirUp = true
		c.level = c.levelMax
		c.modeActive = ModeHigh
		c.updateIntervalMs = 0

	case ModeToggleMax:
		c.dirUp = c.level <= levelAbsMid
		if c.dirUp {
			c.level = levelAbsMax
			c.modeActive = ModeOn
		} else {
			c.level = levelAbsMin
			c.modeActive = ModeOff
		}
		c.updateIntervalMs = 0

	case ModeToggleLevel:
		c.dirUp = c.level <= c.levelMid
		if c.dirUp {
			c.level = c.levelMax
			c.modeActive = ModeHigh
		} else {
			c.level = c.levelMin
			c.modeActive = ModeLow
		}
		c.updateIntervalMs = 0

	case ModeBlinkMax:
		if c.syncAchieved() {
			c.dirUp = c.level <= levelAbsMid
		}
		if c.dirUp {
			c.level = levelAbsMax
		} else {
			c.level = levelAbsMin
		}
		if phaseCount > 0 {
			c.remainingPhases = phaseCount
		}
		if c.remainingPhases > 0 && c.syncAchieved() {
			c.remainingPhases--
			if c.remainingPhases > 0 {
				c.modeActive = ModeBlinkMax
				c.updateIntervalMs = c.blinkPeriodMs / 2
			} else {
				if c.dirUp {
					c.modeActive = ModeOn
				} else {
					c.modeActive = ModeOff
				}
				c.updateIntervalMs = 0
			}
		} else {
			c.modeActive = ModeBlinkMax
			c.updateIntervalMs = c.blinkPeriodMs / 2
		}

	case ModeBlinkLevel:
		if c.syncAchieved() {
			c.dirUp = c.level <= c.levelMid
		}
		if c.dirUp {
			c.level = c.levelMax
		} else {
			c.level = c.levelMin
		}
		if phaseCount > 0 {
			c.remainingPhases = phaseCount
		}
		if c.remainingPhases > 0 && c.syncAchieved() {
			c.remainingPhases--
			if c.remainingPhases > 0 {
				c.modeActive = ModeBlinkLevel
				c.updateIntervalMs = c.blinkPeriodMs / 2
			} else {
				if c.dirUp {
					c.modeActive = ModeHigh
				} else {
					c.modeActive = ModeLow
				}
				c.updateIntervalMs = 0
			}
		} else {
			c.modeActive = ModeBlinkLevel
			c.updateIntervalMs = c.blinkPeriodMs / 2
		}

	case ModeStepDown:
		c.dirUp = false
		c.decrementLevel(stepFixed)
		if c.level == c.levelMin {
			c.modeActive = ModeLow
		} else {
			c.modeActive = ModeHoldLevel
		}
		c.updateIntervalMs = 0

	case ModeStepUp:
		c.dirUp = true
		c.incrementLevel(stepFixed)
		if c.level == c.levelMax {
			c.modeActive = ModeHigh
		} else {
			c.modeActive = ModeHoldLevel
		}
		c.updateIntervalMs = 0

	case ModeFadeDown, ModeFadeUp, ModeFadeReverse:
		switch mode {
		case ModeFadeDown:
			c.dirUp = false
		case ModeFadeUp:
			c.dirUp = true
		case ModeFadeReverse:
			c.dirUp = !c.dirUp
		}
		if c.dirUp {
			c.incrementLevel(0)
			if c.level == c.levelMax {
				c.modeActive = ModeHigh
				c.updateIntervalMs = 0
			} else {
				c.modeActive = ModeFadeUp
				c.updateIntervalMs = c.refreshIntervalMs
			}
		} else {
			c.decrementLevel(0)
			if c.level == c.levelMin {
				c.modeActive = ModeLow
				c.updateIntervalMs = 0
			} else {
				c.modeActive = ModeFadeDown
				c.updateIntervalMs = c.refreshIntervalMs
			}
		}

	case ModeOscillate:
		if (c.level == c.levelMin || c.level == c.levelMax) && c.syncAchieved() {
			c.dirUp = !c.dirUp
		}
		if c.dirUp {
			c.incrementLevel(0)
		} else {
			c.decrementLevel(0)
		}
		if phaseCount > 0 {
			c.remainingPhases = phaseCount
		}
		if c.remainingPhases > 0 && (c.level == c.levelMin || c.level == c.levelMax) && c.syncAchieved() {
			c.remainingPhases--
			if c.remainingPhases > 0 {
				c.modeActive = ModeOscillate
				c.updateIntervalMs = c.refreshIntervalMs
			} else {
				if c.dirUp {
					c.modeActive = ModeHigh
				} else {
					c.modeActive = ModeLow
				}
				c.updateIntervalMs = 0
			}
		} else {
			c.modeActive = ModeOscillate
			c.updateIntervalMs = c.refreshIntervalMs
		}

	case ModeHoldLevel:
		c.modeActive = ModeHoldLevel
		c.updateIntervalMs = 0
	}
}

// drive converts the internal fixed-point level to its effective 8-bit value
// (applying signal inversion) and writes it to the output. A zero level is
// always written as a binary off.
func (c *Controller) drive(markDriveTime bool) error {
	effective := c.level
	if c.invert {
		effective = levelAbsMax - c.level
	}
	level := uint8(effective >> levelFracBits)

	var err error
	switch {
	case level == 0:
		err = c.output.WriteBinary(false)
	case c.pwm:
		err = c.output.WriteLevel(level)
	default:
		err = c.output.WriteBinary(true)
	}

	if markDriveTime {
		c.lastDriveTime = c.clock.NowMillis()
	}
	return err
}

// SetLevel forces the output to the given level. Zero and 255 resolve to the
// off and on modes regardless of the configured range; the configured minimum
// and maximum resolve to the low and high modes. Any other level requires a
// PWM-capable output and is clamped into the configured range, with the clamp
// reported as an error.
func (c *Controller) SetLevel(level uint8) error {
	fixed := uint16(level) << levelFracBits

	switch fixed {
	case levelAbsMin:
		return c.TurnOff()
	case levelAbsMax:
		return c.TurnOn()
	case c.levelMin:
		return c.TurnLow()
	case c.levelMax:
		return c.TurnHigh()
	}

	if !c.pwm {
		return fmt.Errorf("level %v requires a PWM-capable output", level)
	}

	c.StopSequence()
	var err error
	if fixed < c.levelMin || fixed > c.levelMax {
		clamped := clampLevel(int32(fixed), c.levelMin, c.levelMax)
		err = fmt.Errorf("level %v is outside the range %v..%v, using %v",
			level, c.LevelMin(), c.LevelMax(), clamped>>levelFracBits)
		fixed = clamped
	}
	c.level = fixed
	c.modeSetting = ModeHoldLevel
	c.modeActive = ModeHoldLevel
	c.updateIntervalMs = 0
	if driveErr := c.drive(true); err == nil {
		err = driveErr
	}
	return err
}

// Level returns the current level.
func (c *Controller) Level() uint8 {
	return uint8(c.level >> levelFracBits)
}

// Mode returns the currently executing mode.
func (c *Controller) Mode() Mode {
	return c.modeActive
}

// SetBlinkPeriod changes the blink period. Periods below 2ms are coerced to
// 2ms and reported as an error.
func (c *Controller) SetBlinkPeriod(period time.Duration) error {
	if period >= 2*time.Millisecond {
		c.blinkPeriodMs = uint32(period / time.Millisecond)
		return nil
	}
	c.blinkPeriodMs = 2
	return fmt.Errorf("blink period %v is below the minimum of 2ms, using 2ms", period)
}

// SetOscillatePeriod changes the oscillation period and recomputes the level
// step. Periods below 2ms are coerced to 2ms and reported as an error.
func (c *Controller) SetOscillatePeriod(period time.Duration) error {
	var err error
	ms := uint32(2)
	if period >= 2*time.Millisecond {
		ms = uint32(period / time.Millisecond)
	} else {
		err = fmt.Errorf("oscillate period %v is below the minimum of 2ms, using 2ms", period)
	}
	c.oscillatePeriodMs = ms
	c.calcLevelStep()
	return err
}

// SetRefreshInterval changes the refresh interval and recomputes the level
// step. Intervals below 1ms are coerced to 1ms and reported as an error.
func (c *Controller) SetRefreshInterval(interval time.Duration) error {
	var err error
	ms := uint32(1)
	if interval >= time.Millisecond {
		ms = uint32(interval / time.Millisecond)
	} else {
		err = fmt.Errorf("refresh interval %v is below the minimum of 1ms, using 1ms", interval)
	}
	c.refreshIntervalMs = ms
	c.calcLevelStep()
	return err
}

func (c *Controller) BlinkPeriod() time.Duration {
	return time.Duration(c.blinkPeriodMs) * time.Millisecond
}

func (c *Controller) OscillatePeriod() time.Duration {
	return time.Duration(c.oscillatePeriodMs) * time.Millisecond
}

func (c *Controller) RefreshInterval() time.Duration {
	return time.Duration(c.refreshIntervalMs) * time.Millisecond
}

// SetPwm declares whether the output is PWM-capable. Future mode requests are
// resolved against the new capability; the current state is left untouched.
func (c *Controller) SetPwm(pwm bool) {
	c.pwm = pwm
}

func (c *Controller) IsPwm() bool {
	return c.pwm
}

// SetInvert changes the signal inversion flag and redrives the output.
func (c *Controller) SetInvert(invert bool) error {
	c.invert = invert
	return c.drive(false)
}

func (c *Controller) IsInverted() bool {
	return c.invert
}

// IsOn reports whether the output is not completely off.
func (c *Controller) IsOn() bool {
	return c.level > 0
}

// IsLow reports whether the output sits at the configured minimum level.
func (c *Controller) IsLow() bool {
	return c.level == c.levelMin
}

// IsHigh reports whether the output sits at the configured maximum level.
func (c *Controller) IsHigh() bool {
	return c.level == c.levelMax
}

// IsFalling reports whether the level is periodically changing downwards.
func (c *Controller) IsFalling() bool {
	return c.updateIntervalMs > 0 && !c.dirUp
}

// IsRising reports whether the level is periodically changing upwards.
func (c *Controller) IsRising() bool {
	return c.updateIntervalMs > 0 && c.dirUp
}

// IsSteady reports whether the controller requires no further periodic
// updates.
func (c *Controller) IsSteady() bool {
	return c.updateIntervalMs == 0
}

// UpdateIsDue reports whether a call to UpdateNow would perform a periodic
// state transition. The elapsed time since the last output write is computed
// with wraparound-safe arithmetic; an update is due once the full update
// interval has elapsed.
func (c *Controller) UpdateIsDue() bool {
	if c.updateIntervalMs == 0 {
		return false
	}
	elapsed := c.clock.NowMillis() - c.lastDriveTime
	return elapsed >= c.updateIntervalMs
}

// UpdateNow advances the controller if anything is due: a pending sequence
// step is fed through the mode resolver, and a due periodic mode performs its
// next transition and output write. Calling this more often than necessary is
// harmless. Returns whether any update was performed.
func (c *Controller) UpdateNow() (bool, error) {
	updated := false

	if c.player != nil && c.player.isRunning() && c.player.stepDelayIsDone() {
		mode := c.player.currentStepMode()
		err := c.applyMode(mode, 0, 0, true)
		c.player.advanceOneStep()
		if err != nil {
			return true, err
		}
		updated = true
	}

	if c.UpdateIsDue() {
		c.computeState(c.modeActive, 0, 0)
		if err := c.drive(true); err != nil {
			return true, err
		}
		updated = true
	}

	return updated, nil
}
