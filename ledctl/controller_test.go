package ledctl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	ms uint32
}

func (c *testClock) NowMillis() uint32 {
	return c.ms
}

func (c *testClock) advance(ms uint32) {
	c.ms += ms
}

func newTestController(t *testing.T, config Config) (*Controller, *DummyOutput, *testClock) {
	clock := new(testClock)
	if config.Clock == nil {
		config.Clock = clock
	}
	out := new(DummyOutput)
	c := New(out, config)
	require.NoError(t, c.Init())
	return c, out, clock
}

func update(t *testing.T, c *Controller) bool {
	updated, err := c.UpdateNow()
	require.NoError(t, err)
	return updated
}

func TestInitDrivesOff(t *testing.T) {
	a := assert.New(t)
	c, out, _ := newTestController(t, Config{})

	a.Equal(ModeOff, c.Mode())
	a.False(out.On)
	a.Equal(1, out.BinaryWrites)
	a.True(c.IsSteady())
	a.False(c.IsOn())
}

func TestConfigDefaults(t *testing.T) {
	a := assert.New(t)
	c, _, _ := newTestController(t, Config{})

	a.Equal(time.Second, c.BlinkPeriod())
	a.Equal(time.Second, c.OscillatePeriod())
	a.Equal(20*time.Millisecond, c.RefreshInterval())
}

func TestBlinkFinitePhases(t *testing.T) {
	a := assert.New(t)
	c, out, clock := newTestController(t, Config{BlinkPeriod: 100 * time.Millisecond})

	a.NoError(c.Blink(4))
	a.Equal(ModeBlinkMax, c.Mode())
	a.True(out.On, "first blink phase should turn the output on")
	a.False(c.IsSteady())

	states := []bool{}
	for i := 0; i < 3; i++ {
		clock.advance(50)
		a.True(update(t, c))
		states = append(states, out.On)
	}
	a.Equal([]bool{false, true, false}, states)

	// Four phases are exhausted: settled into off, no more updates due
	a.Equal(ModeOff, c.Mode())
	a.True(c.IsSteady())
	clock.advance(50)
	a.False(c.UpdateIsDue())
	a.False(update(t, c))
}

func TestBlinkForever(t *testing.T) {
	a := assert.New(t)
	c, out, clock := newTestController(t, Config{BlinkPeriod: 100 * time.Millisecond})

	a.NoError(c.BlinkMax(0))
	for i := 0; i < 20; i++ {
		clock.advance(50)
		a.True(update(t, c))
	}
	a.Equal(ModeBlinkMax, c.Mode())
	a.False(c.IsSteady())
	a.True(out.On, "even number of flips after the initial on phase")
}

func TestBlinkLevel(t *testing.T) {
	a := assert.New(t)
	c, _, clock := newTestController(t, Config{Pwm: true, BlinkPeriod: 100 * time.Millisecond})
	require.NoError(t, c.SetLevelRange(10, 20))

	a.NoError(c.BlinkLevel(3))
	a.Equal(uint8(20), c.Level())

	clock.advance(50)
	a.True(update(t, c))
	a.Equal(uint8(10), c.Level())

	clock.advance(50)
	a.True(update(t, c))
	a.Equal(uint8(20), c.Level())
	a.Equal(ModeHigh, c.Mode())
	a.True(c.IsSteady())
}

func TestUpdateDueBoundary(t *testing.T) {
	a := assert.New(t)
	c, _, clock := newTestController(t, Config{BlinkPeriod: 100 * time.Millisecond})

	a.NoError(c.BlinkMax(0))
	a.False(c.UpdateIsDue())

	clock.advance(49)
	a.False(c.UpdateIsDue(), "one ms before the interval nothing is due")
	clock.advance(1)
	a.True(c.UpdateIsDue(), "due exactly when the interval has elapsed")
}

func TestUpdateDueAcrossClockWraparound(t *testing.T) {
	a := assert.New(t)
	c, _, clock := newTestController(t, Config{BlinkPeriod: 100 * time.Millisecond})

	clock.ms = 0xFFFFFFF6 // 10ms before the counter wraps
	a.NoError(c.BlinkMax(0))

	clock.advance(49)
	a.False(c.UpdateIsDue())
	clock.advance(1)
	a.True(c.UpdateIsDue())
	a.True(update(t, c))
}

func TestOscillateForever(t *testing.T) {
	a := assert.New(t)
	c, _, clock := newTestController(t, Config{
		Pwm:             true,
		OscillatePeriod: 100 * time.Millisecond,
		RefreshInterval: 25 * time.Millisecond,
	})

	a.NoError(c.Oscillate(0))
	for i := 0; i < 50; i++ {
		clock.advance(25)
		a.True(update(t, c))
		a.Equal(ModeOscillate, c.Mode())
		a.False(c.IsSteady())
	}
}

func TestOscillateFinitePhases(t *testing.T) {
	a := assert.New(t)
	c, _, clock := newTestController(t, Config{
		Pwm:             true,
		OscillatePeriod: 100 * time.Millisecond,
		RefreshInterval: 25 * time.Millisecond,
	})

	// Two refresh steps per phase, so the level moves in half-span deltas
	a.NoError(c.Oscillate(2))
	a.Equal(uint8(127), c.Level())
	a.True(c.IsRising())

	clock.advance(25)
	a.True(update(t, c))
	a.Equal(uint8(255), c.Level()) // first boundary reached

	clock.advance(25)
	a.True(update(t, c))
	a.Equal(uint8(127), c.Level())
	a.True(c.IsFalling())

	clock.advance(25)
	a.True(update(t, c))
	a.Equal(uint8(0), c.Level()) // second boundary: settled
	a.Equal(ModeLow, c.Mode())
	a.True(c.IsSteady())
}

func TestFadeUpDownReverse(t *testing.T) {
	a := assert.New(t)
	c, _, clock := newTestController(t, Config{
		Pwm:             true,
		OscillatePeriod: 100 * time.Millisecond,
		RefreshInterval: 25 * time.Millisecond,
	})

	a.NoError(c.FadeUp())
	a.Equal(ModeFadeUp, c.Mode())
	a.True(c.IsRising())
	a.Equal(uint8(127), c.Level())

	clock.advance(25)
	a.True(update(t, c))
	a.Equal(ModeHigh, c.Mode())
	a.Equal(uint8(255), c.Level())
	a.True(c.IsSteady())

	a.NoError(c.FadeDown())
	a.Equal(ModeFadeDown, c.Mode())
	a.True(c.IsFalling())

	a.NoError(c.FadeReverse())
	a.Equal(ModeHigh, c.Mode(), "reversing one step below the maximum lands on high")
	a.Equal(uint8(255), c.Level())
}

func TestToggleRepeats(t *testing.T) {
	a := assert.New(t)
	c, out, _ := newTestController(t, Config{})

	a.NoError(c.TurnOn())
	a.NoError(c.Toggle())
	a.False(out.On)
	a.NoError(c.Toggle())
	a.True(out.On)
	a.NoError(c.Toggle())
	a.False(out.On)
}

func TestToggleMidpoints(t *testing.T) {
	a := assert.New(t)
	c, _, _ := newTestController(t, Config{Pwm: true})
	require.NoError(t, c.SetLevelRange(200, 250))

	// 220 is above the absolute midpoint, so a max toggle goes off...
	require.NoError(t, c.SetLevel(220))
	a.NoError(c.ToggleMax())
	a.Equal(ModeOff, c.Mode())
	a.Equal(uint8(0), c.Level())

	// ...but below the range midpoint of 225, so a level toggle goes high
	require.NoError(t, c.SetLevel(220))
	a.NoError(c.ToggleLevel())
	a.Equal(ModeHigh, c.Mode())
	a.Equal(uint8(250), c.Level())
}

func TestSetLevelEndpoints(t *testing.T) {
	a := assert.New(t)
	c, _, _ := newTestController(t, Config{Pwm: true})
	require.NoError(t, c.SetLevelRange(10, 20))

	a.NoError(c.SetLevel(0))
	a.Equal(ModeOff, c.Mode())
	a.NoError(c.SetLevel(255))
	a.Equal(ModeOn, c.Mode())
	a.NoError(c.SetLevel(10))
	a.Equal(ModeLow, c.Mode())
	a.NoError(c.SetLevel(20))
	a.Equal(ModeHigh, c.Mode())

	a.NoError(c.SetLevel(15))
	a.Equal(ModeHoldLevel, c.Mode())
	a.Equal(uint8(15), c.Level())
	a.True(c.IsSteady())
}

func TestSetLevelClamped(t *testing.T) {
	a := assert.New(t)
	c, _, _ := newTestController(t, Config{Pwm: true})
	require.NoError(t, c.SetLevelRange(10, 20))

	// The clamped value is applied, the clamp is reported
	a.Error(c.SetLevel(25))
	a.Equal(uint8(20), c.Level())
	a.Equal(ModeHoldLevel, c.Mode())

	a.Error(c.SetLevel(5))
	a.Equal(uint8(10), c.Level())
}

func TestSetLevelRequiresPwm(t *testing.T) {
	a := assert.New(t)
	c, out, _ := newTestController(t, Config{})

	a.Error(c.SetLevel(100))
	a.Equal(ModeOff, c.Mode())
	a.False(out.On)
}

func TestNonPwmDowngrades(t *testing.T) {
	a := assert.New(t)
	c, out, _ := newTestController(t, Config{})

	a.NoError(c.FadeUp())
	a.Equal(ModeOn, c.Mode())
	a.True(c.IsSteady())
	a.True(out.On)
	a.Zero(out.LevelWrites)

	a.NoError(c.StepDown())
	a.Equal(ModeOff, c.Mode())

	a.NoError(c.Oscillate(0))
	a.Equal(ModeBlinkMax, c.Mode())
	a.False(c.IsSteady())
}

func TestStepUpDown(t *testing.T) {
	a := assert.New(t)
	c, _, _ := newTestController(t, Config{Pwm: true})

	a.NoError(c.StepUpBy(10))
	a.Equal(uint8(10), c.Level())
	a.Equal(ModeHoldLevel, c.Mode())
	a.True(c.IsSteady())

	a.NoError(c.StepUpBy(10))
	a.Equal(uint8(20), c.Level())

	a.NoError(c.StepDownBy(5))
	a.Equal(uint8(15), c.Level())

	// Stepping against a boundary settles on the boundary mode
	a.NoError(c.StepUpBy(240))
	a.Equal(ModeHigh, c.Mode())
	a.Equal(uint8(255), c.Level())
}

func TestInvertedSignal(t *testing.T) {
	a := assert.New(t)
	c, out, _ := newTestController(t, Config{InvertSignal: true})

	// The logical state is on, the physical pin is driven low
	a.NoError(c.TurnOn())
	a.True(c.IsOn())
	a.False(out.On)

	a.NoError(c.TurnOff())
	a.False(c.IsOn())
	a.True(out.On)

	// Flipping the inversion redrives the output without a mode change
	a.NoError(c.SetInvert(false))
	a.False(out.On)
	a.Equal(ModeOff, c.Mode())
}

func TestPeriodCoercion(t *testing.T) {
	a := assert.New(t)
	c, _, _ := newTestController(t, Config{})

	a.Error(c.SetBlinkPeriod(time.Millisecond))
	a.Equal(2*time.Millisecond, c.BlinkPeriod())

	a.Error(c.SetOscillatePeriod(0))
	a.Equal(2*time.Millisecond, c.OscillatePeriod())

	a.Error(c.SetRefreshInterval(0))
	a.Equal(time.Millisecond, c.RefreshInterval())

	a.NoError(c.SetBlinkPeriod(500 * time.Millisecond))
	a.NoError(c.SetOscillatePeriod(2 * time.Second))
	a.NoError(c.SetRefreshInterval(10 * time.Millisecond))
}

func TestRepeatedModeRequestIsNoOp(t *testing.T) {
	a := assert.New(t)
	c, out, _ := newTestController(t, Config{})

	a.NoError(c.TurnOn())
	writes := out.BinaryWrites
	a.NoError(c.TurnOn())
	a.Equal(writes, out.BinaryWrites, "repeating the same request should not redrive")
}

func TestHoldKeepsLevel(t *testing.T) {
	a := assert.New(t)
	c, _, clock := newTestController(t, Config{
		Pwm:             true,
		OscillatePeriod: 200 * time.Millisecond,
		RefreshInterval: 25 * time.Millisecond,
	})

	a.NoError(c.FadeUp())
	clock.advance(25)
	a.True(update(t, c))
	level := c.Level()
	a.Equal(ModeFadeUp, c.Mode())

	a.NoError(c.Hold())
	a.Equal(ModeHoldLevel, c.Mode())
	a.Equal(level, c.Level())
	a.True(c.IsSteady())
}
