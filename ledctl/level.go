package ledctl

import "fmt"

// Levels are stored as unsigned fixed-point values with 8 fraction bits, so
// the representable brightness range 0..255 maps to 0..255<<8 internally.
const (
	levelFracBits = 8

	levelFixedOne = uint16(1) << levelFracBits

	levelAbsMin = uint16(0)
	levelAbsMax = uint16(255) << levelFracBits
	levelAbsMid = uint16(255) << (levelFracBits - 1)
)

// percentFracBits is the precision used when remapping the current level into
// a changed level range while preserving its relative position.
const percentFracBits = 15

func clampLevel(level int32, min, max uint16) uint16 {
	if level < int32(min) {
		return min
	}
	if level > int32(max) {
		return max
	}
	return uint16(level)
}

// incrementLevel raises the level by delta (0 selects the computed default
// step), clamped to the configured maximum.
func (c *Controller) incrementLevel(delta uint16) {
	if delta == 0 {
		delta = c.levelStep
	}
	c.level = clampLevel(int32(c.level)+int32(delta), c.levelMin, c.levelMax)
}

// decrementLevel lowers the level by delta (0 selects the computed default
// step), clamped to the configured minimum.
func (c *Controller) decrementLevel(delta uint16) {
	if delta == 0 {
		delta = c.levelStep
	}
	c.level = clampLevel(int32(c.level)-int32(delta), c.levelMin, c.levelMax)
}

func (c *Controller) calcLevelMid() {
	c.levelMid = c.levelMin + (c.levelMax-c.levelMin)/2
}

// calcLevelStep derives the default level step from the range span, the
// oscillate period and the refresh interval: one full min-to-max sweep takes
// one oscillate phase (half a period) at the configured refresh rate. The
// step never goes below one fixed-point tick. Returns false if the inputs had
// to be coerced to reach a usable step.
func (c *Controller) calcLevelStep() bool {
	span := uint32(c.levelMax - c.levelMin)
	phase := c.oscillatePeriodMs / 2

	steps := phase / c.refreshIntervalMs
	if phase%c.refreshIntervalMs > 0 {
		steps++
	}
	clean := steps > 0
	if !clean {
		steps = 1
	}

	step := span / steps
	clean = clean && step > 0
	if step == 0 {
		step = 1
	}
	c.levelStep = uint16(step)

	return clean
}

// levelPercent returns the relative position of the current level within the
// configured range, as a fixed-point fraction with 15 fraction bits.
func (c *Controller) levelPercent() uint32 {
	span := uint32(c.levelMax - c.levelMin)
	offset := uint32(c.level - c.levelMin)
	return (offset << percentFracBits) / span
}

// applyLevelPercent remaps the current level into the (changed) range so that
// its relative position is preserved.
func (c *Controller) applyLevelPercent(percent uint32) {
	span := uint32(c.levelMax - c.levelMin)
	c.level = c.levelMin + uint16((span*percent)>>percentFracBits)
}

// SetLevelMin changes the lower level bound. A level currently held inside
// the range keeps its relative position within the new range. A minimum at or
// above the current maximum is coerced to one tick below it; the coerced value
// is applied and reported as an error.
func (c *Controller) SetLevelMin(levelMin uint8) error {
	requested := uint16(levelMin) << levelFracBits
	if requested == c.levelMin {
		return nil
	}

	remap := c.level >= c.levelMin && c.level <= c.levelMax
	var percent uint32
	if remap {
		percent = c.levelPercent()
	}

	var err error
	if requested < c.levelMax {
		c.levelMin = requested
	} else {
		c.levelMin = c.levelMax - levelFixedOne
		err = fmt.Errorf("level minimum %v is not below maximum %v, using %v",
			levelMin, c.levelMax>>levelFracBits, c.levelMin>>levelFracBits)
	}
	c.calcLevelMid()

	if remap {
		c.applyLevelPercent(percent)
		if driveErr := c.drive(false); err == nil {
			err = driveErr
		}
	}
	c.calcLevelStep()
	return err
}

// SetLevelMax changes the upper level bound, with the same remapping and
// coercion behavior as SetLevelMin.
func (c *Controller) SetLevelMax(levelMax uint8) error {
	requested := uint16(levelMax) << levelFracBits
	if requested == c.levelMax {
		return nil
	}

	remap := c.level >= c.levelMin && c.level <= c.levelMax
	var percent uint32
	if remap {
		percent = c.levelPercent()
	}

	var err error
	if requested > c.levelMin {
		c.levelMax = requested
	} else {
		c.levelMax = c.levelMin + levelFixedOne
		err = fmt.Errorf("level maximum %v is not above minimum %v, using %v",
			levelMax, c.levelMin>>levelFracBits, c.levelMax>>levelFracBits)
	}
	c.calcLevelMid()

	if remap {
		c.applyLevelPercent(percent)
		if driveErr := c.drive(false); err == nil {
			err = driveErr
		}
	}
	c.calcLevelStep()
	return err
}

// SetLevelRange changes both level bounds at once. A reversed range is
// swapped, a degenerate range is widened to a one-tick span; either correction
// is applied and reported as an error. A level currently held inside the old
// range keeps its relative position within the new range.
func (c *Controller) SetLevelRange(levelMin, levelMax uint8) error {
	remap := c.level >= c.levelMin && c.level <= c.levelMax
	var percent uint32
	if remap {
		percent = c.levelPercent()
	}

	minVal, maxVal := levelMin, levelMax
	var err error
	if levelMin >= levelMax {
		switch {
		case levelMin > levelMax:
			minVal, maxVal = levelMax, levelMin
		case levelMax == 0:
			minVal, maxVal = 0, 1
		default:
			minVal, maxVal = levelMax-1, levelMax
		}
		err = fmt.Errorf("invalid level range %v..%v, using %v..%v",
			levelMin, levelMax, minVal, maxVal)
	}

	c.levelMin = uint16(minVal) << levelFracBits
	c.levelMax = uint16(maxVal) << levelFracBits
	c.calcLevelMid()

	if remap {
		c.applyLevelPercent(percent)
		if driveErr := c.drive(false); err == nil {
			err = driveErr
		}
	}
	c.calcLevelStep()
	return err
}

// LevelMin returns the configured minimum level.
func (c *Controller) LevelMin() uint8 {
	return uint8(c.levelMin >> levelFracBits)
}

// LevelMax returns the configured maximum level.
func (c *Controller) LevelMax() uint8 {
	return uint8(c.levelMax >> levelFracBits)
}

// LevelStep returns the integer part of the auto-computed level step.
func (c *Controller) LevelStep() uint8 {
	return uint8(c.levelStep >> levelFracBits)
}
