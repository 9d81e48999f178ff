package ledctl

// Mode identifies one of the high-level behaviors of a Controller. The generic
// modes ModeToggle and ModeBlink are requests only: before execution they are
// resolved to one of their Max/Level variants depending on the current state.
type Mode int

const (
	ModeOff Mode = iota // Output completely off
	ModeOn              // Output fully on
	ModeLow             // Output at the configured minimum level (PWM)
	ModeHigh            // Output at the configured maximum level (PWM)
	ModeToggle          // Toggle, off/on or low/high depending on context
	ModeToggleMax       // Toggle between full off and full on
	ModeToggleLevel     // Toggle between minimum and maximum level (PWM)
	ModeBlink           // Blink, off/on or low/high depending on context
	ModeBlinkMax        // Blink between full off and full on
	ModeBlinkLevel      // Blink between minimum and maximum level (PWM)
	ModeStepDown        // Decrement the level by one step (PWM)
	ModeStepUp          // Increment the level by one step (PWM)
	ModeFadeDown        // Fade down until the minimum level is reached (PWM)
	ModeFadeUp          // Fade up until the maximum level is reached (PWM)
	ModeFadeReverse     // Reverse the direction of the last fade (PWM)
	ModeOscillate       // Repeatedly fade up, down, up, ... (PWM)
	ModeHoldLevel       // Keep the output at its current level
)

var modeNames = map[Mode]string{
	ModeOff:         "off",
	ModeOn:          "on",
	ModeLow:         "low",
	ModeHigh:        "high",
	ModeToggle:      "toggle",
	ModeToggleMax:   "toggle-max",
	ModeToggleLevel: "toggle-level",
	ModeBlink:       "blink",
	ModeBlinkMax:    "blink-max",
	ModeBlinkLevel:  "blink-level",
	ModeStepDown:    "step-down",
	ModeStepUp:      "step-up",
	ModeFadeDown:    "fade-down",
	ModeFadeUp:      "fade-up",
	ModeFadeReverse: "fade-reverse",
	ModeOscillate:   "oscillate",
	ModeHoldLevel:   "hold-level",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// resolveMode maps a requested mode onto the concrete mode to execute. Without
// PWM support, level-based modes degrade to their nearest binary equivalent.
// The generic toggle and blink modes pick up the flavor (binary or leveled) of
// the currently active mode. All other modes pass through unchanged.
func resolveMode(requested, active Mode, pwm bool) Mode {
	resolved := requested

	if !pwm {
		switch requested {
		case ModeStepUp, ModeFadeUp:
			resolved = ModeOn
		case ModeStepDown, ModeFadeDown:
			resolved = ModeOff
		case ModeFadeReverse:
			resolved = ModeToggleMax
		case ModeOscillate, ModeBlinkLevel:
			resolved = ModeBlinkMax
		case ModeHoldLevel:
			resolved = active
		}
	}

	if requested == ModeToggle {
		switch active {
		case ModeOff, ModeOn, ModeBlinkMax:
			resolved = ModeToggleMax
		default:
			resolved = ModeToggleLevel
		}
	}

	if requested == ModeBlink {
		switch active {
		case ModeBlinkMax, ModeBlinkLevel:
			resolved = active
		case ModeOff, ModeOn:
			resolved = ModeBlinkMax
		default:
			resolved = ModeBlinkLevel
		}
	}

	return resolved
}

// isTransient reports whether a resolved mode must be re-executed even if it
// was also the previously requested mode. Repeating a toggle or step request
// has to act again, while repeating e.g. a fade or blink request is a no-op.
func isTransient(m Mode) bool {
	switch m {
	case ModeToggleMax, ModeToggleLevel, ModeStepUp, ModeStepDown, ModeFadeReverse:
		return true
	}
	return false
}
