package ledctl

import (
	"errors"
	"time"
)

// SequenceStep is one entry of a Sequence: a mode to request after waiting
// for Delay.
type SequenceStep struct {
	Delay time.Duration
	Mode  Mode
}

// Sequence is an ordered list of timed mode changes. A sequence is built up
// front with AddStep, installed into a controller and played from there. It
// may be reused by multiple controllers sequentially, but not concurrently;
// while attached to a controller it cannot be modified.
type Sequence struct {
	steps       []SequenceStep
	repeatCount uint8
	attachCount int
}

// NewSequence returns an empty sequence playing one full pass by default.
func NewSequence() *Sequence {
	return &Sequence{repeatCount: 1}
}

// AddStep appends a step to the sequence. Fails while the sequence is
// attached to a controller.
func (s *Sequence) AddStep(delay time.Duration, mode Mode) error {
	if s.attachCount > 0 {
		return errors.New("sequence is attached to a controller and cannot be modified")
	}
	s.steps = append(s.steps, SequenceStep{Delay: delay, Mode: mode})
	return nil
}

// DiscardAll drops all steps. Fails while the sequence is attached to a
// controller, unless force is set.
func (s *Sequence) DiscardAll(force bool) error {
	if s.attachCount > 0 && !force {
		return errors.New("sequence is attached to a controller, not discarding")
	}
	s.steps = nil
	return nil
}

// SetRepeatCount sets how many full passes one play of the sequence covers.
// Zero means the sequence repeats indefinitely.
func (s *Sequence) SetRepeatCount(repeatCount uint8) {
	s.repeatCount = repeatCount
}

func (s *Sequence) RepeatCount() uint8 {
	return s.repeatCount
}

// NumSteps returns the number of steps in the sequence.
func (s *Sequence) NumSteps() int {
	return len(s.steps)
}

// AttachCount returns the number of controllers the sequence is attached to.
func (s *Sequence) AttachCount() int {
	return s.attachCount
}

func (s *Sequence) attach() {
	s.attachCount++
}

func (s *Sequence) detach() {
	if s.attachCount > 0 {
		s.attachCount--
	}
}

// elapseTimer tracks a single armed delay against the controller's clock,
// with the same wraparound-safe arithmetic as the due-time check.
type elapseTimer struct {
	clock   Clock
	started uint32
	delayMs uint32
	running bool
}

func (t *elapseTimer) start(delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	t.started = t.clock.NowMillis()
	t.delayMs = uint32(delay / time.Millisecond)
	t.running = true
}

func (t *elapseTimer) stop() {
	t.running = false
}

func (t *elapseTimer) isDone() bool {
	return t.running && t.clock.NowMillis()-t.started >= t.delayMs
}

// sequencePlayer advances a controller through an attached sequence: a cursor
// into the step list, the armed delay of the current step, and the remaining
// iteration budget. The effective number of passes is the player repeat count
// multiplied by the sequence repeat count, zero meaning indefinitely.
type sequencePlayer struct {
	seq         *Sequence
	stepIndex   int
	repeatCount uint8
	iteration   uint32
	timer       elapseTimer
	running     bool
}

func newSequencePlayer(clock Clock) *sequencePlayer {
	return &sequencePlayer{
		repeatCount: 1,
		timer:       elapseTimer{clock: clock},
	}
}

func (p *sequencePlayer) attachSequence(seq *Sequence) {
	p.detachSequence()
	p.seq = seq
	seq.attach()
}

func (p *sequencePlayer) detachSequence() {
	p.stop()
	if p.seq != nil {
		p.seq.detach()
		p.seq = nil
	}
}

// startFirstStep rewinds the cursor and arms the first step's delay.
func (p *sequencePlayer) startFirstStep() error {
	if p.seq == nil || len(p.seq.steps) == 0 {
		return errors.New("sequence is empty")
	}
	p.stepIndex = 0
	p.iteration = 1
	p.timer.start(p.seq.steps[0].Delay)
	p.running = true
	return nil
}

// advanceOneStep moves the cursor past the current step. At the end of the
// step list it wraps to the head while the iteration budget allows, otherwise
// it stops the player. Returns whether another step was armed.
func (p *sequencePlayer) advanceOneStep() bool {
	if !p.running {
		return false
	}
	if p.stepIndex+1 < len(p.seq.steps) {
		p.stepIndex++
		p.timer.start(p.seq.steps[p.stepIndex].Delay)
		return true
	}

	effective := uint32(p.repeatCount) * uint32(p.seq.repeatCount)
	if effective == 0 || p.iteration < effective {
		p.iteration++
		p.stepIndex = 0
		p.timer.start(p.seq.steps[0].Delay)
		return true
	}

	p.stop()
	return false
}

func (p *sequencePlayer) stop() {
	p.running = false
	p.timer.stop()
}

func (p *sequencePlayer) isRunning() bool {
	return p.running
}

func (p *sequencePlayer) stepDelayIsDone() bool {
	return p.running && p.timer.isDone()
}

func (p *sequencePlayer) currentStepMode() Mode {
	return p.seq.steps[p.stepIndex].Mode
}

// InstallSequence attaches a sequence to this controller, replacing any
// previously installed one. The sequence does not start playing until
// StartSequence is called.
func (c *Controller) InstallSequence(seq *Sequence) {
	c.RemoveSequence()
	c.player = newSequencePlayer(c.clock)
	c.player.attachSequence(seq)
}

// RemoveSequence stops and detaches the installed sequence.
func (c *Controller) RemoveSequence() {
	if c.player == nil {
		return
	}
	c.player.detachSequence()
	c.player = nil
}

// StartSequence starts playing the installed sequence from its first step.
// The step modes are applied from UpdateNow as their delays elapse.
func (c *Controller) StartSequence() error {
	if c.player == nil {
		return errors.New("no sequence installed")
	}
	return c.player.startFirstStep()
}

// StopSequence stops sequence playback. The output stays in whatever state
// the last applied step left it.
func (c *Controller) StopSequence() {
	if c.player != nil {
		c.player.stop()
	}
}

// IsPlayingSequence reports whether a sequence is currently playing.
func (c *Controller) IsPlayingSequence() bool {
	return c.player != nil && c.player.isRunning()
}

// SetSequenceRepeatCount sets the player-side repeat count. It multiplies
// with the sequence's own repeat count; zero plays indefinitely.
func (c *Controller) SetSequenceRepeatCount(repeatCount uint8) {
	if c.player != nil {
		c.player.repeatCount = repeatCount
	}
}

func (c *Controller) SequenceRepeatCount() uint8 {
	if c.player == nil {
		return 0
	}
	return c.player.repeatCount
}
