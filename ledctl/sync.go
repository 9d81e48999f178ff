package ledctl

// SyncRegister is the shared state through which multiple controllers agree on
// crossing a phase boundary together (blink flips, oscillation turnarounds).
// One register is shared by all participating controllers; each controller
// owns exactly one participant bit and only ever sets or clears its own bit.
// The top bit is the synced flag, raised once every participant has signaled.
type SyncRegister struct {
	word uint16
}

const syncedFlag = uint16(1) << 15

// Reset clears the whole register, starting a fresh handshake epoch.
func (r *SyncRegister) Reset() {
	r.word = 0
}

// ClaimBit claims the lowest free participant bit, sets it and returns it.
// Returns 0 if all participant bits are taken.
func (r *SyncRegister) ClaimBit() uint16 {
	bit := uint16(1)
	for bit != syncedFlag && r.word&bit != 0 {
		bit <<= 1
	}
	bit &^= syncedFlag
	if bit != 0 {
		r.word |= bit
	}
	return bit
}

// ClaimedMask returns all participant bits claimed so far.
func (r *SyncRegister) ClaimedMask() uint16 {
	return r.word &^ syncedFlag
}

// SetBit marks a participant as having reached the phase boundary.
func (r *SyncRegister) SetBit(bit uint16) {
	r.word |= bit
}

// ClearBit retracts a participant's boundary signal.
func (r *SyncRegister) ClearBit(bit uint16) {
	r.word &^= bit
}

// AllSet reports whether every bit of the mask is signaled.
func (r *SyncRegister) AllSet(mask uint16) bool {
	return r.word&mask == mask
}

// NoneSet reports whether no bit of the mask is signaled.
func (r *SyncRegister) NoneSet(mask uint16) bool {
	return r.word&mask == 0
}

// SetSynced raises the synced flag, releasing all waiting participants.
func (r *SyncRegister) SetSynced() {
	r.word |= syncedFlag
}

// Synced reports whether the synced flag is raised.
func (r *SyncRegister) Synced() bool {
	return r.word&syncedFlag != 0
}

// AttachSync joins this controller to a shared sync register and returns the
// claimed participant bit. The first controller to attach passes first=true,
// which clears the register. After all participants have attached, each must
// call InitSyncHandshake once. Attaching with a nil register detaches the
// controller, after which boundary transitions proceed unsynchronized.
func (c *Controller) AttachSync(register *SyncRegister, first bool) uint16 {
	if register == nil {
		c.syncReg = nil
		c.syncBit = 0
		c.syncMask = 0
		return 0
	}

	c.syncReg = register
	if first {
		register.Reset()
	}
	c.syncBit = register.ClaimBit()
	return c.syncBit
}

// InitSyncHandshake freezes the set of participants this controller waits
// for and releases the first handshake round. Must be called once per
// attached controller, after all participants have attached. On a controller
// without an attached register this does nothing.
func (c *Controller) InitSyncHandshake() {
	if c.syncReg == nil {
		return
	}
	c.syncMask = c.syncReg.ClaimedMask()
	c.syncReg.SetSynced()
}

// syncAchieved signals that this controller has reached a phase boundary and
// reports whether all participants have. Once the last participant signals,
// the synced flag releases everyone; each released controller retracts its
// own signal and the last one to do so resets the register for the next
// epoch. Controllers without an attached register are always released.
func (c *Controller) syncAchieved() bool {
	if c.syncBit == 0 {
		return true
	}

	r := c.syncReg
	r.SetBit(c.syncBit)
	if r.AllSet(c.syncMask) {
		r.SetSynced()
	}

	if !r.Synced() {
		return false
	}
	r.ClearBit(c.syncBit)
	if r.NoneSet(c.syncMask) {
		r.Reset()
	}
	return true
}
