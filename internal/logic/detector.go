package logic

// ButtonMask selects the expander bits mapped to buttons (P0..P9).
// Bits 10..15 are never inspected.
const ButtonMask uint16 = 1<<MaxButtons - 1

// PackSample reconstructs a 16-bit expander sample from the two register
// bytes: lo carries P0..P7, hi carries P8..P15.
func PackSample(lo, hi byte) uint16 {
	return uint16(lo) | uint16(hi)<<8
}

// FallingEdges returns the buttons whose input went from high to low between
// baseline and sample. Inputs are active-low, so a falling edge is a press.
// Releases (low to high) are not reported.
func FallingEdges(baseline, sample uint16) []ButtonIndex {
	fell := baseline &^ sample & ButtonMask
	if fell == 0 {
		return nil
	}

	var pressed []ButtonIndex
	for i := 0; i < MaxButtons; i++ {
		if fell&(1<<i) != 0 {
			pressed = append(pressed, ButtonIndex(i+1))
		}
	}
	return pressed
}

// Detector tracks the baseline expander sample and detects presses.
type Detector struct {
	baseline  uint16
	baselined bool
}

// NewDetector creates a detector with no baseline.
func NewDetector() *Detector {
	return &Detector{}
}

// Reset establishes sample as the baseline without reporting any edges.
// Called with a fresh read on every (re)start so boot state never fires.
func (d *Detector) Reset(sample uint16) {
	d.baseline = sample
	d.baselined = true
}

// Process compares sample to the baseline and returns the pressed buttons.
// The baseline is always replaced by sample, whether or not anything fired.
// The first sample seen without a baseline only establishes it.
func (d *Detector) Process(sample uint16) []ButtonIndex {
	if !d.baselined {
		d.Reset(sample)
		return nil
	}

	pressed := FallingEdges(d.baseline, sample)
	d.baseline = sample
	return pressed
}

// Baseline returns the current baseline and whether one is established.
func (d *Detector) Baseline() (uint16, bool) {
	return d.baseline, d.baselined
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}
