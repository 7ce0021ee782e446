package jumptable

// SentinelBXLR is an ARM epilogue encoding that shows up inside jump
// tables as data. It looks like an in-range pointer but is an
// instruction, so probing classifies it before any range or parity
// logic runs.
const SentinelBXLR uint32 = 0xE12FFF1C

// Mode is the execution mode of a probe candidate.
type Mode int

const (
	ModeNone Mode = iota
	ModeARM
	ModeThumb
)

func (m Mode) String() string {
	switch m {
	case ModeARM:
		return "ARM"
	case ModeThumb:
		return "Thumb"
	default:
		return "none"
	}
}

// Candidate is an unverified jump-target hypothesis. Thumb candidates
// have the low bit already cleared.
type Candidate struct {
	Mode   Mode
	Target uint64
}

// ProbeResult is either a candidate for verification or a terminal
// classification of the raw word.
type ProbeResult struct {
	OK        bool
	Candidate Candidate
	Fail      OutcomeKind // ArmInstruction or OutOfRange when !OK
}

// Probe classifies a raw slot word against the code range. The
// sentinel check runs first and wins regardless of range membership.
// An even in-range value probes as ARM; an odd value strictly below
// max whose cleared form is in range probes as Thumb per the
// platform's Thumb-bit convention. The max bound itself is always out
// of range, odd or even. Anything else is out of range.
func Probe(raw uint32, rng CodeRange) ProbeResult {
	if raw == SentinelBXLR {
		return ProbeResult{Fail: KindArmInstruction}
	}

	v := uint64(raw)
	switch {
	case rng.Contains(v) && v&1 == 0:
		return ProbeResult{OK: true, Candidate: Candidate{Mode: ModeARM, Target: v}}
	case v&1 == 1 && v != rng.Max && rng.Contains(v-1):
		return ProbeResult{OK: true, Candidate: Candidate{Mode: ModeThumb, Target: v &^ 1}}
	default:
		return ProbeResult{Fail: KindOutOfRange}
	}
}
