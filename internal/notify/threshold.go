// Package notify implements the one-shot balance warnings shown to a mentee
// as their chat credits run down.
package notify

// MaxTokensPerMentee is the reference grant used for percentage thresholds,
// in raw token-equivalents.
const MaxTokensPerMentee = 15000

// Level identifies which warning threshold a balance has crossed.
type Level string

const (
	LevelNone      Level = ""
	Level50        Level = "balance_50"
	Level20        Level = "balance_20"
	LevelExhausted Level = "balance_0"
)

// ThresholdNotifier raises each warning at most once per session lifetime.
// The guards live in memory only; a page reload starts a fresh notifier.
type ThresholdNotifier struct {
	max        int
	shown50    bool
	shown20    bool
	shownEmpty bool
}

// NewThresholdNotifier creates a notifier against the default grant size.
func NewThresholdNotifier() *ThresholdNotifier {
	return &ThresholdNotifier{max: MaxTokensPerMentee}
}

// NewThresholdNotifierWithMax creates a notifier against a custom maximum.
func NewThresholdNotifierWithMax(max int) *ThresholdNotifier {
	if max <= 0 {
		max = MaxTokensPerMentee
	}
	return &ThresholdNotifier{max: max}
}

// Observe evaluates a balance and returns the warning to raise, if any.
// Exhaustion takes precedence over the percentage warnings and each level
// fires at most once.
func (n *ThresholdNotifier) Observe(balance int) (Level, bool) {
	if balance <= 0 {
		if n.shownEmpty {
			return LevelNone, false
		}
		n.shownEmpty = true
		return LevelExhausted, true
	}

	fifty := n.max / 2
	twenty := n.max / 5

	if balance <= twenty {
		if n.shown20 {
			return LevelNone, false
		}
		n.shown20 = true
		return Level20, true
	}

	if balance <= fifty {
		if n.shown50 {
			return LevelNone, false
		}
		n.shown50 = true
		return Level50, true
	}

	return LevelNone, false
}
