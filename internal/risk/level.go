package risk

import "sort"

// Flag is a single risk category detected in text.
type Flag string

// The built-in risk categories. The classifier itself is driven entirely by
// the keyword registry; these constants exist for the severity and policy
// rules that attach meaning to specific categories.
const (
	FlagSecuritySensitive  Flag = "security_sensitive"
	FlagPrivacySensitive   Flag = "privacy_sensitive"
	FlagFinancialSensitive Flag = "financial_sensitive"
	FlagDestructiveActions Flag = "destructive_actions"
)

// FlagSet is a set of risk flags. Order is irrelevant; duplicates cannot occur.
type FlagSet map[Flag]struct{}

// Has reports whether the set contains the given flag.
func (s FlagSet) Has(f Flag) bool {
	_, ok := s[f]
	return ok
}

// Sorted returns the flags in lexical order, for stable serialization.
func (s FlagSet) Sorted() []Flag {
	out := make([]Flag, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted flags as plain strings.
func (s FlagSet) Strings() []string {
	flags := s.Sorted()
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}

// NewFlagSet builds a FlagSet from the given flags.
func NewFlagSet(flags ...Flag) FlagSet {
	s := make(FlagSet, len(flags))
	for _, f := range flags {
		s[f] = struct{}{}
	}
	return s
}

// Level is an ordered risk severity classification.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Rank returns the ordinal position of the level (low < medium < high).
// Unknown levels rank below low so corrupt data never outranks a real level.
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	default:
		return -1
	}
}

// Severity maps a flag set to its overall risk level. The rules are an
// ordered decision list, first match wins:
//
//  1. destructive_actions or security_sensitive present  -> high
//  2. privacy_sensitive or financial_sensitive present   -> medium
//  3. otherwise                                          -> low
//
// Any single qualifying flag is enough for its tier, which keeps the
// mapping monotonic: adding a flag to a set never lowers the result.
func Severity(flags FlagSet) Level {
	if flags.Has(FlagDestructiveActions) || flags.Has(FlagSecuritySensitive) {
		return LevelHigh
	}
	if flags.Has(FlagPrivacySensitive) || flags.Has(FlagFinancialSensitive) {
		return LevelMedium
	}
	return LevelLow
}
