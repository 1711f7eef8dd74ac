package core

import "fmt"

// StrategyKind selects which save strategy a chronote uses.
type StrategyKind string

const (
	KindInstant                   StrategyKind = "instant"
	KindSync                      StrategyKind = "sync"
	KindSetTimeout                StrategyKind = "setTimeout"
	KindSetTimeoutByParts         StrategyKind = "setTimeoutByParts"
	KindAwaitedPromise            StrategyKind = "awaitedPromise"
	KindUnawaitedPreparedPromise  StrategyKind = "unawaitedPreparedPromise"
	KindUnawaitedPromise          StrategyKind = "unawaitedPromise"
	KindUnawaitedFinalizedPromise StrategyKind = "unawaitedFinalizedPromise"
)

var kinds = []StrategyKind{
	KindInstant,
	KindSync,
	KindSetTimeout,
	KindSetTimeoutByParts,
	KindAwaitedPromise,
	KindUnawaitedPreparedPromise,
	KindUnawaitedPromise,
	KindUnawaitedFinalizedPromise,
}

// Kinds returns every known strategy kind in presentation order.
func Kinds() []StrategyKind {
	out := make([]StrategyKind, len(kinds))
	copy(out, kinds)
	return out
}

// Valid reports whether k names a known strategy.
func (k StrategyKind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k StrategyKind) String() string {
	return string(k)
}

// ParseStrategyKind converts a discriminator string into a StrategyKind.
func ParseStrategyKind(s string) (StrategyKind, error) {
	k := StrategyKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
	return k, nil
}
