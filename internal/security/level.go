package security

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSecurityLevelRank = errors.New("invalid security level rank")
	ErrUnknownSecurityLevel     = errors.New("unknown security level")
)

// Level is a clearance rank. Lower rank means more privilege.
type Level int

const (
	Level1 Level = iota + 1
	Level2
	Level3
	Level4
)

var levelLabels = map[Level]string{
	Level1: "Highest clearance",
	Level2: "Senior clearance",
	Level3: "Intermediate clearance",
	Level4: "Basic clearance",
}

// Levels returns every defined level, most privileged first.
func Levels() []Level {
	return []Level{Level1, Level2, Level3, Level4}
}

func (l Level) Rank() int {
	return int(l)
}

func (l Level) Label() string {
	return levelLabels[l]
}

func (l Level) Valid() bool {
	return l >= Level1 && l <= Level4
}

// String returns the stored name of the level, e.g. LEVEL_2.
func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("LEVEL_INVALID(%d)", int(l))
	}
	return fmt.Sprintf("LEVEL_%d", int(l))
}

// HasAccessTo reports whether a holder of l may see something classified at
// other. An undefined level on either side denies.
func (l Level) HasAccessTo(other Level) bool {
	return l.Valid() && other.Valid() && l.Rank() <= other.Rank()
}

// FromRank maps 1..4 to a level. Anything else is rejected, never coerced.
func FromRank(rank int) (Level, error) {
	level := Level(rank)
	if !level.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSecurityLevelRank, rank)
	}
	return level, nil
}

// ParseLevel accepts the stored name (LEVEL_3) as written by String.
func ParseLevel(name string) (Level, error) {
	for _, level := range Levels() {
		if strings.EqualFold(level.String(), name) {
			return level, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSecurityLevel, name)
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSecurityLevelRank, int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	level, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}
