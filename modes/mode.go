package modes

// Mode selects defaults that differ between development and production sessions.
type Mode uint8

const (
	ModeProduction Mode = iota
	ModeDevelopment
)

func (m Mode) String() string {
	switch m {
	case ModeProduction:
		return "production"
	case ModeDevelopment:
		return "development"
	}
	return "unknown"
}
