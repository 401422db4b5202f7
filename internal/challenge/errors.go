package challenge

type constError string

func (e constError) Error() string { return string(e) }

var (
	ErrUnknownChallenge = constError("unknown challenge")
	ErrInvalidChallenge = constError("invalid challenge")
	ErrEmptyCatalog     = constError("challenge catalog is empty")

	// ErrAlreadyCheckedIn is returned for a second check-in on the same day.
	ErrAlreadyCheckedIn = constError("already checked in today")
	ErrCompleted        = constError("challenge already completed")
)
