package breach

import (
	"errors"
)

var (
	ErrNoBreaches  = errors.New("no breaches found for account")
	ErrFetchFailed = errors.New("breach lookup failed")
	ErrInvalidData = errors.New("invalid breach record")
)
