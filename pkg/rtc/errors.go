package rtc

import "errors"

// Peer errors.
var (
	// ErrNoDescription is returned when a nil session description is
	// applied.
	ErrNoDescription = errors.New("rtc: no session description")

	// ErrUnknownDescriptionType is returned for a description type
	// other than offer, answer, pranswer or rollback.
	ErrUnknownDescriptionType = errors.New("rtc: unknown session description type")

	// ErrNoSender is returned by ReplaceTrack when no sender carries
	// the track's kind of media.
	ErrNoSender = errors.New("rtc: no sender for track kind")
)
