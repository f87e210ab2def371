package service

import "errors"

var (
	// ErrSyncDisabled is returned by operations that need the geo-directory
	// while synchronization is turned off.
	ErrSyncDisabled = errors.New("geo-directory sync is disabled")

	// ErrNotLinked is returned when an operation needs a remote entry but the
	// record has never been pushed.
	ErrNotLinked = errors.New("record is not linked to a geo-directory entry")

	// ErrRemoteIDInUse is returned when linking a remote entry that another
	// local record already owns.
	ErrRemoteIDInUse = errors.New("remote id already linked to another record")
)
