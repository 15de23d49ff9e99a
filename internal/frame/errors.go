package frame

import "errors"

// ErrSourceClosed is returned by Grab after the source has been closed.
var ErrSourceClosed = errors.New("frame: source is closed")
