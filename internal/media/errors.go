package media

import "errors"

// ErrNoFile indicates an upload was requested without a local file.
var ErrNoFile = errors.New("media: no local file provided")
