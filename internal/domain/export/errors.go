package export

import "errors"

var ErrArchiveDisabled = errors.New("export archive is not configured")
