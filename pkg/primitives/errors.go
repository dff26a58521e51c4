package primitives

import "errors"

var errInvalidHashLength = errors.New("primitives: hash must be 32 bytes")
