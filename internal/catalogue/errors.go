package catalogue

import "errors"

var (
	errUnknownSignature = errors.New("catalogue: unrecognized entry signature")
	errDanglingTag      = errors.New("catalogue: hard-link reference tag not introduced earlier in the stream")
)
