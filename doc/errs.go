package doc

import "errors"

// ErrAddress reports an indexed access whose addressed parent is not a
// sequence, or an index outside the writable range.
var ErrAddress = errors.New("address error")
