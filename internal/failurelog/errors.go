package failurelog

import "errors"

// ErrClosed — запись в закрытый журнал.
var ErrClosed = errors.New("failure log closed")
