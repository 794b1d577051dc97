package gcal

import "errors"

// ErrUpstream marks any Google Calendar transport or API failure. Callers
// classify with errors.Is; the operation detail travels in the message.
var ErrUpstream = errors.New("gcal: upstream calendar request failed")
