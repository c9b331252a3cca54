package worker

import "errors"

// errPermanent marks failures that would repeat identically on redelivery,
// such as content the transform cannot decode. The consumer drops these
// messages instead of requeueing them.
type errPermanent struct {
	err error
}

func (e *errPermanent) Error() string { return e.err.Error() }

func (e *errPermanent) Unwrap() error { return e.err }

// Permanent wraps err so IsPermanent reports true for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &errPermanent{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked
// permanent.
func IsPermanent(err error) bool {
	var p *errPermanent
	return errors.As(err, &p)
}
