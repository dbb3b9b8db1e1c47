package playback

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// guard runs a vendor call, turning panics into errors. Failures are logged
// and returned for the caller to inspect, never propagated further.
func guard(log *logrus.Entry, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", op, r)
		}
		if err != nil {
			log.WithError(err).WithField("op", op).Debug("Vendor call failed")
		}
	}()
	return fn()
}
