// Package publish hands steering values to the consumer process.
package publish

import (
	"math"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
)

// Publisher writes text to the shared channel. Writes overwrite whatever
// was there before.
type Publisher interface {
	Publish(text string) error
}

type PublisherFunc func(text string) error

func (f PublisherFunc) Publish(text string) error {
	return f(text)
}

// Clipboard publishes to the host clipboard.
type Clipboard struct{}

func (Clipboard) Publish(text string) error {
	return clipboard.WriteAll(text)
}

// FormatSteer renders v the way the consumer parses it: shortest decimal
// with a trailing ".0" for integral values, exponent form outside
// [1e-4, 1e16), and nan/inf/-inf for the special values.
func FormatSteer(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
