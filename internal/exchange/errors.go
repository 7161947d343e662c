package exchange

import (
	"strings"

	"github.com/mselser95/quoter/pkg/types"
)

// ErrorClass buckets a gateway failure (spec §7's error taxonomy). The
// gateway uses it to recognise cancel races; the circuit breaker counts
// errors that wrap types.ErrTransient directly.
type ErrorClass int

const (
	ClassTransient ErrorClass = iota
	ClassLogicalReject
	ClassCancelRace
	ClassFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassLogicalReject:
		return "logical_reject"
	case ClassCancelRace:
		return "cancel_race"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify buckets err the way the teacher's executor.go classifyError
// buckets execution errors, generalized from a flat string-category set to
// a four-way ErrorClass.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassTransient
	}

	if types.IsLogicalReject(err) {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, strings.ToLower(types.ErrUnknownOrder)) {
			return ClassCancelRace
		}
		return ClassLogicalReject
	}

	return ClassTransient
}
