package envutil

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

var (
	ErrBadPort         = errors.New("invalid port")
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// errUnsetValue is a special error used internally to unset a Reader's value
// during Map operations. When returned from a Map function, the resulting
// Reader will have present=false.
var errUnsetValue = errors.New("unset value")

const portMax = 65535

// Intish is the set of signed integer types Int can produce.
type Intish interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Uintish is the set of unsigned integer types Uint can produce.
type Uintish interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func trimString(s string) (string, error) {
	return strings.TrimSpace(s), nil
}

func parseBool(s string) (bool, error) {
	return strconv.ParseBool(s)
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func parseUint64(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func castNumeric[A int64 | uint64, B Intish | Uintish](value A) (B, error) {
	return B(value), nil
}

func parsePort(s string) (uint16, error) {
	port, err := parseInt64(s)
	if err != nil {
		return 0, err
	}

	if port < 0 || port > portMax {
		return 0, fmt.Errorf("%w: %d", ErrBadPort, port)
	}

	return uint16(port), nil
}

func parseSlogLevel(value string) (slog.Level, error) {
	switch value {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, value)
	}
}
