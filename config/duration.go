package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts either a Go duration ("30s", "1m") or a bare number of
// seconds ("30") on the command line, in the environment and in YAML.
type Duration time.Duration

func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(n * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither seconds nor a duration", s)
	}
	return Duration(d), nil
}

// UnmarshalFlag implements flags.Unmarshaler.
func (d *Duration) UnmarshalFlag(value string) error {
	v, err := ParseDuration(value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalFlag implements flags.Marshaler.
func (d Duration) MarshalFlag() (string, error) { return d.String(), nil }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalFlag(node.Value)
}

func (d Duration) String() string { return time.Duration(d).String() }
