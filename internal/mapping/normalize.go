// Package mapping converts raw registry metadata into its public form and
// derives display fields such as creator and title.
package mapping

import (
	"strconv"
	"strings"
	"time"
)

// Public field names produced by Normalize.
const (
	FieldOwner      = "_owner"
	FieldOwnerGroup = "_ownergroup"
	FieldCreated    = "_created"
	FieldUpdated    = "_updated"
	FieldTarget     = "_target"
	FieldProfile    = "_profile"
	FieldStatus     = "_status"
	FieldExport     = "_export"
	FieldCrossref   = "_crossref"
)

var internalKeys = map[string]string{
	"_o":  FieldOwner,
	"_g":  FieldOwnerGroup,
	"_c":  FieldCreated,
	"_u":  FieldUpdated,
	"_t":  FieldTarget,
	"_p":  FieldProfile,
	"_cr": FieldCrossref,
}

// Normalize returns a copy of raw with internal short keys renamed to their
// public names and the status and export flags expanded. Internal keys with
// no public meaning are dropped.
func Normalize(raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw)+2)
	for key, value := range raw {
		if public, ok := internalKeys[key]; ok {
			out[public] = value
			continue
		}
		switch key {
		case "_is", "_x":
			continue
		}
		if strings.HasPrefix(key, "_") && len(key) <= 3 {
			continue
		}
		out[key] = value
	}
	out[FieldStatus] = expandStatus(raw["_is"])
	out[FieldExport] = expandExport(raw["_x"])
	return out
}

func expandStatus(code string) string {
	code = strings.TrimSpace(code)
	switch {
	case code == "":
		return "public"
	case code == "R":
		return "reserved"
	case strings.HasPrefix(code, "U"):
		reason := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(code, "U"), "|"))
		if reason == "" {
			return "unavailable"
		}
		return "unavailable | " + reason
	default:
		return code
	}
}

func expandExport(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "", "yes", "y":
		return "yes"
	default:
		return "no"
	}
}

// FormatTimestamp renders an epoch-seconds string as YYYY-MM-DDTHH:MM:SSZ.
func FormatTimestamp(epoch string) (string, bool) {
	secs, err := strconv.ParseInt(strings.TrimSpace(epoch), 10, 64)
	if err != nil {
		return "", false
	}
	return time.Unix(secs, 0).UTC().Format("2006-01-02T15:04:05Z"), true
}

// ConvertTimestamps rewrites _created and _updated in place as textual UTC
// timestamps. Unparseable values are left unchanged.
func ConvertTimestamps(record map[string]string) {
	for _, key := range []string{FieldCreated, FieldUpdated} {
		if value, ok := record[key]; ok {
			if formatted, ok := FormatTimestamp(value); ok {
				record[key] = formatted
			}
		}
	}
}

// Classifier decides whether an identifier is a test identifier by prefix.
type Classifier struct {
	prefixes []string
}

// NewClassifier builds a Classifier from the configured test prefixes.
func NewClassifier(prefixes []string) *Classifier {
	cp := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			cp = append(cp, p)
		}
	}
	return &Classifier{prefixes: cp}
}

// IsTest reports whether identifier falls under a test prefix.
func (c *Classifier) IsTest(identifier string) bool {
	if c == nil {
		return false
	}
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(identifier, prefix) {
			return true
		}
	}
	return false
}
