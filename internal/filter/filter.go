// Package filter evaluates a job's declared constraints against harvested
// records.
package filter

import (
	"strconv"
	"strings"

	"batchdl/internal/jobs"
	"batchdl/internal/mapping"
)

// Constraint names accepted by Matches.
const (
	CreatedAfter  = "createdAfter"
	CreatedBefore = "createdBefore"
	UpdatedAfter  = "updatedAfter"
	UpdatedBefore = "updatedBefore"
	Crossref      = "crossref"
	Exported      = "exported"
	Permanence    = "permanence"
	Profile       = "profile"
	Status        = "status"
	Type          = "type"
)

// TestClassifier decides whether an identifier is a test identifier.
type TestClassifier interface {
	IsTest(identifier string) bool
}

// Matches reports whether a normalized record satisfies every constraint.
// Unknown constraint names and malformed constraint values never match.
func Matches(identifier string, record map[string]string, constraints map[string]jobs.Value, classifier TestClassifier) bool {
	for name, want := range constraints {
		if !matchOne(name, want, identifier, record, classifier) {
			return false
		}
	}
	return true
}

func matchOne(name string, want jobs.Value, identifier string, record map[string]string, classifier TestClassifier) bool {
	switch name {
	case CreatedAfter:
		return compareTime(record[mapping.FieldCreated], want, true)
	case CreatedBefore:
		return compareTime(record[mapping.FieldCreated], want, false)
	case UpdatedAfter:
		return compareTime(record[mapping.FieldUpdated], want, true)
	case UpdatedBefore:
		return compareTime(record[mapping.FieldUpdated], want, false)
	case Crossref:
		b, ok := want.AsBool()
		return ok && strings.HasPrefix(record[mapping.FieldCrossref], "yes") == b
	case Exported:
		b, ok := want.AsBool()
		return ok && (record[mapping.FieldExport] == "yes") == b
	case Permanence:
		s, ok := want.AsString()
		if !ok {
			return false
		}
		isTest := classifier != nil && classifier.IsTest(identifier)
		return (s == "test") == isTest
	case Profile:
		return inSet(want, record[mapping.FieldProfile])
	case Status:
		status := record[mapping.FieldStatus]
		if strings.HasPrefix(status, "unavailable") {
			status = "unavailable"
		}
		return inSet(want, status)
	case Type:
		scheme, _, _ := strings.Cut(identifier, ":")
		return inSet(want, scheme)
	default:
		return false
	}
}

// compareTime checks a record epoch value against a bound: after means
// value >= bound, otherwise value < bound. Missing or unparseable values fail.
func compareTime(raw string, want jobs.Value, after bool) bool {
	bound, ok := want.AsInt()
	if !ok {
		return false
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return false
	}
	if after {
		return value >= bound
	}
	return value < bound
}

func inSet(want jobs.Value, member string) bool {
	set, ok := want.StringSet()
	if !ok {
		return false
	}
	_, found := set[member]
	return found
}
