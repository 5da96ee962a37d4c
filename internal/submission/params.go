package submission

import (
	"context"
	"strconv"
	"strings"
	"time"

	"batchdl/internal/jobs"
	"batchdl/internal/registry"
)

const (
	reasonEmpty     = "empty value"
	reasonInvalid   = "invalid parameter value"
	reasonTimestamp = "invalid timestamp"
	reasonNoUser    = "no such user"
	reasonNoGroup   = "no such group"
)

// parsed is one validated parameter value.
type parsed struct {
	value jobs.Value
	user  *registry.User
	group *registry.Group
}

// validator checks one raw value. A non-empty reason rejects the value; an
// error reports a lookup failure.
type validator func(ctx context.Context, dir Directory, raw string) (parsed, string, error)

type paramSpec struct {
	repeatable bool
	validate   validator
}

var paramTable = map[string]paramSpec{
	"column":            {true, nonEmpty},
	"convertTimestamps": {false, boolean},
	"createdAfter":      {false, timestamp},
	"createdBefore":     {false, timestamp},
	"crossref":          {false, boolean},
	"exported":          {false, boolean},
	"format":            {false, enum("anvl", "csv", "xml")},
	"compression":       {false, enum("gzip", "zip")},
	"notify":            {true, nonEmpty},
	"owner":             {true, user},
	"ownergroup":        {true, group},
	"permanence":        {false, enum("test", "real")},
	"profile":           {true, nonEmpty},
	"status":            {true, enum("reserved", "public", "unavailable")},
	"type":              {true, enum("ark", "doi", "urn")},
	"updatedAfter":      {false, timestamp},
	"updatedBefore":     {false, timestamp},
}

func nonEmpty(_ context.Context, _ Directory, raw string) (parsed, string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return parsed{}, reasonEmpty, nil
	}
	return parsed{value: jobs.String(v)}, "", nil
}

func boolean(_ context.Context, _ Directory, raw string) (parsed, string, error) {
	switch raw {
	case "yes":
		return parsed{value: jobs.Bool(true)}, "", nil
	case "no":
		return parsed{value: jobs.Bool(false)}, "", nil
	default:
		return parsed{}, reasonInvalid, nil
	}
}

const timestampLayout = "2006-01-02T15:04:05Z"

func timestamp(_ context.Context, _ Directory, raw string) (parsed, string, error) {
	v := strings.TrimSpace(raw)
	if t, err := time.Parse(timestampLayout, v); err == nil {
		return parsed{value: jobs.Int(t.Unix())}, "", nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return parsed{value: jobs.Int(n)}, "", nil
	}
	return parsed{}, reasonTimestamp, nil
}

func enum(allowed ...string) validator {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(_ context.Context, _ Directory, raw string) (parsed, string, error) {
		if _, ok := set[raw]; !ok {
			return parsed{}, reasonInvalid, nil
		}
		return parsed{value: jobs.String(raw)}, "", nil
	}
}

func user(ctx context.Context, dir Directory, raw string) (parsed, string, error) {
	u, err := dir.UserByUsername(ctx, strings.TrimSpace(raw))
	if err != nil {
		return parsed{}, "", err
	}
	if u == nil || u.IsAnonymous() {
		return parsed{}, reasonNoUser, nil
	}
	return parsed{user: u}, "", nil
}

func group(ctx context.Context, dir Directory, raw string) (parsed, string, error) {
	g, err := dir.GroupByName(ctx, strings.TrimSpace(raw))
	if err != nil {
		return parsed{}, "", err
	}
	if g == nil || g.IsAnonymous() {
		return parsed{}, reasonNoGroup, nil
	}
	return parsed{group: g}, "", nil
}
