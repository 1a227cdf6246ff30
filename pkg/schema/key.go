package schema

import (
	"sort"

	"github.com/samber/lo"
)

// Wildcard selects every schema of the catalogue.
const Wildcard = "*"

// ResolveKey returns the key a schema is addressed by: its prefix when
// set, its name otherwise.
func ResolveKey(e Entry) string {
	if e.Prefix != "" {
		return e.Prefix
	}
	return e.Name
}

// Select keeps the catalogue entries whose key is requested and returns
// them keyed by that key. Requested keys matching no entry are ignored.
func Select(entries []Entry, requested []string) SchemaMap {
	all := lo.Contains(requested, Wildcard)
	schemas := SchemaMap{}
	for _, entry := range entries {
		key := ResolveKey(entry)
		if key == "" {
			continue
		}
		if all || lo.Contains(requested, key) {
			schemas[key] = &Descriptor{Name: entry.Name}
		}
	}
	return schemas
}

type fieldTask struct {
	key  string
	name string
}

// plan returns one field request per requested key present in schemas,
// in request order. Duplicated keys yield duplicated requests and the
// wildcard expands to every selected key.
func plan(schemas SchemaMap, requested []string) []fieldTask {
	var tasks []fieldTask
	for _, key := range requested {
		if key == Wildcard {
			keys := lo.Keys(schemas)
			sort.Strings(keys)
			for _, k := range keys {
				tasks = append(tasks, fieldTask{key: k, name: schemas[k].Name})
			}
			continue
		}
		if d, ok := schemas[key]; ok {
			tasks = append(tasks, fieldTask{key: key, name: d.Name})
		}
	}
	return tasks
}
