package render

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/interlis-enums/internal/types"
)

// KeyPolicy selects how mapping renderers key enumeration types.
type KeyPolicy string

const (
	// KeyStrict keys by type path and fails when two types share a path.
	KeyStrict KeyPolicy = "strict"

	// KeyOverwrite keys by type path; a later type replaces an earlier one
	// with the same path, keeping the earlier key position.
	KeyOverwrite KeyPolicy = "overwrite"

	// KeyOrdinal keys by the ordinal-prefixed tag name (enum<N>_<Name>).
	KeyOrdinal KeyPolicy = "ordinal"
)

// ParseKeyPolicy resolves a case-insensitive policy name.
func ParseKeyPolicy(name string) (KeyPolicy, error) {
	policy := KeyPolicy(strings.ToLower(strings.TrimSpace(name)))
	switch policy {
	case KeyStrict, KeyOverwrite, KeyOrdinal:
		return policy, nil
	}
	return "", fmt.Errorf("%w: %q (supported: strict, overwrite, ordinal)", ErrUnknownKeyPolicy, name)
}

// table is one keyed entry of a mapping output.
type table struct {
	Key    string
	Values []types.EnumValue
}

// keyedTables applies policy to the catalog types, in catalog order.
func keyedTables(catalog *types.Catalog, policy KeyPolicy) ([]table, error) {
	if catalog.IsEmpty() {
		return []table{}, nil
	}

	tables := make([]table, 0, len(catalog.Types))
	index := make(map[string]int, len(catalog.Types))
	owner := make(map[string]string, len(catalog.Types))

	for _, t := range catalog.Types {
		key := t.Path
		if policy == KeyOrdinal {
			key = t.TagName()
		}

		if at, exists := index[key]; exists {
			if policy == KeyStrict {
				return nil, fmt.Errorf("%w: %q declared by %q and %q", ErrDuplicateKey, key, owner[key], t.RootTID)
			}
			tables[at].Values = t.Values
			owner[key] = t.RootTID
			continue
		}

		index[key] = len(tables)
		owner[key] = t.RootTID
		tables = append(tables, table{Key: key, Values: t.Values})
	}

	return tables, nil
}
