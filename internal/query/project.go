// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package query

import (
	"encoding/json"
	"fmt"
)

// Project reduces the JSON form of v (an object or a slice of objects) to
// the named fields. The "id" field is always kept. With no fields, v is
// returned unchanged.
func Project(v any, fields []string) (any, error) {
	if len(fields) == 0 {
		return v, nil
	}

	keep := map[string]bool{"id": true}
	for _, f := range fields {
		keep[f] = true
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("project marshal: %w", err)
	}

	if len(raw) > 0 && raw[0] == '[' {
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("project unmarshal list: %w", err)
		}
		for _, item := range items {
			prune(item, keep)
		}
		return items, nil
	}

	var item map[string]json.RawMessage
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("project unmarshal: %w", err)
	}
	prune(item, keep)
	return item, nil
}

func prune(item map[string]json.RawMessage, keep map[string]bool) {
	for k := range item {
		if !keep[k] {
			delete(item, k)
		}
	}
}
