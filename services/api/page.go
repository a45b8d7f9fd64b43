package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core/listing"
)

// alternate keys accepted when the collection key is absent
var altCollectionKeys = []string{"content", "items"}

// ShapeError is a page envelope that holds no recognizable record collection.
type ShapeError struct {
	Key     string   // expected collection key
	Present []string // keys found instead
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("api: page has no %q collection (keys: %s)", e.Key, strings.Join(e.Present, ", "))
}

type pageCounters struct {
	CurrentPage   int   `json:"currentPage"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// decodePage reads a page envelope's data member. The records live under `key`
// (or one of the alternates), or data is itself the bare array of records.
func decodePage[T any](data json.RawMessage, key string) (listing.Page[T], error) {
	var page listing.Page[T]

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &page.Items); err != nil {
			return page, errors.Wrap(err, "decoding records")
		}
		page.PageSize = len(page.Items)
		page.TotalElements = int64(len(page.Items))
		if len(page.Items) > 0 {
			page.TotalPages = 1
		}
		return page, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return page, &ShapeError{Key: key}
	}

	raw, ok := fields[key]
	for _, alt := range altCollectionKeys {
		if ok {
			break
		}
		raw, ok = fields[alt]
	}
	if !ok {
		present := make([]string, 0, len(fields))
		for k := range fields {
			present = append(present, k)
		}
		sort.Strings(present)
		return page, &ShapeError{Key: key, Present: present}
	}

	if err := json.Unmarshal(raw, &page.Items); err != nil {
		return page, errors.Wrapf(err, "decoding %s", key)
	}
	var counters pageCounters
	if err := json.Unmarshal(data, &counters); err != nil {
		return page, errors.Wrap(err, "decoding page counters")
	}
	page.CurrentPage = counters.CurrentPage
	page.PageSize = counters.PageSize
	page.TotalElements = counters.TotalElements
	page.TotalPages = counters.TotalPages
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}
