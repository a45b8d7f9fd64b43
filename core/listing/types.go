package listing

import (
	"context"
	"strings"
)

// AllSentinel is the filter value meaning "do not filter on this field".
const AllSentinel = "all"

// KeywordFilter is the filter key of the free-text search.
const KeywordFilter = "keyword"

// Status of a controller.
type Status int

const (
	Idle Status = iota
	Loading
	Loaded
	Errored
)

var statusNames = [...]string{"idle", "loading", "loaded", "errored"}

func (s Status) String() string {
	if s < Idle || s > Errored {
		return "unknown"
	}
	return statusNames[s]
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Mode is the kind of request the controller re-issues when paging.
type Mode int

const (
	ListMode Mode = iota
	SearchMode
)

func (m Mode) String() string {
	if m == SearchMode {
		return "search"
	}
	return "list"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Query of a list or search request.
type Query struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// Filters are the active filter criteria, keyed by backend parameter name.
type Filters map[string]string

// Payload is what goes on the wire: blank values and the "all" sentinel are left out.
func (f Filters) Payload() map[string]string {
	out := make(map[string]string, len(f))
	for k, v := range f {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, AllSentinel) {
			continue
		}
		out[k] = v
	}
	return out
}

func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Page is one page of records as returned by the backend.
type Page[T any] struct {
	Items         []T
	CurrentPage   int
	PageSize      int
	TotalElements int64
	TotalPages    int
}

// Fetcher is the remote collection behind a controller.
type Fetcher[T any] interface {
	List(ctx context.Context, q Query) (Page[T], error)
	// Search receives the filter payload (sentinels already removed).
	Search(ctx context.Context, criteria map[string]string, q Query) (Page[T], error)
}

// Notifier shows timed, user-visible notifications.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
