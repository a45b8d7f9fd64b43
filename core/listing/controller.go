package listing

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core"
)

var ErrPageOutOfRange = errors.New("page out of range")

type Options struct {
	PageSize int
	SortBy   string
	SortDir  string
	Notifier Notifier
	Logger   core.Logger
	// OnFetch, when set, observes the outcome of every fetch that was not discarded as stale.
	OnFetch func(mode Mode, err error)
}

// Mutation is one record-level REST call.
type Mutation struct {
	Do       func(ctx context.Context) error
	Success  string // notification on success
	Fallback string // notification on failure when the backend gave no message
}

// Controller keeps one page of a remote collection in sync with the active filters.
// It is safe for concurrent use; only the latest issued fetch may update the page.
type Controller[T any] struct {
	fetcher  Fetcher[T]
	notifier Notifier
	logger   core.Logger
	onFetch  func(Mode, error)
	sortBy   string
	sortDir  string

	mu            sync.Mutex
	seq           uint64
	status        Status
	mode          Mode
	filters       Filters
	items         []T
	page          int
	pageSize      int
	totalElements int64
	totalPages    int
	dialog        Dialog[T]
}

func NewController[T any](fetcher Fetcher[T], opts Options) *Controller[T] {
	if opts.PageSize <= 0 {
		opts.PageSize = core.Conf.List.PageSize
	}
	if opts.SortBy == "" {
		opts.SortBy = core.Conf.List.SortBy
	}
	if opts.SortDir == "" {
		opts.SortDir = core.Conf.List.SortDir
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	return &Controller[T]{
		fetcher:  fetcher,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		onFetch:  opts.OnFetch,
		sortBy:   opts.SortBy,
		sortDir:  opts.SortDir,
		filters:  Filters{},
		items:    []T{},
		pageSize: opts.PageSize,
	}
}

// Load fetches a page of the unfiltered collection; the active filters are dropped.
// A failed fetch leaves an empty page with the counters unchanged and is not notified;
// the error is still returned.
func (c *Controller[T]) Load(ctx context.Context, page, size int) error {
	return c.fetch(ctx, ListMode, Filters{}, page, size)
}

// Search makes criteria the active filters and fetches a page of the matching records.
// Criteria without any effective value fall back to a plain list request.
func (c *Controller[T]) Search(ctx context.Context, criteria Filters, page, size int) error {
	return c.fetch(ctx, modeFor(criteria), criteria.Clone(), page, size)
}

// SetFilter changes one filter and fetches the first page.
func (c *Controller[T]) SetFilter(ctx context.Context, key, value string) error {
	c.mu.Lock()
	filters := c.filters.Clone()
	size := c.pageSize
	c.mu.Unlock()

	filters[key] = value
	return c.fetch(ctx, modeFor(filters), filters, 0, size)
}

// SubmitSearch sets the free-text keyword and fetches the first page.
func (c *Controller[T]) SubmitSearch(ctx context.Context, keyword string) error {
	return c.SetFilter(ctx, KeywordFilter, keyword)
}

// ClearFilters drops every filter and fetches the first page.
func (c *Controller[T]) ClearFilters(ctx context.Context) error {
	c.mu.Lock()
	size := c.pageSize
	c.mu.Unlock()
	return c.fetch(ctx, ListMode, Filters{}, 0, size)
}

// ChangePage fetches another page under the active mode and filters.
func (c *Controller[T]) ChangePage(ctx context.Context, page int) error {
	c.mu.Lock()
	if page < 0 || page >= c.totalPages {
		c.mu.Unlock()
		return errors.Wrapf(ErrPageOutOfRange, "page %d of %d", page, c.totalPages)
	}
	mode, filters, size := c.mode, c.filters.Clone(), c.pageSize
	c.mu.Unlock()
	return c.fetch(ctx, mode, filters, page, size)
}

// Refresh re-fetches the current page under the active filters.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	mode, filters, page, size := c.mode, c.filters.Clone(), c.page, c.pageSize
	c.mu.Unlock()
	return c.fetch(ctx, mode, filters, page, size)
}

// Mutate performs m. On success the dialog is closed, a success notification is shown
// and the page that was current when the mutation started is fetched again, once.
// On failure an error notification is shown and the page and the dialog are left alone.
func (c *Controller[T]) Mutate(ctx context.Context, m Mutation) error {
	c.mu.Lock()
	mode, filters, page, size := c.mode, c.filters.Clone(), c.page, c.pageSize
	c.mu.Unlock()

	if err := m.Do(ctx); err != nil {
		c.logger.Warn("listing: mutation failed", err)
		c.notifier.Error(core.UserMessage(err, m.Fallback))
		return err
	}

	c.mu.Lock()
	c.dialog = Dialog[T]{}
	c.mu.Unlock()
	if m.Success != "" {
		c.notifier.Success(m.Success)
	}
	if err := c.fetch(ctx, mode, filters, page, size); err != nil {
		c.logger.Debug("listing: refresh after mutation", err)
	}
	return nil
}

func (c *Controller[T]) fetch(ctx context.Context, mode Mode, filters Filters, page, size int) error {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = c.defaultSize()
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.status = Loading
	c.mode = mode
	c.filters = filters
	c.mu.Unlock()

	q := Query{Page: page, Size: size, SortBy: c.sortBy, SortDir: c.sortDir}
	var (
		res Page[T]
		err error
	)
	if mode == SearchMode {
		res, err = c.fetcher.Search(ctx, filters.Payload(), q)
	} else {
		res, err = c.fetcher.List(ctx, q)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		c.logger.Debug("listing: discarding stale response", map[string]interface{}{"seq": seq, "latest": c.seq})
		return nil
	}
	if c.onFetch != nil {
		c.onFetch(mode, err)
	}
	if err != nil {
		c.items = []T{}
		c.status = Errored
		c.logger.Debug("listing: fetch failed", errors.Wrapf(err, "fetching page %d (%s)", page, mode))
		return err
	}

	c.items = res.Items
	if c.items == nil {
		c.items = []T{}
	}
	if len(c.items) > size {
		c.logger.Warn("listing: page larger than requested, truncated", map[string]interface{}{"size": size, "received": len(c.items)})
		c.items = c.items[:size:size]
	}
	c.page = res.CurrentPage
	if res.PageSize > 0 && res.PageSize <= size {
		c.pageSize = res.PageSize
	} else {
		c.pageSize = size
	}
	c.totalElements = res.TotalElements
	c.totalPages = res.TotalPages
	c.status = Loaded
	return nil
}

func (c *Controller[T]) defaultSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageSize
}

func modeFor(filters Filters) Mode {
	if len(filters.Payload()) == 0 {
		return ListMode
	}
	return SearchMode
}

// OpenAdd opens the add dialog, closing any other.
func (c *Controller[T]) OpenAdd() {
	c.setDialog(Dialog[T]{Kind: AddDialog})
}

// OpenEdit opens the edit dialog on record, closing any other.
func (c *Controller[T]) OpenEdit(record T) {
	c.setDialog(Dialog[T]{Kind: EditDialog, Record: &record})
}

// OpenView opens the view dialog on record, closing any other.
func (c *Controller[T]) OpenView(record T) {
	c.setDialog(Dialog[T]{Kind: ViewDialog, Record: &record})
}

func (c *Controller[T]) CloseDialog() {
	c.setDialog(Dialog[T]{})
}

// SetDraft keeps the form being submitted in the open dialog.
func (c *Controller[T]) SetDraft(draft T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dialog.Open() {
		c.dialog.Draft = &draft
	}
}

func (c *Controller[T]) setDialog(d Dialog[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialog = d
}

// Snapshot is a copy of the controller state.
type Snapshot[T any] struct {
	Items         []T       `json:"items"`
	Page          int       `json:"page"`
	PageSize      int       `json:"pageSize"`
	TotalElements int64     `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
	Status        Status    `json:"status"`
	Mode          Mode      `json:"mode"`
	Filters       Filters   `json:"filters"`
	Dialog        Dialog[T] `json:"dialog"`
}

// DisplayPage is the one-based page number.
func (s Snapshot[T]) DisplayPage() int { return s.Page + 1 }

// HasNext is false on the last page, so no request is made for a page known to be empty.
func (s Snapshot[T]) HasNext() bool { return s.Page < s.TotalPages-1 }

func (s Snapshot[T]) HasPrev() bool { return s.Page > 0 }

func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot[T]{
		Items:         append([]T{}, c.items...),
		Page:          c.page,
		PageSize:      c.pageSize,
		TotalElements: c.totalElements,
		TotalPages:    c.totalPages,
		Status:        c.status,
		Mode:          c.mode,
		Filters:       c.filters.Clone(),
		Dialog:        c.dialog,
	}
}
