package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core/listing"
	"github.com/NVK2907/sms-app-sub000/core/school"
)

// Resource is a typed backend collection.
type Resource[T any] struct {
	c   *Client
	def school.Resource
}

var _ listing.Fetcher[school.User] = (*Resource[school.User])(nil)

func NewResource[T any](c *Client, def school.Resource) *Resource[T] {
	return &Resource[T]{c: c, def: def}
}

func (r *Resource[T]) Def() school.Resource { return r.def }

func pageQuery(q listing.Query) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortDir != "" {
		v.Set("sortDir", q.SortDir)
	}
	return v
}

func (r *Resource[T]) fetchPage(ctx context.Context, path string, query url.Values) (listing.Page[T], error) {
	var data json.RawMessage
	if err := r.c.do(ctx, http.MethodGet, path, query, nil, &data); err != nil {
		return listing.Page[T]{}, err
	}
	return decodePage[T](data, r.def.CollectionKey)
}

// List fetches a page of the collection.
func (r *Resource[T]) List(ctx context.Context, q listing.Query) (listing.Page[T], error) {
	return r.fetchPage(ctx, r.def.Path, pageQuery(q))
}

// Search fetches a page of the records matching criteria (keyword and filter fields).
func (r *Resource[T]) Search(ctx context.Context, criteria map[string]string, q listing.Query) (listing.Page[T], error) {
	query := pageQuery(q)
	for k, v := range criteria {
		query.Set(k, v)
	}
	return r.fetchPage(ctx, r.def.Path+"/search", query)
}

func (r *Resource[T]) itemPath(id int64) string {
	return r.def.Path + "/" + strconv.FormatInt(id, 10)
}

func (r *Resource[T]) Get(ctx context.Context, id int64) (T, error) {
	var rec T
	err := r.c.do(ctx, http.MethodGet, r.itemPath(id), nil, nil, &rec)
	return rec, errors.Wrapf(err, "getting %s %d", r.def.Name, id)
}

func (r *Resource[T]) Create(ctx context.Context, rec T) (T, error) {
	var created T
	err := r.c.do(ctx, http.MethodPost, r.def.Path, nil, rec, &created)
	return created, errors.Wrapf(err, "creating %s", r.def.Name)
}

func (r *Resource[T]) Update(ctx context.Context, id int64, rec T) (T, error) {
	var updated T
	err := r.c.do(ctx, http.MethodPut, r.itemPath(id), nil, rec, &updated)
	return updated, errors.Wrapf(err, "updating %s %d", r.def.Name, id)
}

func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return errors.Wrapf(r.c.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, nil), "deleting %s %d", r.def.Name, id)
}

// Action performs a record level action, eg. PUT /users/{id}/toggle-status.
func (r *Resource[T]) Action(ctx context.Context, id int64, action string, body interface{}) error {
	err := r.c.do(ctx, http.MethodPut, r.itemPath(id)+"/"+action, nil, body, nil)
	return errors.Wrapf(err, "%s %s %d", action, r.def.Name, id)
}
