package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/nuxeo/spreadsheet-schemas/pkg/utils"
)

// RequestOpt tunes a single request issued through a Resource.
type RequestOpt struct {
	// RepositoryName overrides the repository for this request only.
	// When nil or empty no override header is sent.
	RepositoryName *string

	// Query is encoded into the query string, see Client.NewRequest.
	Query interface{}
}

// Resource issues requests against a fixed path below the API root.
type Resource struct {
	client *Client
	path   string
}

// NewResource returns a Resource bound to path.
func NewResource(client *Client, path string) *Resource {
	return &Resource{
		client: client,
		path:   "/" + strings.Trim(path, "/"),
	}
}

// Path returns the path the resource is bound to.
func (r *Resource) Path() string {
	return r.path
}

// Endpoint joins the resource path with the given segments.
func (r *Resource) Endpoint(segments ...string) string {
	endpoint := r.path
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s == "" {
			continue
		}
		endpoint += "/" + s
	}
	return endpoint
}

// Execute retrieves the default listing of the resource into v.
func (r *Resource) Execute(ctx context.Context, v interface{}) error {
	return r.Get(ctx, "", nil, v)
}

// Get fetches the resource, or the sub path when non-empty, into v.
func (r *Resource) Get(ctx context.Context, subPath string, opt *RequestOpt, v interface{}) error {
	return r.do(ctx, http.MethodGet, subPath, opt, nil, v)
}

// Put sends body to the resource, or the sub path when non-empty.
func (r *Resource) Put(ctx context.Context, subPath string, opt *RequestOpt, body, v interface{}) error {
	return r.do(ctx, http.MethodPut, subPath, opt, body, v)
}

// Post sends body to the resource, or the sub path when non-empty.
func (r *Resource) Post(ctx context.Context, subPath string, opt *RequestOpt, body, v interface{}) error {
	return r.do(ctx, http.MethodPost, subPath, opt, body, v)
}

func (r *Resource) do(ctx context.Context, method, subPath string, opt *RequestOpt, body, v interface{}) error {
	var qs interface{}
	if opt != nil {
		qs = opt.Query
	}
	req, err := r.client.NewRequest(method, r.Endpoint(subPath), qs, body)
	if err != nil {
		return err
	}
	if opt != nil && !utils.Empty(opt.RepositoryName) {
		req.Header.Set(RepositoryHeader, *opt.RepositoryName)
	}
	_, err = r.client.Do(ctx, req, v)
	return err
}
