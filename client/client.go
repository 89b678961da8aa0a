package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/foomo/contactserver/contact"
	"github.com/foomo/contactserver/pkg/utils"
	"github.com/pkg/errors"
)

// Client talks to the contact api of a contactserver
type Client struct {
	t *httpTransport
}

type Option func(*httpTransport)

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(v *http.Client) Option {
	return func(o *httpTransport) {
		o.client = v
	}
}

// New returns a client for the api below baseURL, e.g. http://localhost:8080/api
func New(baseURL string, opts ...Option) (*Client, error) {
	if !utils.IsValidURL(baseURL) {
		return nil, errors.Errorf("invalid server url %q, expected http(s)://host/path", baseURL)
	}

	t := &httpTransport{
		client:   http.DefaultClient,
		endpoint: strings.TrimSuffix(baseURL, "/") + "/contacts",
	}
	for _, opt := range opts {
		opt(t)
	}
	return &Client{t: t}, nil
}

// List returns all contacts in document order
func (c *Client) List(ctx context.Context) ([]contact.Contact, error) {
	var contacts []contact.Contact
	if err := c.t.call(ctx, http.MethodGet, "", nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// Get returns the contact with the exact name, see IsNotFound
func (c *Client) Get(ctx context.Context, name string) (*contact.Contact, error) {
	response := &contact.Contact{}
	if err := c.t.call(ctx, http.MethodGet, "/"+url.PathEscape(name), nil, response); err != nil {
		return nil, err
	}
	return response, nil
}

// Create adds a new contact, see IsConflict and IsInvalid
func (c *Client) Create(ctx context.Context, v contact.Contact) (*contact.Contact, error) {
	response := &contact.Contact{}
	if err := c.t.call(ctx, http.MethodPost, "", v, response); err != nil {
		return nil, err
	}
	return response, nil
}

// Update replaces the contact currently called oldName, v may carry a new name
func (c *Client) Update(ctx context.Context, oldName string, v contact.Contact) (*contact.Contact, error) {
	response := &contact.Contact{}
	if err := c.t.call(ctx, http.MethodPut, "/"+url.PathEscape(oldName), v, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	return c.t.call(ctx, http.MethodDelete, "/"+url.PathEscape(name), nil, nil)
}
