package handler

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/foomo/contactserver/contact"
	"github.com/foomo/contactserver/pkg/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type (
	HTTP struct {
		l         *zap.Logger
		store     store.ContactStore
		mux       *http.ServeMux
		title     string
		version   string
		apiPrefix string
		email     string
		staff     []contact.Contact
	}
	HTTPOption func(*HTTP)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewHTTP serves the contact pages and, below the api prefix, the JSON api
func NewHTTP(l *zap.Logger, s store.ContactStore, opts ...HTTPOption) (*HTTP, error) {
	inst := &HTTP{
		l:         l.Named("http"),
		store:     s,
		mux:       http.NewServeMux(),
		title:     "Contact Server",
		version:   "latest",
		apiPrefix: "/api",
		email:     "ujangs@yandex.com",
		staff: []contact.Contact{
			{Name: "Ajun Bagas", Email: "ajunbagas@gmail.com"},
			{Name: "Sarah Apriliani", Email: "sarahapr@gmail.com"},
			{Name: "Gustav Kennedy", Email: "gustavken@gmail.com"},
		},
	}

	for _, opt := range opts {
		opt(inst)
	}

	w, err := newWeb(inst.l, s, inst.email, inst.staff)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create web handler")
	}
	w.register(inst.mux)

	config := huma.DefaultConfig(inst.title, inst.version)
	config.OpenAPIPath = inst.apiPrefix + "/openapi"
	config.DocsPath = inst.apiPrefix + "/docs"
	config.SchemasPath = inst.apiPrefix + "/schemas"
	root := humago.New(inst.mux, config)
	a := &api{l: inst.l.Named("api"), store: s}
	a.register(huma.NewGroup(root, inst.apiPrefix))

	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithTitle(v string) HTTPOption {
	return func(o *HTTP) {
		o.title = v
	}
}

func WithVersion(v string) HTTPOption {
	return func(o *HTTP) {
		o.version = v
	}
}

func WithAPIPrefix(v string) HTTPOption {
	return func(o *HTTP) {
		o.apiPrefix = v
	}
}

// WithGreeting sets the address and staff list shown on the home page
func WithGreeting(email string, staff ...contact.Contact) HTTPOption {
	return func(o *HTTP) {
		o.email = email
		o.staff = staff
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}
