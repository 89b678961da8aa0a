package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foomo/contactserver/contact"
	"github.com/foomo/contactserver/pkg/metrics"
	"github.com/foomo/contactserver/pkg/store"
	"github.com/foomo/contactserver/pkg/validate"
	httputils "github.com/foomo/keel/utils/net/http"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const sourceWeb = "web"

const (
	msgAdded    = "Data contact berhasil ditambahkan"
	msgDeleted  = "Data contact tersebut berhasil dihapus"
	msgUpdated  = "Data contact berhasil diubah"
	msgNotFound = "Contact dengan nama tersebut tidak tersedia!"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"inc":        func(i int) int { return i + 1 },
	"pathEscape": url.PathEscape,
}

type (
	web struct {
		l         *zap.Logger
		store     store.ContactStore
		email     string
		staff     []contact.Contact
		templates map[string]*template.Template
	}
	// page is the data every template is executed with
	page struct {
		Title    string
		Msg      string
		Error    string
		Errors   []*validate.FieldError
		Email    string
		Staff    []contact.Contact
		Contacts []contact.Contact
		Contact  contact.Contact
		OldName  string
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func newWeb(l *zap.Logger, s store.ContactStore, email string, staff []contact.Contact) (*web, error) {
	inst := &web{
		l:         l.Named("web"),
		store:     s,
		email:     email,
		staff:     staff,
		templates: map[string]*template.Template{},
	}
	for _, name := range []string{"index", "about", "contact", "add-contact", "edit-contact", "detail"} {
		tpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse template %q", name)
		}
		inst.templates[name] = tpl
	}
	return inst, nil
}

// register adds all page routes to mux
func (h *web) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handle("index", h.index))
	mux.HandleFunc("GET /about", h.handle("about", h.about))
	mux.HandleFunc("GET /contact", h.handle("list", h.list))
	mux.HandleFunc("GET /contact/add", h.handle("addForm", h.addForm))
	mux.HandleFunc("POST /contact", h.handle("add", h.add))
	mux.HandleFunc("GET /contact/delete/{name}", h.handle("delete", h.delete))
	mux.HandleFunc("GET /contact/edit/{name}", h.handle("editForm", h.editForm))
	mux.HandleFunc("POST /contact/update", h.handle("update", h.update))
	mux.HandleFunc("GET /contact/{name}", h.handle("detail", h.detail))
	mux.HandleFunc("/", h.handle("notFound", h.notFound))
}

// ------------------------------------------------------------------------------------------------
// ~ Pages
// ------------------------------------------------------------------------------------------------

func (h *web) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index", &page{
		Title: "Homepage",
		Email: h.email,
		Staff: h.staff,
	})
}

func (h *web) about(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "about", &page{Title: "About page"})
}

func (h *web) list(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.store.LoadAll(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "contact", &page{
		Title:    "Contact page",
		Msg:      popFlash(w, r),
		Contacts: contacts,
	})
}

func (h *web) addForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "add-contact", &page{Title: "Form tambah data contact"})
}

func (h *web) add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputils.BadRequestServerError(h.l, w, r, errors.Wrap(err, "failed to parse form"))
		return
	}
	c := formContact(r)

	if err := validate.Add(r.Context(), h.store, c); err != nil {
		fields := validate.Fields(err)
		if len(fields) == 0 {
			h.serverError(w, r, err)
			return
		}
		h.render(w, r, http.StatusBadRequest, "add-contact", &page{
			Title:   "Form tambah data contact",
			Errors:  fields,
			Contact: c,
		})
		return
	}

	if err := h.store.Add(r.Context(), c); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.l.Info("contact added", zap.String("name", c.Name))
	setFlash(w, msgAdded)
	http.Redirect(w, r, "/contact", http.StatusSeeOther)
}

func (h *web) delete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	deleted, err := h.store.Delete(r.Context(), name)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if !deleted {
		h.notFound(w, r)
		return
	}
	h.l.Info("contact deleted", zap.String("name", name))
	setFlash(w, msgDeleted)
	http.Redirect(w, r, "/contact", http.StatusSeeOther)
}

func (h *web) editForm(w http.ResponseWriter, r *http.Request) {
	c, ok, err := h.store.FindByName(r.Context(), r.PathValue("name"))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if !ok {
		h.notFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, "edit-contact", &page{
		Title:   "Form ubah data contact",
		Contact: c,
		OldName: c.Name,
	})
}

func (h *web) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputils.BadRequestServerError(h.l, w, r, errors.Wrap(err, "failed to parse form"))
		return
	}
	oldName := strings.TrimSpace(r.PostForm.Get("oldName"))
	c := formContact(r)

	if err := validate.Update(r.Context(), h.store, oldName, c); err != nil {
		fields := validate.Fields(err)
		if len(fields) == 0 {
			h.serverError(w, r, err)
			return
		}
		h.render(w, r, http.StatusBadRequest, "edit-contact", &page{
			Title:   "Form ubah data contact",
			Errors:  fields,
			Contact: c,
			OldName: oldName,
		})
		return
	}

	updated, err := h.store.Update(r.Context(), oldName, c)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if !updated {
		h.notFound(w, r)
		return
	}
	h.l.Info("contact updated", zap.String("old_name", oldName), zap.String("name", c.Name))
	setFlash(w, msgUpdated)
	http.Redirect(w, r, "/contact", http.StatusSeeOther)
}

func (h *web) detail(w http.ResponseWriter, r *http.Request) {
	c, ok, err := h.store.FindByName(r.Context(), r.PathValue("name"))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	p := &page{Title: "Detail contact", Contact: c}
	status := http.StatusOK
	if !ok {
		p.Error = msgNotFound
		status = http.StatusNotFound
	}
	h.render(w, r, status, "detail", p)
}

func (h *web) notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`<h1 align="center">404 Page not found</h1>`))
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// handle wraps a page with request metrics
func (h *web) handle(name string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		fn(sw, r)

		result := "success"
		if sw.status >= http.StatusInternalServerError {
			result = "error"
		}
		metrics.ServiceRequestCounter.WithLabelValues(name, result, sourceWeb).Inc()
		metrics.ServiceRequestDuration.WithLabelValues(name, result, sourceWeb).Observe(time.Since(start).Seconds())
	}
}

func (h *web) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	var buf bytes.Buffer
	if err := h.templates[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		h.serverError(w, r, errors.Wrapf(err, "failed to render %q", name))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.l.Warn("failed to write page", zap.String("page", name), zap.Error(err))
	}
}

func (h *web) serverError(w http.ResponseWriter, r *http.Request, err error) {
	httputils.ServerError(h.l, w, r, http.StatusInternalServerError, err)
}

func formContact(r *http.Request) contact.Contact {
	return contact.New(
		strings.TrimSpace(r.PostForm.Get("name")),
		strings.TrimSpace(r.PostForm.Get("email")),
		strings.TrimSpace(r.PostForm.Get("phone")),
	)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
