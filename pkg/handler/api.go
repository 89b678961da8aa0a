package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/foomo/contactserver/contact"
	"github.com/foomo/contactserver/pkg/metrics"
	"github.com/foomo/contactserver/pkg/store"
	"github.com/foomo/contactserver/pkg/validate"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const sourceAPI = "api"

type api struct {
	l     *zap.Logger
	store store.ContactStore
}

type ContactModel struct {
	Name  string `json:"name"  example:"Ajun Bagas"          doc:"Unique name of the contact"`
	Email string `json:"email" example:"ajunbagas@gmail.com" doc:"Email address"`
	Phone string `json:"phone" example:"081234567890"        doc:"Indonesian mobile phone number"`
}

type (
	ContactsListOutput struct {
		Body []ContactModel
	}
	ContactOutput struct {
		Body ContactModel
	}
	contactNameInput struct {
		Name string `path:"name" example:"Ajun Bagas" doc:"Name of the contact"`
	}
)

type handlerFunc[I, O any] = func(context.Context, *I) (*O, error)

// register adds the contact operations to a huma group below the api prefix.
// The collection path has no trailing slash, the mux would treat it as a subtree.
func (h *api) register(grp huma.API) {
	grp.UseMiddleware(meterRequests)

	huma.Get(grp, "/contacts", withErrorLog(h.l, h.list),
		opID("list-contacts"),
		opErrors(http.StatusInternalServerError),
	)
	huma.Get(grp, "/contacts/{name}", withErrorLog(h.l, h.get),
		opID("get-contact"),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
	huma.Post(grp, "/contacts", withErrorLog(h.l, h.create),
		opID("create-contact"),
		opErrors(http.StatusConflict, http.StatusUnprocessableEntity, http.StatusInternalServerError),
		func(o *huma.Operation) { o.DefaultStatus = http.StatusCreated },
	)
	huma.Put(grp, "/contacts/{name}", withErrorLog(h.l, h.update),
		opID("update-contact"),
		opErrors(http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity, http.StatusInternalServerError),
	)
	huma.Delete(grp, "/contacts/{name}", withErrorLog(h.l, h.del),
		opID("delete-contact"),
		opErrors(http.StatusNotFound, http.StatusInternalServerError),
	)
}

// ------------------------------------------------------------------------------------------------
// ~ Operations
// ------------------------------------------------------------------------------------------------

func (h *api) list(ctx context.Context, _ *struct{}) (*ContactsListOutput, error) {
	contacts, err := h.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	body := make([]ContactModel, 0, len(contacts))
	for _, c := range contacts {
		body = append(body, toModel(c))
	}
	return &ContactsListOutput{Body: body}, nil
}

func (h *api) get(ctx context.Context, input *contactNameInput) (*ContactOutput, error) {
	c, ok, err := h.store.FindByName(ctx, input.Name)
	switch {
	case err != nil:
		return nil, err
	case !ok:
		return nil, huma.Error404NotFound("contact not found")
	default:
		return &ContactOutput{Body: toModel(c)}, nil
	}
}

func (h *api) create(ctx context.Context, input *struct {
	Body ContactModel
}) (*ContactOutput, error) {
	c := fromModel(input.Body)
	if err := validate.Add(ctx, h.store, c); err != nil {
		return nil, validationError(err)
	}
	if err := h.store.Add(ctx, c); err != nil {
		return nil, err
	}
	return &ContactOutput{Body: toModel(c)}, nil
}

func (h *api) update(ctx context.Context, input *struct {
	Name string `path:"name" example:"Ajun Bagas" doc:"Current name of the contact"`
	Body ContactModel
}) (*ContactOutput, error) {
	exists, err := h.store.ExistsByName(ctx, input.Name)
	if err != nil {
		return nil, err
	} else if !exists {
		return nil, huma.Error404NotFound("contact not found")
	}

	c := fromModel(input.Body)
	if err := validate.Update(ctx, h.store, input.Name, c); err != nil {
		return nil, validationError(err)
	}

	updated, err := h.store.Update(ctx, input.Name, c)
	if err != nil {
		return nil, err
	} else if !updated {
		return nil, huma.Error404NotFound("contact not found")
	}
	return &ContactOutput{Body: toModel(c)}, nil
}

func (h *api) del(ctx context.Context, input *contactNameInput) (*struct{}, error) {
	deleted, err := h.store.Delete(ctx, input.Name)
	if err != nil {
		return nil, err
	} else if !deleted {
		return nil, huma.Error404NotFound("contact not found")
	}
	return nil, nil //nolint:nilnil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// validationError maps field errors to 409 for a taken name and 422 otherwise,
// anything else is passed on as internal error.
func validationError(err error) error {
	fields := validate.Fields(err)
	if len(fields) == 0 {
		return err
	}

	details := make([]error, 0, len(fields))
	for _, f := range fields {
		details = append(details, &huma.ErrorDetail{
			Message:  f.Message,
			Location: "body." + f.Field,
			Value:    f.Value,
		})
	}
	if errors.Is(err, validate.ErrDuplicate) {
		return huma.Error409Conflict("contact name already taken", details...)
	}
	return huma.Error422UnprocessableEntity("validation failed", details...)
}

// withErrorLog logs errors returned by an operation
func withErrorLog[I, O any](l *zap.Logger, fn handlerFunc[I, O]) handlerFunc[I, O] {
	return func(ctx context.Context, i *I) (*O, error) {
		o, err := fn(ctx, i)
		if err == nil {
			return o, nil
		}
		var statusErr huma.StatusError
		if errors.As(err, &statusErr) && statusErr.GetStatus() < http.StatusInternalServerError {
			l.Info("request rejected", zap.Int("status", statusErr.GetStatus()), zap.Error(err))
		} else {
			l.Error("request failed", zap.Error(err))
		}
		return o, err
	}
}

func opID(id string) func(*huma.Operation) {
	return func(o *huma.Operation) { o.OperationID = id }
}

func opErrors(codes ...int) func(*huma.Operation) {
	return func(o *huma.Operation) { o.Errors = codes }
}

func meterRequests(ctx huma.Context, next func(huma.Context)) {
	op, start := ctx.Operation(), time.Now()
	next(ctx)

	result := "success"
	if ctx.Status() >= http.StatusInternalServerError {
		result = "error"
	}
	metrics.ServiceRequestCounter.WithLabelValues(op.OperationID, result, sourceAPI).Inc()
	metrics.ServiceRequestDuration.WithLabelValues(op.OperationID, result, sourceAPI).Observe(time.Since(start).Seconds())
}

func toModel(c contact.Contact) ContactModel {
	return ContactModel{
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
	}
}

func fromModel(m ContactModel) contact.Contact {
	return contact.New(m.Name, m.Email, m.Phone)
}
