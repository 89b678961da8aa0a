package validate

import (
	"context"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/foomo/contactserver/contact"
	"github.com/foomo/contactserver/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	FieldName  = "name"
	FieldEmail = "email"
	FieldPhone = "phone"
)

var (
	// ErrInvalid a field value is malformed
	ErrInvalid = errors.New("invalid value")
	// ErrDuplicate the name is already taken by another contact
	ErrDuplicate = errors.New("duplicate name")

	// indonesian mobile numbers: country code or trunk prefix, operator prefix, subscriber number
	mobilePhoneID = regexp.MustCompile(`^(\+?62|0)8(1[1-9]|2[1238]|3[1238]|5[1-35-9]|7[78]|9[5-9]|8[1-9])[\s\d]{5,11}$`)
)

// Lookup is the part of the store the duplicate check needs
type Lookup interface {
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// FieldError a rejected form value with a message for humans
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
	kind    error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return e.kind
}

// Add validates a contact about to be created. Field problems are combined
// into one error, see Fields. Any other error comes from the lookup.
func Add(ctx context.Context, lookup Lookup, c contact.Contact) error {
	err := checkName(c.Name)
	if err == nil {
		exists, lookupErr := lookup.ExistsByName(ctx, c.Name)
		if lookupErr != nil {
			return lookupErr
		}
		if exists {
			err = duplicate(c.Name, "Nama contact sudah tersedia, harap gunakan nama lain!")
		}
	}
	return multierr.Combine(err, checkEmail(c.Email, "Alamat email tidak valid!"), checkPhone(c.Phone, "Nomor telepon tidak valid!"))
}

// Update validates the new state of the contact currently named oldName.
// Keeping the name is not a duplicate.
func Update(ctx context.Context, lookup Lookup, oldName string, c contact.Contact) error {
	err := checkName(c.Name)
	if err == nil && strings.TrimSpace(c.Name) != strings.TrimSpace(oldName) {
		exists, lookupErr := lookup.ExistsByName(ctx, c.Name)
		if lookupErr != nil {
			return lookupErr
		}
		if exists {
			err = duplicate(c.Name, "Nama contact sudah tersedia")
		}
	}
	return multierr.Combine(err, checkEmail(c.Email, "Alamat email tidak valid"), checkPhone(c.Phone, "Nomor telepon tidak valid"))
}

// Fields extracts the field errors out of err, nil if there are none
func Fields(err error) []*FieldError {
	var ret []*FieldError
	for _, e := range multierr.Errors(err) {
		var fe *FieldError
		if errors.As(e, &fe) {
			ret = append(ret, fe)
		}
	}
	return ret
}

// IsEmail reports whether v is a plain address without display name whose
// domain ends in a top level domain
func IsEmail(v string) bool {
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return false
	}
	at := strings.LastIndex(v, "@")
	return hasTLD(v[at+1:])
}

// IsMobilePhone reports whether v is an indonesian mobile number
func IsMobilePhone(v string) bool {
	return mobilePhoneID.MatchString(v)
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// hasTLD requires at least two labels, the last one of two or more letters
func hasTLD(domain string) bool {
	labels := strings.Split(domain, ".")
	if len(labels) < 2 || slices.Contains(labels, "") {
		return false
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func checkName(v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid(FieldName, v, "Nama contact tidak boleh kosong")
	}
	return nil
}

func checkEmail(v, msg string) error {
	if !IsEmail(v) {
		return invalid(FieldEmail, v, msg)
	}
	return nil
}

func checkPhone(v, msg string) error {
	if !IsMobilePhone(v) {
		return invalid(FieldPhone, v, msg)
	}
	return nil
}

func invalid(field, value, msg string) error {
	metrics.ValidationFailedCounter.WithLabelValues(field).Inc()
	return &FieldError{Field: field, Value: value, Message: msg, kind: ErrInvalid}
}

func duplicate(value, msg string) error {
	metrics.ValidationFailedCounter.WithLabelValues(FieldName).Inc()
	return &FieldError{Field: FieldName, Value: value, Message: msg, kind: ErrDuplicate}
}
