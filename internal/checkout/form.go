package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"storefront-checkout/internal/domain"

	"github.com/go-playground/validator/v10"
)

// ShippingData is what the manual shipping form collects.
type ShippingData struct {
	Name       string `form:"name" validate:"required,min=2"`
	Address    string `form:"address" validate:"required,min=5"`
	City       string `form:"city" validate:"required,min=2"`
	PostalCode string `form:"postalCode" validate:"required,postal_code"`
	Phone      string `form:"phone"`
}

// ShippingFromUser copies the profile fields, leaving absent ones empty.
func ShippingFromUser(u domain.User) ShippingData {
	return ShippingData{
		Name:       u.Name,
		Address:    u.Address,
		City:       u.City,
		PostalCode: u.PostalCode,
		Phone:      u.Phone,
	}
}

var postalCodeRE = regexp.MustCompile(`^\d{4,5}$`)

var formFields = []string{"name", "address", "city", "postalCode", "phone"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	if err := v.RegisterValidation("postal_code", func(fl validator.FieldLevel) bool {
		return postalCodeRE.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ShippingForm holds the manual shipping fields and which of them the user has touched.
// A disabled form never reports errors.
type ShippingForm struct {
	mu       sync.Mutex
	data     ShippingData
	touched  map[string]bool
	disabled bool
}

func NewShippingForm(initial ShippingData) *ShippingForm {
	return &ShippingForm{data: initial, touched: make(map[string]bool)}
}

func (f *ShippingForm) Values() ShippingData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

// Set updates a field by its form name and marks it touched.
func (f *ShippingForm) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case "name":
		f.data.Name = value
	case "address":
		f.data.Address = value
	case "city":
		f.data.City = value
	case "postalCode":
		f.data.PostalCode = value
	case "phone":
		f.data.Phone = value
	default:
		return fmt.Errorf("unknown shipping field %q", field)
	}
	f.touched[field] = true
	return nil
}

func (f *ShippingForm) Touch(field string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[field] = true
}

func (f *ShippingForm) TouchAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range formFields {
		f.touched[name] = true
	}
}

func (f *ShippingForm) Touched(field string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched[field]
}

func (f *ShippingForm) Valid() bool {
	return len(f.Errors()) == 0
}

// Errors maps every invalid field to its message, touched or not.
func (f *ShippingForm) Errors() map[string]string {
	f.mu.Lock()
	data, disabled := f.data, f.disabled
	f.mu.Unlock()
	if disabled {
		return nil
	}
	err := validate.Struct(data)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = messageFor(fe)
		}
	}
	return out
}

// HasError reports whether field is invalid and has been touched.
func (f *ShippingForm) HasError(field string) bool {
	if !f.Touched(field) {
		return false
	}
	_, bad := f.Errors()[field]
	return bad
}

func (f *ShippingForm) ErrorMessage(field string) string {
	return f.Errors()[field]
}

// Summary joins every field error into one "field: message" line each, in form order.
func (f *ShippingForm) Summary() string {
	errs := f.Errors()
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	order := make(map[string]int, len(formFields))
	for i, name := range formFields {
		order[name] = i
	}
	sort.Slice(keys, func(i, j int) bool { return order[keys[i]] < order[keys[j]] })

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+errs[k])
	}
	return strings.Join(lines, "\n")
}

func (f *ShippingForm) disable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled = true
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "postal_code":
		return "Must be a valid 4-5 digit postal code"
	default:
		return "Invalid field"
	}
}
