package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/class-timetable/internal/application"
	"github.com/example/class-timetable/internal/scheduler"
)

// maxBodyBytes caps request bodies. Series requests are the largest payloads.
const maxBodyBytes = 64 << 10

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("civildate", isCivilDate)
	_ = validate.RegisterValidation("timeofday", isTimeOfDay)
	_ = validate.RegisterValidation("weekday", isWeekday)
	return validate
}

func isCivilDate(fl validator.FieldLevel) bool {
	_, err := scheduler.ParseDate(fl.Field().String())
	return err == nil
}

func isTimeOfDay(fl validator.FieldLevel) bool {
	_, err := scheduler.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func isWeekday(fl validator.FieldLevel) bool {
	_, ok := weekdayNames[strings.ToLower(strings.TrimSpace(fl.Field().String()))]
	return ok
}

// decodeAndValidate reads a JSON body into dst and runs struct validation. Malformed
// JSON yields errBadRequestBody; rule failures yield an *application.ValidationError.
func decodeAndValidate(r *http.Request, validate *validator.Validate, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return errBadRequestBody
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return toValidationError(fieldErrs)
		}
		return err
	}
	return nil
}

func toValidationError(fieldErrs validator.ValidationErrors) *application.ValidationError {
	vErr := &application.ValidationError{}
	for _, fe := range fieldErrs {
		code := application.ViolationInvalidInput
		if fe.Tag() == "required" {
			code = scheduler.ViolationRequired
		}
		vErr.Violations = append(vErr.Violations, scheduler.Violation{
			Code:    code,
			Field:   fe.Field(),
			Message: describeFieldError(fe),
		})
	}
	return vErr
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "civildate":
		return fe.Field() + " must be a date in YYYY-MM-DD form"
	case "timeofday":
		return fe.Field() + " must be a time in HH:MM form"
	case "weekday":
		return fe.Field() + " must be a weekday name"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// invalidField reports a single unparsable field in the same shape as rule failures.
func invalidField(field string, err error) *application.ValidationError {
	return &application.ValidationError{Violations: []scheduler.Violation{{
		Code:    application.ViolationInvalidInput,
		Field:   field,
		Message: fmt.Sprintf("%s: %v", field, err),
	}}}
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, invalidField("weekdays", fmt.Errorf("unknown weekday %q", name))
		}
		days = append(days, day)
	}
	return days, nil
}
