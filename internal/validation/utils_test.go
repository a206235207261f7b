package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupRequest struct {
	Name  string `json:"name" validate:"required,max=5"`
	Email string `json:"email" validate:"required,mailshape"`
}

func (r *signupRequest) Validate() error {
	return Validator().Struct(r)
}

type customRequest struct {
	Phone string `json:"phone"`
}

func (r *customRequest) Validate() error {
	if !Check(r.Phone, "omitempty,number") {
		return CustomValidationErrors{{Field: "phone", Reason: "non-digit", Message: "digits only"}}
	}
	return nil
}

func newContext(body string) echo.Context {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func requireHTTPError(t *testing.T, err error) *errs.HTTPError {
	t.Helper()
	httpErr, ok := err.(*errs.HTTPError)
	require.True(t, ok, "expected *errs.HTTPError, got %T", err)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	return httpErr
}

func TestBindAndValidateWithoutContentType(t *testing.T) {
	var req signupRequest
	require.NoError(t, BindAndValidate(newContext(`{"name":"Ana","email":"a@b.com"}`), &req))
	assert.Equal(t, "Ana", req.Name)
}

func TestBindAndValidateTagErrors(t *testing.T) {
	var req signupRequest
	httpErr := requireHTTPError(t, BindAndValidate(newContext(`{"name":"Anastasia","email":"nope"}`), &req))

	assert.Equal(t, CodeValidationFailed, httpErr.Code)
	assert.Equal(t, "Validation failed", httpErr.Message)
	assert.ElementsMatch(t, []errs.FieldError{
		{Field: "name", Error: "must not exceed 5 characters"},
		{Field: "email", Error: "must be a valid email address"},
	}, httpErr.Errors)
}

func TestBindAndValidateCustomErrors(t *testing.T) {
	var req customRequest
	httpErr := requireHTTPError(t, BindAndValidate(newContext(`{"phone":"+1"}`), &req))

	assert.Equal(t, "digits only", httpErr.Message)
	assert.True(t, httpErr.Override)
	assert.Equal(t, "phone", httpErr.Field())
	assert.Equal(t, "non-digit", httpErr.Errors[0].Error)
}

func TestBindAndValidateEmptyBody(t *testing.T) {
	var req customRequest
	assert.NoError(t, BindAndValidate(newContext(""), &req))

	var signup signupRequest
	httpErr := requireHTTPError(t, BindAndValidate(newContext("  "), &signup))
	assert.Equal(t, CodeValidationFailed, httpErr.Code)
}

func TestBindAndValidateBadBody(t *testing.T) {
	tests := map[string]string{
		"not json":   `{"name":`,
		"array":      `[1,2]`,
		"wrong type": `{"phone":5}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			var req customRequest
			httpErr := requireHTTPError(t, BindAndValidate(newContext(body), &req))
			assert.Equal(t, CodeInvalidRequestBody, httpErr.Code)
		})
	}

	var req customRequest
	httpErr := requireHTTPError(t, BindAndValidate(newContext(`{"phone":5}`), &req))
	assert.Equal(t, "phone", httpErr.Field())
}

func TestIsEmailShape(t *testing.T) {
	assert.True(t, IsEmailShape("a@b.co"))
	assert.True(t, IsEmailShape("a.b+c@d.e.f"))

	for _, s := range []string{"", "a", "a@b", "@b.c", "a@", "a@.b", "a@b.", "a@b@c.d"} {
		assert.False(t, IsEmailShape(s), s)
	}
}

func TestParseISODate(t *testing.T) {
	cases := map[string]time.Time{
		"2025-06-01":                    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		"2025-06-01T08:15":              time.Date(2025, 6, 1, 8, 15, 0, 0, time.UTC),
		"2025-06-01 08:15:30":           time.Date(2025, 6, 1, 8, 15, 30, 0, time.UTC),
		"2025-06-01T08:15:30.5":         time.Date(2025, 6, 1, 8, 15, 30, 500000000, time.UTC),
		"2025-06-01T08:15:30Z":          time.Date(2025, 6, 1, 8, 15, 30, 0, time.UTC),
		"2025-06-01T10:15:30+02:00":     time.Date(2025, 6, 1, 8, 15, 30, 0, time.UTC),
		"2025-06-01 10:15:30.250+02:00": time.Date(2025, 6, 1, 8, 15, 30, 250000000, time.UTC),
	}

	for in, want := range cases {
		got, err := ParseISODate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	for _, in := range []string{"", "tomorrow", "01/06/2025", "2025-02-30"} {
		_, err := ParseISODate(in)
		assert.ErrorIs(t, err, ErrUnparseableDate, in)
	}
}
