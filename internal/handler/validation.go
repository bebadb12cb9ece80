package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/honeynil/VitabuPayments/internal/models"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
)

const maxBodyBytes = 1 << 20

func newValidator() *validator.Validate {
	v := validator.New()
	// Местный формат номера: 07xxxxxxxx или 06xxxxxxxx.
	_ = v.RegisterValidation("tzphone", func(fl validator.FieldLevel) bool {
		return models.ValidLocalPhone(fl.Field().String())
	})
	return v
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted when allowEmpty is set.
func (h *Handler) decode(r *http.Request, dst any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrInvalidInput, err)
	}
	return h.check(dst)
}

func (h *Handler) check(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", pkgerrors.ErrInvalidInput, err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "tzphone":
		return pkgerrors.ErrInvalidPhone
	}
	if fe.Field() == "Name" {
		return pkgerrors.ErrInvalidName
	}
	return fmt.Errorf("%w: %s failed %s", pkgerrors.ErrInvalidInput, fe.Field(), fe.Tag())
}
