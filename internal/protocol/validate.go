package protocol

import (
	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("roomid", func(fl validator.FieldLevel) bool {
		return domain.ValidRoomID(fl.Field().String())
	})
	return v
}
