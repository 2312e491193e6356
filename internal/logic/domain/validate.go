package domain

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateArgs 校验 EventArgs / TicketArgs 的结构体标签，失败时返回 InvalidArgument
func ValidateArgs(op string, args interface{}) error {
	if err := validate.Struct(args); err != nil {
		return NewError(KindInvalidArgument, op, err)
	}
	return nil
}
