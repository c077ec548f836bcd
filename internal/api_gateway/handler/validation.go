package handler

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/shopspring/decimal"
)

var registerOnce sync.Once

// RegisterValidations teaches gin's validator about decimal amounts.
// Decimals are validated through their string form and must fit the stored scale.
func RegisterValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation("nonneg_decimal", decimalSign(false))
		_ = v.RegisterValidation("pos_decimal", decimalSign(true))
	})
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func decimalSign(strict bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		d, err := decimal.NewFromString(s)
		if err != nil || !order.FitsScale(d) {
			return false
		}
		if strict {
			return d.IsPositive()
		}
		return !d.IsNegative()
	}
}
