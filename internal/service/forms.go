package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"storefront/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs struct tag validation and returns field messages, or nil
func validateStruct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"__all__": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "oneof":
		return "Select a valid choice."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	}
	return "Enter a valid value."
}

// CheckoutForm is the shipping and payment submission
type CheckoutForm struct {
	ShippingAddress string               `json:"shipping_address" form:"shipping_address" validate:"required,max=1000"`
	PaymentMethod   models.PaymentMethod `json:"payment_method" form:"payment_method" validate:"required,oneof=mobile_money credit_card debit_card cash_on_delivery"`
	CardNumber      string               `json:"card_number" form:"card_number" validate:"max=19"`
	CardExpiry      string               `json:"card_expiry" form:"card_expiry" validate:"max=5"`
	CardCVV         string               `json:"card_cvv" form:"card_cvv" validate:"max=4"`
}

// Validate trims the form and checks it. Card fields are only required for
// card payment methods.
func (f *CheckoutForm) Validate() error {
	f.ShippingAddress = strings.TrimSpace(f.ShippingAddress)
	f.PaymentMethod = models.PaymentMethod(strings.TrimSpace(string(f.PaymentMethod)))
	f.CardNumber = strings.TrimSpace(f.CardNumber)
	f.CardExpiry = strings.TrimSpace(f.CardExpiry)
	f.CardCVV = strings.TrimSpace(f.CardCVV)

	fields := validateStruct(f)
	if fields == nil {
		fields = map[string]string{}
	}

	if f.PaymentMethod.RequiresCard() {
		if f.CardNumber == "" {
			fields["card_number"] = "Card number is required for card payments."
		}
		if f.CardExpiry == "" {
			fields["card_expiry"] = "Expiry date is required for card payments."
		}
		if f.CardCVV == "" {
			fields["card_cvv"] = "CVV is required for card payments."
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CategoryInput is the admin category form
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

func (in *CategoryInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if fields := validateStruct(in); fields != nil {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ProductInput is the admin product form
type ProductInput struct {
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"-"`
	Stock       int             `json:"stock" validate:"gte=0,lte=2147483647"`
}

// maxPrice is the first value that no longer fits NUMERIC(10, 2)
var maxPrice = decimal.New(1, 8)

func (in *ProductInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)

	fields := validateStruct(in)
	if fields == nil {
		fields = map[string]string{}
	}
	if in.Price.IsNegative() {
		fields["price"] = "Ensure this value is greater than or equal to 0."
	}
	if in.Price.Exponent() < -2 && !in.Price.Equal(in.Price.Round(2)) {
		fields["price"] = "Ensure that there are no more than 2 decimal places."
	}
	if in.Price.GreaterThanOrEqual(maxPrice) {
		fields["price"] = "Ensure that there are no more than 10 digits in total."
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// MaxCartItemQuantity bounds a single cart line
const MaxCartItemQuantity = 1000

type cartQuantity struct {
	Quantity int `json:"quantity" validate:"lte=1000"`
}
