package domain

import (
	"regexp"

	"github.com/quickplate/storefront/pkg/validator"
)

// Delivery method constants.
const (
	DeliveryMethodDelivery = "delivery"
	DeliveryMethodPickup   = "pickup"
)

// ShippingInfo holds the checkout contact and delivery details. It is
// validated as a single unit before the checkout may advance to payment;
// there is no field-by-field validation scattered across handlers.
type ShippingInfo struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Address        string `json:"address" validate:"required"`
	City           string `json:"city" validate:"required"`
	PostalCode     string `json:"postal_code" validate:"required"`
	DeliveryMethod string `json:"delivery_method" validate:"required,oneof=delivery pickup"`
	DeliveryTime   string `json:"delivery_time" validate:"required"`
}

// Validate checks all fields as a unit and returns per-field error messages,
// or nil when the form is valid. The postal code format is regional and
// supplied by configuration.
func (s ShippingInfo) Validate(postalFormat *regexp.Regexp) map[string]string {
	fields := map[string]string{}

	if err := validator.Validate(s); err != nil {
		if valErr, ok := err.(*validator.ValidationError); ok {
			for _, fe := range valErr.Errors {
				fields[jsonField(fe.Field())] = fieldMessage(fe.Field(), fe.Tag())
			}
		} else {
			fields["form"] = err.Error()
		}
	}

	if _, seen := fields["postal_code"]; !seen && postalFormat != nil && !postalFormat.MatchString(s.PostalCode) {
		fields["postal_code"] = "must match the regional postal code format"
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// jsonField maps struct field names to their JSON names so validation errors
// line up with what the frontend submitted.
func jsonField(field string) string {
	switch field {
	case "Name":
		return "name"
	case "Email":
		return "email"
	case "Address":
		return "address"
	case "City":
		return "city"
	case "PostalCode":
		return "postal_code"
	case "DeliveryMethod":
		return "delivery_method"
	case "DeliveryTime":
		return "delivery_time"
	default:
		return field
	}
}

func fieldMessage(field, tag string) string {
	switch {
	case tag == "required" && field == "DeliveryMethod":
		return "a delivery method must be selected"
	case tag == "required" && field == "DeliveryTime":
		return "a delivery time slot must be selected"
	case tag == "required":
		return "is required"
	case tag == "email":
		return "must be a valid email address"
	case tag == "oneof":
		return "must be either delivery or pickup"
	default:
		return "is invalid"
	}
}
