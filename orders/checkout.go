// Package orders runs checkout: the three-step wizard, order submission
// with its best-effort side effects, and the back-office order operations.
package orders

import (
	"regexp"
	"strings"

	"nongxian/apperr"
	"nongxian/models"
	"nongxian/utils"
)

// Step is a wizard step.
type Step string

const (
	StepShipping     Step = "shipping"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

var phonePattern = regexp.MustCompile(`^09\d{8}$`)

// ShippingForm is the first wizard step.
type ShippingForm struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	City           string `json:"city"`
	District       string `json:"district"`
	ZipCode        string `json:"zipCode"`
	Address        string `json:"address"`
	DeliveryMethod string `json:"deliveryMethod"`
	Notes          string `json:"notes"`
}

func (f ShippingForm) trimmed() ShippingForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.ReplaceAll(strings.TrimSpace(f.Phone), "-", "")
	f.City = strings.TrimSpace(f.City)
	f.District = strings.TrimSpace(f.District)
	f.ZipCode = strings.TrimSpace(f.ZipCode)
	f.Address = strings.TrimSpace(f.Address)
	f.Notes = strings.TrimSpace(f.Notes)
	return f
}

// Address converts the form into the stored shipping address.
func (f ShippingForm) ShippingAddress() models.ShippingAddress {
	return models.ShippingAddress{
		Recipient: f.Name,
		Phone:     f.Phone,
		City:      f.City,
		District:  f.District,
		ZipCode:   f.ZipCode,
		Address:   f.Address,
	}
}

// PaymentForm is the second wizard step.
type PaymentForm struct {
	PaymentMethod string `json:"paymentMethod"`
}

// FieldErrors maps form fields to messages.
type FieldErrors map[string]string

// ValidateShipping checks the shipping form. deliveryMethods are the ids a
// shopper may choose.
func ValidateShipping(f ShippingForm, deliveryMethods []string) FieldErrors {
	f = f.trimmed()
	errs := FieldErrors{}
	if f.Name == "" {
		errs["name"] = "請輸入收件人姓名"
	}
	if !phonePattern.MatchString(f.Phone) {
		errs["phone"] = "請輸入正確的手機號碼（09 開頭共 10 碼）"
	}
	if !utils.IsValidEmail(f.Email) {
		errs["email"] = "請輸入正確的電子郵件"
	}
	if f.City == "" {
		errs["city"] = "請選擇縣市"
	}
	if f.Address == "" {
		errs["address"] = "請輸入收件地址"
	}
	if !contains(deliveryMethods, f.DeliveryMethod) {
		errs["deliveryMethod"] = "請選擇配送方式"
	}
	return errs
}

// ValidatePayment checks the payment form against the enabled method ids.
func ValidatePayment(f PaymentForm, paymentMethods []string) FieldErrors {
	errs := FieldErrors{}
	if !contains(paymentMethods, f.PaymentMethod) {
		errs["paymentMethod"] = "請選擇付款方式"
	}
	return errs
}

// fieldOrder fixes which message is reported first.
var fieldOrder = []string{"name", "phone", "email", "city", "address", "deliveryMethod", "paymentMethod"}

// Err turns field errors into a validation error carrying the first
// message, or nil.
func (e FieldErrors) Err() error {
	for _, k := range fieldOrder {
		if msg, ok := e[k]; ok {
			return apperr.ValidationError(msg)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v && v != "" {
			return true
		}
	}
	return false
}

// Checkout is the wizard state. Going back keeps what was entered.
type Checkout struct {
	step            Step
	shipping        *ShippingForm
	payment         *PaymentForm
	deliveryMethods []string
	paymentMethods  []string
}

// NewCheckout starts a wizard at the shipping step.
func NewCheckout(deliveryMethods, paymentMethods []string) *Checkout {
	return &Checkout{step: StepShipping, deliveryMethods: deliveryMethods, paymentMethods: paymentMethods}
}

func (c *Checkout) Step() Step              { return c.step }
func (c *Checkout) Shipping() *ShippingForm { return c.shipping }
func (c *Checkout) Payment() *PaymentForm   { return c.payment }

// SetShipping validates the form, stores it and advances to payment.
func (c *Checkout) SetShipping(f ShippingForm) error {
	if err := ValidateShipping(f, c.deliveryMethods).Err(); err != nil {
		return err
	}
	f = f.trimmed()
	c.shipping = &f
	if c.step == StepShipping {
		c.step = StepPayment
	}
	return nil
}

// SetPayment requires a completed shipping step.
func (c *Checkout) SetPayment(f PaymentForm) error {
	if c.shipping == nil || c.step == StepShipping {
		return apperr.ValidationError("請先填寫收件資訊")
	}
	if err := ValidatePayment(f, c.paymentMethods).Err(); err != nil {
		return err
	}
	c.payment = &f
	c.step = StepConfirmation
	return nil
}

// Back moves one step back. Entered data is kept.
func (c *Checkout) Back() Step {
	switch c.step {
	case StepConfirmation:
		c.step = StepPayment
	case StepPayment:
		c.step = StepShipping
	}
	return c.step
}

// Ready reports whether the wizard reached confirmation with both forms.
func (c *Checkout) Ready() bool {
	return c.step == StepConfirmation && c.shipping != nil && c.payment != nil
}
