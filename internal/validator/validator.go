// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"stashsmart/internal/models"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on an arbitrary validator instance.
func RegisterOn(v *validator.Validate) {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	_ = v.RegisterValidation("iso4217", validateISO4217)
	_ = v.RegisterValidation("hex_color", validateHexColor)
	_ = v.RegisterValidation("transaction_type", oneOf(
		models.TransactionTypeIncome, models.TransactionTypeExpense, models.TransactionTypeTransfer))
	_ = v.RegisterValidation("category_type", oneOf(
		models.CategoryTypeIncome, models.CategoryTypeExpense))
	_ = v.RegisterValidation("account_type", oneOf(
		models.AccountTypeChecking, models.AccountTypeSavings, models.AccountTypeCreditCard,
		models.AccountTypeCash, models.AccountTypeInvestment))
	_ = v.RegisterValidation("budget_period", oneOf(
		models.BudgetPeriodWeekly, models.BudgetPeriodMonthly, models.BudgetPeriodYearly))
	_ = v.RegisterValidation("payment_method", oneOf(
		models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodBankTransfer,
		models.PaymentMethodDigitalWallet, models.PaymentMethodCheck, models.PaymentMethodOther))
	_ = v.RegisterValidation("goal_priority", oneOf(
		models.GoalPriorityLow, models.GoalPriorityMedium, models.GoalPriorityHigh))
	_ = v.RegisterValidation("goal_status", oneOf(
		models.GoalStatusActive, models.GoalStatusCompleted, models.GoalStatusPaused, models.GoalStatusCancelled))
}

// decimalValue lets numeric tags such as gt=0 apply to decimal amounts.
func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

func validateISO4217(fl validator.FieldLevel) bool {
	_, err := currency.ParseISO(fl.Field().String())
	return err == nil
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func oneOf[T ~string](allowed ...T) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if string(a) == value {
				return true
			}
		}
		return false
	}
}
