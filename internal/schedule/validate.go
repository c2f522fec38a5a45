package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/flatrota/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("period_unit", func(fl validator.FieldLevel) bool {
		return model.PeriodUnit(fl.Field().String()).Valid()
	}); err != nil {
		panic(fmt.Sprintf("register period_unit validator: %v", err))
	}
	v.RegisterStructValidation(validateTaskRules, model.Task{})
	return v
}

// validateTaskRules bounds the period length, requires the creator to be
// part of the rotation and each member to appear once.
func validateTaskRules(sl validator.StructLevel) {
	t := sl.Current().Interface().(model.Task)
	if t.PeriodUnit.Valid() && periodTooLong(t.PeriodUnit, t.PeriodValue) {
		sl.ReportError(t.PeriodValue, "PeriodValue", "period_value", "max_period_days", "")
	}
	if len(t.Members) == 0 {
		return
	}
	if !t.HasMember(t.CreatedBy.ID) {
		sl.ReportError(t.Members, "Members", "members", "includes_creator", "")
	}
	seen := make(map[int64]struct{}, len(t.Members))
	for _, m := range t.Members {
		if _, dup := seen[m.ID]; dup {
			sl.ReportError(t.Members, "Members", "members", "unique", "")
			return
		}
		seen[m.ID] = struct{}{}
	}
}

// ValidateTask checks task's schedule parameters. Failures wrap
// ErrInvalidConfiguration.
func ValidateTask(task model.Task) error {
	if err := validate.Struct(task); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidConfiguration, describe(verrs))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if !Day(task.EndDate).After(Day(task.StartDate)) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidConfiguration)
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
