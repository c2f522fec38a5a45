package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/flatrota/internal/model"
)

func TestValidateTask(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.Task)
		wantErr bool
	}{
		{"valid", func(*model.Task) {}, false},
		{"missing name", func(t *model.Task) { t.Name = "" }, true},
		{"empty members", func(t *model.Task) { t.Members = nil }, true},
		{"creator not a member", func(t *model.Task) { t.Members = []model.Member{bob, carol} }, true},
		{"duplicate member", func(t *model.Task) { t.Members = []model.Member{alice, bob, alice} }, true},
		{"zero period value", func(t *model.Task) { t.PeriodValue = 0 }, true},
		{"huge period value", func(t *model.Task) { t.PeriodValue = 1 << 50 }, true},
		{"weekly period over ten years", func(t *model.Task) { t.PeriodValue = 523 }, true},
		{"monthly period over ten years", func(t *model.Task) { t.PeriodUnit = model.UnitMonth; t.PeriodValue = 119 }, true},
		{"longest daily period", func(t *model.Task) { t.PeriodUnit = model.UnitDay; t.PeriodValue = 3660 }, false},
		{"unknown unit", func(t *model.Task) { t.PeriodUnit = "year" }, true},
		{"end equals start", func(t *model.Task) { t.EndDate = t.StartDate }, true},
		{"end before start", func(t *model.Task) { t.EndDate = d(2023, 12, 1) }, true},
		{"end same day later hour", func(t *model.Task) { t.EndDate = t.StartDate.Add(5 * time.Hour) }, true},
		{"monthly", func(t *model.Task) { t.PeriodUnit = model.UnitMonth; t.PeriodValue = 2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := weeklyTask()
			tt.mutate(&task)
			err := ValidateTask(task)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfiguration) {
					t.Errorf("err = %v, want ErrInvalidConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
