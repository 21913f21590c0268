// internal/workers/meals/notify-meal-created/models.go
package notifymealcreated

import (
	"strings"

	errs "mealbell/internal/common/errors"
	"mealbell/internal/models"
)

// MealEvent is the validated trigger of one dispatch invocation. It is
// immutable for the duration of the pipeline.
type MealEvent struct {
	MealID   string `json:"mealId"`
	FamilyID string `json:"familyId"`
	AuthorID string `json:"authorId"`
	MealType string `json:"mealType"`
	MealTime string `json:"mealTime"`
}

// Validate fails fast when any required field is absent, guaranteeing no
// partial side effects for malformed input.
func (e *MealEvent) Validate() error {
	var missing []string
	if e.FamilyID == "" {
		missing = append(missing, "family_id")
	}
	if e.AuthorID == "" {
		missing = append(missing, "created_by")
	}
	if e.MealType == "" {
		missing = append(missing, "type")
	}
	if e.MealTime == "" {
		missing = append(missing, "datetime")
	}
	if len(missing) > 0 {
		return errs.NewInvalidMealEventError("missing fields: " + strings.Join(missing, ", "))
	}
	return nil
}

func eventFromRecord(key string, rec *models.MealRecord) *MealEvent {
	return &MealEvent{
		MealID:   key,
		FamilyID: rec.FamilyID,
		AuthorID: rec.CreatedBy,
		MealType: rec.Type,
		MealTime: rec.Datetime,
	}
}

// Output is the aggregated dispatch report. It is logged and optionally
// indexed, then discarded; nothing in the pipeline persists it.
type Output struct {
	DispatchID  string                  `json:"dispatchId"`
	MealID      string                  `json:"mealId"`
	Results     []models.DispatchResult `json:"results"`
	Sent        int                     `json:"sent"`
	Failed      int                     `json:"failed"`
	Skipped     int                     `json:"skipped"`
	CompletedAt string                  `json:"completedAt"` // ISO 8601
}
