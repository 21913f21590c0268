// internal/workers/meals/notify-meal-created/composer.go
package notifymealcreated

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	errs "mealbell/internal/common/errors"
	"mealbell/internal/models"
)

const notificationTitle = "🍽️  New Meal Planned!"

// payloadTemplate is the recipient-agnostic notification content derived from
// one MealEvent. Every recipient of the same event gets identical content;
// only the destination token differs.
type payloadTemplate struct {
	Title string
	Body  string
	Data  map[string]string
}

// composeTemplate builds the template from validated meal attributes. An
// empty meal type is rejected before formatting: capitalizing an empty
// string is undefined.
func composeTemplate(event *MealEvent) (*payloadTemplate, error) {
	if event.MealType == "" {
		return nil, errs.NewInvalidMealEventError("type is empty, cannot compose notification body")
	}

	return &payloadTemplate{
		Title: notificationTitle,
		Body:  fmt.Sprintf("%s at %s. Will you join?", capitalize(event.MealType), event.MealTime),
		Data: map[string]string{
			"mealId":   event.MealID,
			"type":     event.MealType,
			"mealTime": event.MealTime,
		},
	}, nil
}

// forRecipient addresses the template to one device token.
func (t *payloadTemplate) forRecipient(token string) *models.PushNotification {
	return &models.PushNotification{
		Title: t.Title,
		Body:  t.Body,
		Data:  t.Data,
		Token: token,
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
