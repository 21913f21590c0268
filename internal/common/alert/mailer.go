// internal/common/alert/mailer.go
package alert

import (
	"context"

	awspkg "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"mealbell/internal/common/logger"
)

// EmailService abstracts the SES call for mocking.
type EmailService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Mailer sends operator alert email for whole-invocation failures.
type Mailer struct {
	ses    EmailService
	from   string
	to     string
	logger logger.Logger
}

func NewMailer(sesClient EmailService, from, to string, log logger.Logger) *Mailer {
	return &Mailer{
		ses:    sesClient,
		from:   from,
		to:     to,
		logger: log.WithFields(map[string]interface{}{"component": "alert-mailer"}),
	}
}

// SendAlert emails one alert to the configured operator address.
func (m *Mailer) SendAlert(ctx context.Context, subject, body string) error {
	_, err := m.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{m.to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: awspkg.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: awspkg.String(body)},
			},
		},
		Source: awspkg.String(m.from),
	})
	if err != nil {
		return err
	}
	m.logger.Info("operator alert sent", map[string]interface{}{"subject": subject})
	return nil
}
