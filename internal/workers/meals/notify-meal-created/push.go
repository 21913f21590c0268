// internal/workers/meals/notify-meal-created/push.go
package notifymealcreated

import (
	"context"
	"encoding/json"
	"fmt"

	awspkg "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"mealbell/internal/models"
)

// clickAction is the click-action metadata the mobile clients listen for.
const clickAction = "FLUTTER_NOTIFICATION_CLICK"

// PushSender delivers one addressed notification. Implementations own any
// per-send timeout or retry policy; the pipeline records the outcome and
// moves on.
type PushSender interface {
	Send(ctx context.Context, pn *models.PushNotification) error
}

// SNSService abstracts the SNS publish call for mocking.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPushSender publishes mobile push notifications through SNS platform
// endpoints. The recipient's token is the endpoint ARN.
type SNSPushSender struct {
	sns SNSService
}

func NewSNSPushSender(client SNSService) *SNSPushSender {
	return &SNSPushSender{sns: client}
}

type gcmNotification struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	ClickAction string `json:"click_action"`
}

type gcmPayload struct {
	Notification gcmNotification   `json:"notification"`
	Data         map[string]string `json:"data"`
}

type apnsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type apnsAps struct {
	Alert    apnsAlert `json:"alert"`
	Category string    `json:"category"`
}

type apnsPayload struct {
	Aps  apnsAps           `json:"aps"`
	Data map[string]string `json:"data"`
}

func (s *SNSPushSender) Send(ctx context.Context, pn *models.PushNotification) error {
	message, err := buildPlatformMessage(pn)
	if err != nil {
		return fmt.Errorf("build push message: %w", err)
	}

	_, err = s.sns.Publish(ctx, &sns.PublishInput{
		TargetArn:        awspkg.String(pn.Token),
		Message:          awspkg.String(message),
		MessageStructure: awspkg.String("json"),
	})
	return err
}

// buildPlatformMessage wraps the notification in the SNS multi-platform
// envelope. Platform payloads are JSON-encoded strings per the SNS contract.
func buildPlatformMessage(pn *models.PushNotification) (string, error) {
	gcm, err := json.Marshal(gcmPayload{
		Notification: gcmNotification{
			Title:       pn.Title,
			Body:        pn.Body,
			ClickAction: clickAction,
		},
		Data: pn.Data,
	})
	if err != nil {
		return "", err
	}

	apns, err := json.Marshal(apnsPayload{
		Aps: apnsAps{
			Alert:    apnsAlert{Title: pn.Title, Body: pn.Body},
			Category: clickAction,
		},
		Data: pn.Data,
	})
	if err != nil {
		return "", err
	}

	envelope, err := json.Marshal(map[string]string{
		"default": pn.Body,
		"GCM":     string(gcm),
		"APNS":    string(apns),
	})
	if err != nil {
		return "", err
	}
	return string(envelope), nil
}
