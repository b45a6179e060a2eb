// internal/notify/sms.go
package notify

import (
	"context"

	cerrors "citizen-services/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SMSSender delivers one rendered message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSMSSender sends via Amazon SNS direct publish.
type SNSSMSSender struct {
	client   snsAPI
	senderID string
}

func NewSNSSMSSender(ctx context.Context, region, senderID string) (*SNSSMSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSSMSSender{
		client:   sns.NewFromConfig(awsCfg),
		senderID: senderID,
	}, nil
}

func (s *SNSSMSSender) SendSMS(ctx context.Context, to, message string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	if err != nil {
		return cerrors.NewNotificationSendFailed("sms", err)
	}
	return nil
}
