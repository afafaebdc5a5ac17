// internal/common/aws/ses.go
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// PitchMailer delivers generated pitch emails through SES.
type PitchMailer struct {
	client *ses.Client
	sender string
}

func NewPitchMailer(ctx context.Context, region, sender string) (*PitchMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &PitchMailer{client: ses.NewFromConfig(cfg), sender: sender}, nil
}

// SendPitch sends one pitch email. Delivery is independent of pitch
// generation; callers decide whether a failure is fatal.
func (m *PitchMailer) SendPitch(ctx context.Context, recipient, subject, body string) error {
	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	return err
}
