// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// ChurnAlertPublisher publishes high-severity churn risk rows to an SNS
// topic. Publishing is best effort and never affects the originating request.
type ChurnAlertPublisher struct {
	client   *sns.Client
	topicARN string
}

func NewChurnAlertPublisher(ctx context.Context, region, topicARN string) (*ChurnAlertPublisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &ChurnAlertPublisher{client: sns.NewFromConfig(cfg), topicARN: topicARN}, nil
}

// ChurnAlert is the message payload published per high-risk row.
type ChurnAlert struct {
	Account   string  `json:"account"`
	Product   string  `json:"product"`
	Score     float64 `json:"score"`
	Segment   string  `json:"segment,omitempty"`
	Territory string  `json:"territory,omitempty"`
}

func (p *ChurnAlertPublisher) PublishChurnAlert(ctx context.Context, alert ChurnAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String("Churn risk alert"),
		Message:  aws.String(string(body)),
	})
	return err
}
