package notifier

import (
	"context"
	"errors"
	"fmt"

	"storefront/config"
	"storefront/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// SESNotifier sends email through Amazon SES
type SESNotifier struct {
	client *ses.Client
	sender string
	logger *zap.Logger
}

// NewSESNotifier builds an SES client. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func NewSESNotifier(ctx context.Context, cfg config.EmailConfig) (*SESNotifier, error) {
	if cfg.SenderEmail == "" {
		return nil, errors.New("sender email address is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	return &SESNotifier{
		client: ses.NewFromConfig(awsCfg),
		sender: cfg.SenderEmail,
		logger: util.GetLogger(),
	}, nil
}

func (n *SESNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("recipient email address is empty")
	}

	input := &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Html: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(msg.HTMLBody)},
				Text: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(msg.TextBody)},
			},
		},
	}

	out, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("Email sent",
		zap.String("to", msg.To),
		zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
