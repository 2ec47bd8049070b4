package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
)

// sesAPI is the subset of *sesv2.Client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends through Amazon SES.
type SESMailer struct {
	client    sesAPI
	fromEmail string
	fromName  string
	logger    zerolog.Logger
}

// NewSESMailer loads the default AWS credential chain for region.
func NewSESMailer(ctx context.Context, region, fromEmail, fromName string, logger zerolog.Logger) (*SESMailer, error) {
	if fromEmail == "" {
		return nil, fmt.Errorf("ses mailer needs a sender address")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return newSESMailer(sesv2.NewFromConfig(cfg), fromEmail, fromName, logger), nil
}

func newSESMailer(client sesAPI, fromEmail, fromName string, logger zerolog.Logger) *SESMailer {
	return &SESMailer{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		logger:    logger.With().Str("component", "email").Str("transport", "ses").Logger(),
	}
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	from := m.fromEmail
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(msg.Text),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	event := m.logger.Info().Str("to", msg.To)
	if out != nil && out.MessageId != nil {
		event = event.Str("message_id", *out.MessageId)
	}
	event.Msg("email sent")
	return nil
}
