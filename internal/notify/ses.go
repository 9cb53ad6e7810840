package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"babytrack-go/internal/config"
	"babytrack-go/internal/domain/invitation"
	"babytrack-go/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES delivers invitation e-mails through Amazon SES.
type SES struct {
	client    emailSender
	fromEmail string
	fromName  string
	log       logger.Logger
}

// NewSES returns nil when no sender address is configured; the invitation
// service then only returns the shareable link.
func NewSES(ctx context.Context, cfg config.EmailConfig, log logger.Logger) (*SES, error) {
	if cfg.FromEmail == "" {
		log.Info("notify: SES_FROM_EMAIL not configured, invitation e-mails disabled")
		return nil, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	log.Info("notify: SES enabled", "from", cfg.FromEmail, "region", awsCfg.Region)
	return newSES(sesv2.NewFromConfig(awsCfg), cfg, log), nil
}

func newSES(client emailSender, cfg config.EmailConfig, log logger.Logger) *SES {
	return &SES{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		log:       log.With("component", "notify"),
	}
}

func (s *SES) SendInvitation(ctx context.Context, msg invitation.Message) error {
	subject := fmt.Sprintf("%s invited you to help track %s", msg.InviterName, msg.BabyName)

	var html bytes.Buffer
	if err := invitationHTML.Execute(&html, msg); err != nil {
		return fmt.Errorf("render invitation: %w", err)
	}
	text := fmt.Sprintf(`Hi,

%s invited you to join %s on BabyTrack as %s.

Accept the invitation:
%s

This link expires on %s.
`, msg.InviterName, msg.BabyName, msg.Role, msg.Link, msg.ExpiresAt.Format("2 January 2006"))

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html.String()), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send invitation to %s: %w", msg.To, err)
	}

	s.log.Info("notify.invitation: sent", "to", msg.To, "message_id", aws.ToString(out.MessageId))
	return nil
}

var invitationHTML = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1>You're invited</h1>
		<p>{{.InviterName}} invited you to join <strong>{{.BabyName}}</strong> on BabyTrack as <strong>{{.Role}}</strong>.</p>
		<p style="text-align: center;">
			<a href="{{.Link}}" style="display: inline-block; padding: 12px 30px; background-color: #4a90e2; color: white; text-decoration: none; border-radius: 5px;">Accept invitation</a>
		</p>
		<p style="word-break: break-all; font-size: 12px; color: #666;">{{.Link}}</p>
		<p>This link expires on {{.ExpiresAt.Format "2 January 2006"}}.</p>
	</div>
</body>
</html>
`))
