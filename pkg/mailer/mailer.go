package mailer

import (
	"context"
	"fmt"

	"loyly/pkg/logger"

	"github.com/wneessen/go-mail"
)

// TemplateKind selects which message body gets rendered.
type TemplateKind string

const (
	TemplateInviteSent        TemplateKind = "invite-sent"
	TemplateInviteAccepted    TemplateKind = "invite-accepted"
	TemplateInviteWithdrawn   TemplateKind = "invite-withdrawn"
	TemplateWaitlistAvailable TemplateKind = "waitlist-available"
	TemplateBookingReminder   TemplateKind = "booking-reminder"
)

// Mailer is the notification dispatch contract. Delivery is best effort:
// callers log failures but do not roll back state changes that already
// happened.
type Mailer interface {
	Send(ctx context.Context, recipient string, kind TemplateKind, data map[string]string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type smtpMailer struct {
	cfg Config
	log *logger.Logger
}

func NewSMTPMailer(cfg Config, log *logger.Logger) Mailer {
	return &smtpMailer{cfg: cfg, log: log}
}

func (m *smtpMailer) Send(ctx context.Context, recipient string, kind TemplateKind, data map[string]string) error {
	subject, body, err := render(kind, data)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(
		m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize smtp client: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %s mail: %w", kind, err)
	}

	m.log.Info("Mail sent", "kind", kind, "recipient", recipient)
	return nil
}

func render(kind TemplateKind, data map[string]string) (string, string, error) {
	switch kind {
	case TemplateInviteSent:
		return fmt.Sprintf("You have been invited to %s", data["sauna_name"]),
			fmt.Sprintf("%s invited you to book sessions at %s. The invite expires on %s.",
				data["inviter_name"], data["sauna_name"], data["expires_at"]),
			nil
	case TemplateInviteAccepted:
		return fmt.Sprintf("Welcome to %s", data["sauna_name"]),
			fmt.Sprintf("Your invite to %s has been accepted. You can now book sessions.",
				data["sauna_name"]),
			nil
	case TemplateInviteWithdrawn:
		return fmt.Sprintf("Invite to %s withdrawn", data["sauna_name"]),
			fmt.Sprintf("The administrator of %s has withdrawn your invite.", data["sauna_name"]),
			nil
	case TemplateWaitlistAvailable:
		return fmt.Sprintf("A slot opened up at %s", data["sauna_name"]),
			fmt.Sprintf("The %s slot at %s is now free. Book it before someone else does.",
				data["slot_time"], data["sauna_name"]),
			nil
	case TemplateBookingReminder:
		return fmt.Sprintf("Your sauna session at %s starts soon", data["sauna_name"]),
			fmt.Sprintf("Reminder: your session at %s starts at %s.",
				data["sauna_name"], data["start_time"]),
			nil
	default:
		return "", "", fmt.Errorf("unknown mail template: %s", kind)
	}
}
