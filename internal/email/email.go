// Package email sends transactional mail for festival notifications.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/manifest-festivals/manifest/internal/config"
	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/notification"

	"github.com/domodwyer/mailyak/v3"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		auth: auth,
		from: cfg.SMTPFrom,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mail := mailyak.New(s.addr, s.auth)
	mail.To(to)
	mail.From(s.from)
	mail.FromName("Manifest Festivals")
	mail.Subject(subject)
	mail.Plain().Set(body)

	if err := mail.Send(); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// Compose renders the subject and plain-text body for a notification.
func Compose(n notification.FestivalNotification) (subject, body string) {
	if n.NotificationType == notification.Updated {
		subject = "Festival updated: " + n.Title
	} else {
		subject = "New festival: " + n.Title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", n.Title)
	fmt.Fprintf(&b, "Dates: %s - %s\n", n.StartDate.Format("02.01.2006"), n.EndDate.Format("02.01.2006"))
	fmt.Fprintf(&b, "Price: %s KM\n", n.BasePrice.StringFixed(2))
	where := n.CityName
	if n.Location != "" {
		where = n.Location + ", " + n.CityName
	}
	fmt.Fprintf(&b, "Location: %s\n", where)
	fmt.Fprintf(&b, "Category: %s\n", n.SubcategoryName)
	fmt.Fprintf(&b, "Organizer: %s\n", n.OrganizerName)
	return subject, b.String()
}

// Notifier fans a notification out as one email per recipient. A failed
// recipient does not stop the others.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) Handle(ctx context.Context, msg notification.FestivalNotification) error {
	log := logging.With("subscriber")
	subject, body := Compose(msg)

	failed := 0
	for _, to := range msg.UserEmails {
		if err := n.sender.Send(ctx, to, subject, body); err != nil {
			failed++
			log.Warn().Err(err).Uint("festival_id", msg.FestivalID).Msg("failed to send notification email")
		}
	}
	log.Info().
		Uint("festival_id", msg.FestivalID).
		Int("sent", len(msg.UserEmails)-failed).
		Int("failed", failed).
		Msg("festival notification processed")
	return nil
}
