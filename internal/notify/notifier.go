package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DanHalford/HIBP-Breach-Notifier/internal/domain/breach"
	"github.com/DanHalford/HIBP-Breach-Notifier/internal/domain/user"
	"github.com/DanHalford/HIBP-Breach-Notifier/internal/graph"
)

const DefaultSubject = "Your data was found in a breach"

// MailSender dispatches one rendered message. Satisfied by graph.Client.
type MailSender interface {
	SendMail(ctx context.Context, msg graph.Message) error
}

// Notifier renders the notification for one affected user and hands it to the
// mail backend.
type Notifier struct {
	renderer Renderer
	sender   MailSender
	subject  string
	log      *slog.Logger
}

func NewNotifier(renderer Renderer, sender MailSender, log *slog.Logger) *Notifier {
	return &Notifier{
		renderer: renderer,
		sender:   sender,
		subject:  DefaultSubject,
		log:      log,
	}
}

// Notify sends the breach list to the user's mail address. A failure is
// returned to the caller: the breaches are already persisted, but the user was
// not informed and the operator needs to know.
func (n *Notifier) Notify(ctx context.Context, u user.User, breaches []breach.Record) error {
	body, err := n.renderer.Render(u.FirstName(), breaches)
	if err != nil {
		return fmt.Errorf("rendering notification for %s: %w", u.Mail, err)
	}

	msg := graph.Message{
		ToAddress: u.Mail,
		Subject:   n.subject,
		HTMLBody:  body,
	}
	if err := n.sender.SendMail(ctx, msg); err != nil {
		return fmt.Errorf("notifying %s: %w", u.Mail, err)
	}

	n.log.Debug("notification sent", "to", u.Mail, "breaches", len(breaches))
	return nil
}
