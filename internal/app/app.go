package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/DanHalford/HIBP-Breach-Notifier/internal/domain/breach"
	"github.com/DanHalford/HIBP-Breach-Notifier/internal/domain/user"
	"github.com/DanHalford/HIBP-Breach-Notifier/internal/graph"
	"github.com/DanHalford/HIBP-Breach-Notifier/internal/hibp"
)

// BreachSource queries the external breach service.
type BreachSource interface {
	CheckSubscription(ctx context.Context) (*hibp.Subscription, error)
	FetchBreaches(ctx context.Context, email string) ([]breach.Record, error)
}

// Directory enumerates users from the directory/mail backend.
type Directory interface {
	Authenticate(ctx context.Context, scopes ...string) error
	ListUsers(ctx context.Context) ([]user.User, error)
}

// Notifier informs one user about their breaches.
type Notifier interface {
	Notify(ctx context.Context, u user.User, breaches []breach.Record) error
}

// Options are the per-run switches from the CLI.
type Options struct {
	// SuppressEmails prints the notification set instead of sending mail.
	SuppressEmails bool
	// IgnoreBefore excludes older new breaches from notification (they are
	// still persisted). Zero means no cutoff.
	IgnoreBefore time.Time
}

// Summary is the run-level outcome. NewRecords counts every record persisted
// this run, before the cutoff filter.
type Summary struct {
	Users        int
	NewRecords   int
	Notified     int
	SendFailures int
}

// App drives the batch pipeline: subscription check, directory auth, then a
// sequential fetch → dedup → persist → notify pass over every user, paced to
// the source's request allowance.
type App struct {
	opts      Options
	source    BreachSource
	directory Directory
	store     breach.Store
	notifier  Notifier
	out       io.Writer
	log       *slog.Logger
}

func New(opts Options, source BreachSource, directory Directory, store breach.Store, notifier Notifier, out io.Writer, log *slog.Logger) *App {
	return &App{
		opts:      opts,
		source:    source,
		directory: directory,
		store:     store,
		notifier:  notifier,
		out:       out,
		log:       log,
	}
}

func (a *App) Run(ctx context.Context) (*Summary, error) {
	sub, err := a.source.CheckSubscription(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscription check failed, aborting run: %w", err)
	}
	fmt.Fprintf(a.out, "Subscription verified: %s (%d requests/minute)\n", sub.Name, sub.Rpm)

	scopes := []string{graph.ScopeReadUsers}
	if !a.opts.SuppressEmails {
		scopes = append(scopes, graph.ScopeSendMail)
	}
	if err := a.directory.Authenticate(ctx, scopes...); err != nil {
		return nil, fmt.Errorf("directory authentication failed, aborting run: %w", err)
	}

	if err := a.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	users, err := a.directory.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerating users: %w", err)
	}
	fmt.Fprintf(a.out, "Checking %d users\n", len(users))

	detector := breach.NewDetector(a.store, a.opts.IgnoreBefore, a.log)
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(sub.Rpm)), 1)

	summary := &Summary{Users: len(users)}
	for _, u := range users {
		if err := limiter.Wait(ctx); err != nil {
			return summary, err
		}
		a.processUser(ctx, detector, u, summary)
	}

	fmt.Fprintf(a.out, "Done. Users checked: %d, new breaches: %d, notifications: %d, send failures: %d\n",
		summary.Users, summary.NewRecords, summary.Notified, summary.SendFailures)
	return summary, nil
}

func (a *App) processUser(ctx context.Context, detector *breach.Detector, u user.User, summary *Summary) {
	fetched, err := a.source.FetchBreaches(ctx, u.Mail)
	if err != nil {
		// A clean 404 and a failed lookup both end this user's pipeline with
		// nothing to report, but they are not the same thing: only the former
		// proves the address is breach-free.
		if errors.Is(err, breach.ErrNoBreaches) {
			a.log.Debug("address appears in no breaches", "email", u.Mail)
		} else {
			a.log.Warn("breach lookup failed", "email", u.Mail, "error", err)
		}
		fmt.Fprintf(a.out, "%s: no breaches found\n", u.Mail)
		return
	}

	res, err := detector.Process(ctx, u.Mail, fetched)
	if err != nil {
		a.log.Error("recording breaches failed", "email", u.Mail, "error", err)
		fmt.Fprintf(a.out, "%s: failed to record breaches: %v\n", u.Mail, err)
		return
	}

	if len(res.New) == 0 {
		fmt.Fprintf(a.out, "%s: no new breaches found\n", u.Mail)
		return
	}

	summary.NewRecords += len(res.New)
	color.New(color.FgYellow).Fprintf(a.out, "%s: %d new breach(es) found\n", u.Mail, len(res.New))

	if len(res.Notify) == 0 {
		return
	}

	if a.opts.SuppressEmails {
		for _, rec := range res.Notify {
			fmt.Fprintf(a.out, "  - %s (%s)\n", rec.Title, rec.BreachDate)
		}
		summary.Notified++
		return
	}

	if err := a.notifier.Notify(ctx, u, res.Notify); err != nil {
		// The breaches are stored, the user just was not told. Keep going.
		summary.SendFailures++
		color.New(color.FgRed).Fprintf(a.out, "%s: notification failed: %v\n", u.Mail, err)
		return
	}
	summary.Notified++
}
