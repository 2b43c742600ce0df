// Package guard decides, for every navigation, whether the client may enter
// the target route or must be redirected.
package guard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ordertrack/console/internal/access"
	"ordertrack/console/internal/metrics"
	"ordertrack/console/internal/routes"
	"ordertrack/console/internal/session"
)

type Outcome string

var ErrRedirectedTwice = errors.New("guard redirected twice")

const (
	Allow    Outcome = "allow"
	Redirect Outcome = "redirect"
)

// Reasons recorded on a decision.
const (
	ReasonAllowed         = "allowed"
	ReasonLoginRequired   = "login-required"
	ReasonAlreadySignedIn = "already-signed-in"
	ReasonAdminRequired   = "admin-required"
)

// Decision is the guard's verdict. Name and Path identify the redirect target
// and are set only when Outcome is Redirect.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Name    string  `json:"name,omitempty"`
	Path    string  `json:"path,omitempty"`
	Reason  string  `json:"reason"`
}

func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Subject is what the guard needs from a session. All writes go through the
// session's own methods.
type Subject interface {
	session.Reader
	BeginNavigation(ctx context.Context) (func(), error)
	FetchUser(ctx context.Context) error
	CheckStatus(ctx context.Context) error
}

type Guard struct {
	loginPath     string
	dashboardPath string
	log           *zap.Logger
}

type Option func(*Guard)

func WithLogger(log *zap.Logger) Option {
	return func(g *Guard) {
		g.log = log
	}
}

// New builds a guard redirecting to the login and dashboard routes of table.
func New(table *routes.Table, opts ...Option) (*Guard, error) {
	login, ok := table.PathFor(routes.NameLogin)
	if !ok {
		return nil, fmt.Errorf("route table has no %q route", routes.NameLogin)
	}
	dashboard, ok := table.PathFor(routes.NameDashboard)
	if !ok {
		return nil, fmt.Errorf("route table has no %q route", routes.NameDashboard)
	}
	g := &Guard{loginPath: login, dashboardPath: dashboard, log: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Check evaluates entry for subject. Navigations of one subject are
// serialized, so an overlapping navigation sees the profile the first one
// fetched. An error is returned only when ctx ends or the setup status cannot
// be loaded; a failed profile fetch logs the subject out and the decision
// proceeds as anonymous.
func (g *Guard) Check(ctx context.Context, subject Subject, entry routes.Entry) (Decision, error) {
	release, err := subject.BeginNavigation(ctx)
	if err != nil {
		return Decision{}, err
	}
	defer release()
	return g.check(ctx, subject, entry)
}

// Navigate checks entry and, when it is redirected, the entry follow returns
// for the redirect path, without releasing the subject's navigation slot in
// between. The redirect target must be allowed; the returned decision is the
// one made for entry.
func (g *Guard) Navigate(ctx context.Context, subject Subject, entry routes.Entry, follow func(path string) (routes.Entry, error)) (Decision, error) {
	release, err := subject.BeginNavigation(ctx)
	if err != nil {
		return Decision{}, err
	}
	defer release()

	decision, err := g.check(ctx, subject, entry)
	if err != nil || decision.Allowed() {
		return decision, err
	}
	target, err := follow(decision.Path)
	if err != nil {
		return Decision{}, err
	}
	again, err := g.check(ctx, subject, target)
	if err != nil {
		return Decision{}, err
	}
	if !again.Allowed() {
		return Decision{}, fmt.Errorf("%w: %s -> %s -> %s", ErrRedirectedTwice, entry.Path, decision.Path, again.Path)
	}
	return decision, nil
}

func (g *Guard) check(ctx context.Context, subject Subject, entry routes.Entry) (Decision, error) {
	if subject.Token() != "" {
		if _, resolved := subject.User(); !resolved {
			if err := subject.FetchUser(ctx); err != nil {
				if !errors.Is(err, session.ErrSessionInvalid) {
					metrics.ProfileFetches.WithLabelValues("aborted").Inc()
					return Decision{}, err
				}
				metrics.ProfileFetches.WithLabelValues("invalid").Inc()
				g.log.Info("session invalidated during navigation",
					zap.String("client_id", subject.ID()),
					zap.String("path", entry.Path),
				)
			} else {
				metrics.ProfileFetches.WithLabelValues("ok").Inc()
			}
		}
	}

	if entry.CheckSetup {
		if _, known := subject.SetupCompleted(); !known {
			if err := subject.CheckStatus(ctx); err != nil {
				return Decision{}, err
			}
		}
	}

	decision := g.decide(subject, entry.Requirement)
	metrics.NavigationDecisions.WithLabelValues(string(decision.Outcome), decision.Reason).Inc()
	g.log.Debug("navigation decided",
		zap.String("client_id", subject.ID()),
		zap.String("path", entry.Path),
		zap.String("outcome", string(decision.Outcome)),
		zap.String("reason", decision.Reason),
	)
	return decision, nil
}

func (g *Guard) decide(subject session.Reader, req access.Requirement) Decision {
	loggedIn := subject.IsLoggedIn()
	switch {
	case req.NeedsSession() && !loggedIn:
		return Decision{Outcome: Redirect, Name: routes.NameLogin, Path: g.loginPath, Reason: ReasonLoginRequired}
	case req.GuestOnly() && loggedIn:
		return g.toDashboard(ReasonAlreadySignedIn)
	case req.NeedsAdmin() && !subject.IsAdmin():
		return g.toDashboard(ReasonAdminRequired)
	}
	return Decision{Outcome: Allow, Reason: ReasonAllowed}
}

func (g *Guard) toDashboard(reason string) Decision {
	return Decision{Outcome: Redirect, Name: routes.NameDashboard, Path: g.dashboardPath, Reason: reason}
}
