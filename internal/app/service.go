package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ordertrack/console/internal/access"
	"ordertrack/console/internal/backend"
	"ordertrack/console/internal/guard"
	"ordertrack/console/internal/i18n"
	"ordertrack/console/internal/registry"
	"ordertrack/console/internal/routes"
	"ordertrack/console/internal/session"
	"ordertrack/console/internal/views"
)

// Backend is the part of the order-tracking API the console service reads
// beyond what sessions drive themselves.
type Backend interface {
	Ping(ctx context.Context) error
	Modules(ctx context.Context, token string) ([]backend.ModuleState, error)
	SetModuleEnabled(ctx context.Context, token, key string, enabled bool) (backend.ModuleState, error)
	QueueStats(ctx context.Context, token string) (backend.QueueStats, error)
	Orders(ctx context.Context, token string, filter backend.OrderFilter) ([]backend.Order, error)
	Order(ctx context.Context, token string, id int64) (backend.OrderDetail, error)
	Scans(ctx context.Context, token string, filter backend.ScanFilter) (backend.EmailScanList, error)
}

// Checker is a named readiness probe.
type Checker interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Registry      *registry.Registry
	Table         *routes.Table
	Guard         *guard.Guard
	Sessions      *session.Manager
	Views         *views.Resolver
	Backend       Backend
	Catalog       *i18n.Catalog
	DefaultLocale string
	// Checks are reported by /api/ready next to the backend.
	Checks map[string]Checker
	Logger *zap.Logger
}

type Service struct {
	registry      *registry.Registry
	table         *routes.Table
	guard         *guard.Guard
	sessions      *session.Manager
	views         *views.Resolver
	backend       Backend
	catalog       *i18n.Catalog
	defaultLocale string
	checks        map[string]Checker
	log           *zap.Logger
	now           func() time.Time

	viewNames map[string]struct{}
}

func NewService(deps Deps) (*Service, error) {
	var missing []string
	if deps.Registry == nil {
		missing = append(missing, "registry")
	}
	if deps.Table == nil {
		missing = append(missing, "route table")
	}
	if deps.Guard == nil {
		missing = append(missing, "guard")
	}
	if deps.Sessions == nil {
		missing = append(missing, "session manager")
	}
	if deps.Views == nil {
		missing = append(missing, "view resolver")
	}
	if deps.Backend == nil {
		missing = append(missing, "backend")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("app: missing %s", strings.Join(missing, ", "))
	}

	catalog := deps.Catalog
	if catalog == nil {
		loaded, err := i18n.Load()
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}
	locale := deps.DefaultLocale
	if !i18n.Supported(locale) {
		locale = i18n.Default
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	viewNames := make(map[string]struct{})
	for _, e := range deps.Table.Entries() {
		for _, ref := range append([]views.Ref{e.View}, e.Layouts...) {
			if !ref.IsZero() {
				viewNames[ref.Name] = struct{}{}
			}
		}
	}

	return &Service{
		registry:      deps.Registry,
		table:         deps.Table,
		guard:         deps.Guard,
		sessions:      deps.Sessions,
		views:         deps.Views,
		backend:       deps.Backend,
		catalog:       catalog,
		defaultLocale: locale,
		checks:        deps.Checks,
		log:           log,
		now:           time.Now,
		viewNames:     viewNames,
	}, nil
}

// Session returns the console session of clientID.
func (s *Service) Session(ctx context.Context, clientID string) (*session.Session, error) {
	return s.sessions.Get(ctx, clientID)
}

// Readiness pings the backend and every configured check. A nil value means
// the check passed.
func (s *Service) Readiness(ctx context.Context) map[string]error {
	results := map[string]error{"backend": s.backend.Ping(ctx)}
	for name, check := range s.checks {
		results[name] = check.Ping(ctx)
	}
	return results
}

// Locale picks the locale for a request: the saved preference, then the
// Accept-Language header, then the configured default.
func (s *Service) Locale(sess session.Reader, acceptLanguage string) string {
	if saved := sess.Locale(); saved != "" {
		return saved
	}
	if strings.TrimSpace(acceptLanguage) == "" {
		return s.defaultLocale
	}
	return i18n.Detect("", acceptLanguage)
}

func (s *Service) Login(ctx context.Context, sess *session.Session, creds backend.Credentials) (session.Snapshot, error) {
	if err := validateCredentials(creds); err != nil {
		return session.Snapshot{}, err
	}
	if err := sess.Login(ctx, creds.Username, creds.Password); err != nil {
		return session.Snapshot{}, err
	}
	s.log.Info("client signed in", zap.String("client_id", sess.ID()), zap.String("username", creds.Username))
	return sess.Snapshot(), nil
}

func (s *Service) Setup(ctx context.Context, sess *session.Session, creds backend.Credentials) (session.Snapshot, error) {
	if err := validateCredentials(creds); err != nil {
		return session.Snapshot{}, err
	}
	if err := sess.Setup(ctx, creds.Username, creds.Password); err != nil {
		return session.Snapshot{}, err
	}
	s.log.Info("initial admin created", zap.String("client_id", sess.ID()), zap.String("username", creds.Username))
	return sess.Snapshot(), nil
}

func (s *Service) Logout(ctx context.Context, sess *session.Session) error {
	return sess.Logout(ctx)
}

// Status reports whether the backend has been set up, loading the flag once
// per session.
func (s *Service) Status(ctx context.Context, sess *session.Session) (bool, error) {
	if done, known := sess.SetupCompleted(); known {
		return done, nil
	}
	if err := sess.CheckStatus(ctx); err != nil {
		return false, err
	}
	done, _ := sess.SetupCompleted()
	return done, nil
}

type Preferences struct {
	Theme  session.Theme `json:"theme"`
	Locale string        `json:"locale"`
}

type PreferencesInput struct {
	Theme  *string `json:"theme"`
	Locale *string `json:"locale"`
}

func (s *Service) Preferences(sess session.Reader, acceptLanguage string) Preferences {
	return Preferences{Theme: sess.Theme(), Locale: s.Locale(sess, acceptLanguage)}
}

func (s *Service) UpdatePreferences(ctx context.Context, sess *session.Session, in PreferencesInput) (Preferences, error) {
	if in.Theme == nil && in.Locale == nil {
		return Preferences{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "theme or locale is required", nil)
	}
	if in.Theme != nil {
		if err := sess.SetTheme(ctx, *in.Theme); err != nil {
			return Preferences{}, err
		}
	}
	if in.Locale != nil {
		if err := sess.SetLocale(ctx, *in.Locale); err != nil {
			return Preferences{}, err
		}
	}
	return s.Preferences(sess, ""), nil
}

// NavigationResult is the outcome of one navigation: the guard's decision,
// the route finally shown and its views, outermost layout first.
type NavigationResult struct {
	Decision   guard.Decision    `json:"decision"`
	Resolution routes.Resolution `json:"resolution"`
	Views      []views.View      `json:"views"`
	Session    session.Snapshot  `json:"session"`
}

// Navigate resolves target, runs the guard and loads the views of the route
// that ends up displayed. A guard redirect is itself checked once more, within
// the same navigation slot, so the target's own checks (the login setup
// check) run.
func (s *Service) Navigate(ctx context.Context, sess *session.Session, target string) (NavigationResult, error) {
	res, err := s.table.Resolve(target)
	if err != nil {
		return NavigationResult{}, err
	}

	var redirected *routes.Resolution
	decision, err := s.guard.Navigate(ctx, sess, res.Entry, func(path string) (routes.Entry, error) {
		next, err := s.table.Resolve(path)
		if err != nil {
			return routes.Entry{}, err
		}
		redirected = &next
		return next.Entry, nil
	})
	if err != nil {
		return NavigationResult{}, err
	}
	if redirected != nil {
		redirected.Requested = res.Requested
		redirected.RedirectedFrom = append(append([]string(nil), res.RedirectedFrom...), res.Path)
		res = *redirected
	}

	refs := append(append([]views.Ref(nil), res.Entry.Layouts...), res.Entry.View)
	loaded, err := s.views.ResolveAll(ctx, refs)
	if err != nil {
		return NavigationResult{}, fmt.Errorf("load views for %s: %w", res.Path, err)
	}

	return NavigationResult{
		Decision:   decision,
		Resolution: res,
		Views:      loaded,
		Session:    sess.Snapshot(),
	}, nil
}

// View loads a view referenced by the route table.
func (s *Service) View(ctx context.Context, name string) (views.View, error) {
	if _, ok := s.viewNames[name]; !ok {
		return views.View{}, fmt.Errorf("%w: %s", views.ErrNotFound, name)
	}
	return s.views.Resolve(ctx, views.Lazy(name))
}

// RouteInfo is a route table entry annotated for the requesting client.
type RouteInfo struct {
	routes.Entry
	Accessible bool `json:"accessible"`
}

func (s *Service) Routes(sess session.Reader) []RouteInfo {
	role := access.RoleOf(sess.IsLoggedIn(), sess.IsAdmin())
	entries := s.table.Entries()
	out := make([]RouteInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, RouteInfo{Entry: e, Accessible: e.Redirect == "" && access.Allows(role, e.Requirement)})
	}
	return out
}

func validateCredentials(creds backend.Credentials) error {
	var fields []string
	if strings.TrimSpace(creds.Username) == "" {
		fields = append(fields, "username")
	}
	if creds.Password == "" {
		fields = append(fields, "password")
	}
	if len(fields) > 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "username and password are required", map[string]any{"fields": fields})
	}
	return nil
}

// requireUser resolves the session's profile for operations outside the
// navigation flow.
func (s *Service) requireUser(ctx context.Context, sess *session.Session) (backend.User, error) {
	if !sess.IsLoggedIn() {
		return backend.User{}, session.ErrNoToken
	}
	if user, ok := sess.User(); ok {
		return user, nil
	}
	if err := sess.FetchUser(ctx); err != nil {
		return backend.User{}, err
	}
	user, ok := sess.User()
	if !ok {
		return backend.User{}, session.ErrSessionInvalid
	}
	return user, nil
}

func (s *Service) requireAdmin(ctx context.Context, sess *session.Session) (backend.User, error) {
	user, err := s.requireUser(ctx, sess)
	if err != nil {
		return backend.User{}, err
	}
	if !user.IsAdmin {
		return backend.User{}, errForbidden
	}
	return user, nil
}

var errForbidden = domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)

// backendCall runs fn with the session token and logs the session out when
// the backend rejects the token.
func (s *Service) backendCall(ctx context.Context, sess *session.Session, fn func(token string) error) error {
	token := sess.Token()
	err := fn(token)
	if err != nil && backend.IsUnauthorized(err) {
		s.log.Info("backend rejected token, clearing session", zap.String("client_id", sess.ID()))
		if logoutErr := sess.Logout(context.WithoutCancel(ctx)); logoutErr != nil {
			s.log.Warn("logout after rejected token", zap.Error(logoutErr))
		}
		return errors.Join(session.ErrSessionInvalid, err)
	}
	return err
}
