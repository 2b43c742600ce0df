package app

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ordertrack/console/internal/backend"
	"ordertrack/console/internal/format"
	"ordertrack/console/internal/i18n"
	"ordertrack/console/internal/markdown"
	"ordertrack/console/internal/registry"
	"ordertrack/console/internal/session"
)

type NavItem struct {
	To        string `json:"to"`
	Label     string `json:"label"`
	ModuleKey string `json:"moduleKey,omitempty"`
}

type NavGroup struct {
	Group    string            `json:"group"`
	Category registry.Category `json:"category"`
	Items    []NavItem         `json:"items"`
}

// Navigation is the sidebar of a signed-in client.
type Navigation struct {
	Locale    string     `json:"locale"`
	Main      []NavItem  `json:"main"`
	Providers []NavItem  `json:"providers"`
	Admin     []NavItem  `json:"admin,omitempty"`
	Settings  []NavGroup `json:"settings,omitempty"`
}

var mainNav = []NavItem{
	{To: "/dashboard", Label: "nav.dashboard"},
	{To: "/orders", Label: "nav.orders"},
	{To: "/history", Label: "nav.history"},
	{To: "/accounts", Label: "nav.accounts"},
	{To: "/profile", Label: "nav.profile"},
}

var adminNav = []NavItem{
	{To: "/admin/users", Label: "nav.admin.users"},
	{To: registry.AdminSettingsPath, Label: "nav.admin.settings"},
	{To: "/admin/system", Label: "nav.admin.system"},
}

// Navigation builds the localized sidebar. User module entries are hidden
// for modules the backend reports disabled; if module state cannot be read
// every entry is shown.
func (s *Service) Navigation(ctx context.Context, sess *session.Session, acceptLanguage string) (Navigation, error) {
	user, err := s.requireUser(ctx, sess)
	if err != nil {
		return Navigation{}, err
	}
	locale := s.Locale(sess, acceptLanguage)

	nav := Navigation{Locale: locale}
	for _, item := range mainNav {
		nav.Main = append(nav.Main, NavItem{To: item.To, Label: s.translate(locale, item.Label)})
	}

	var enabled map[string]bool
	err = s.backendCall(ctx, sess, func(token string) error {
		states, err := s.backend.Modules(ctx, token)
		if err != nil {
			return err
		}
		enabled = make(map[string]bool, len(states))
		for _, st := range states {
			enabled[st.ModuleKey] = st.Enabled
		}
		return nil
	})
	if err != nil {
		if !sess.IsLoggedIn() {
			return Navigation{}, err
		}
		s.log.Warn("module state unavailable, showing every module", zap.Error(err))
	}

	nav.Providers = []NavItem{}
	for _, item := range s.registry.UserSidebarItems() {
		if enabled != nil && !enabled[item.ModuleKey] {
			continue
		}
		nav.Providers = append(nav.Providers, NavItem{
			To:        item.To,
			Label:     s.moduleLabel(locale, item.ModuleKey, item.Label, ".userTitle"),
			ModuleKey: item.ModuleKey,
		})
	}

	if user.IsAdmin {
		for _, item := range adminNav {
			nav.Admin = append(nav.Admin, NavItem{To: item.To, Label: s.translate(locale, item.Label)})
		}
		for _, g := range s.registry.AdminSidebarGroups() {
			group := NavGroup{
				Group:    s.translate(locale, "groups."+string(g.Category)),
				Category: g.Category,
			}
			for _, item := range g.Items {
				group.Items = append(group.Items, NavItem{
					To:        item.To,
					Label:     s.moduleLabel(locale, item.ModuleKey, item.Label, ".title"),
					ModuleKey: item.ModuleKey,
				})
			}
			nav.Settings = append(nav.Settings, group)
		}
	}
	return nav, nil
}

// translate localizes label when it is a catalog key and returns it verbatim
// otherwise.
func (s *Service) translate(locale, label string) string {
	if s.catalog.Has(label) {
		return s.catalog.T(locale, label)
	}
	return label
}

// moduleLabel translates a module label. Plain labels are shown verbatim in
// the default locale and replaced by the module's catalog entry otherwise.
func (s *Service) moduleLabel(locale, moduleKey, label, suffix string) string {
	if s.catalog.Has(label) {
		return s.catalog.T(locale, label)
	}
	if key := "modules." + moduleKey + suffix; locale != i18n.Default && s.catalog.Has(key) {
		return s.catalog.T(locale, key)
	}
	return label
}

// ModuleInfo joins a manifest with the backend's state for it.
type ModuleInfo struct {
	Key         string            `json:"key"`
	Name        string            `json:"name"`
	Category    registry.Category `json:"category"`
	Enabled     bool              `json:"enabled"`
	Configured  bool              `json:"configured"`
	Known       bool              `json:"known"`
	Description template.HTML     `json:"description,omitempty"`
	AdminPaths  []string          `json:"adminPaths"`
	UserPaths   []string          `json:"userPaths,omitempty"`
}

func (s *Service) Modules(ctx context.Context, sess *session.Session, acceptLanguage string) ([]ModuleInfo, error) {
	if _, err := s.requireUser(ctx, sess); err != nil {
		return nil, err
	}
	var states []backend.ModuleState
	err := s.backendCall(ctx, sess, func(token string) error {
		var err error
		states, err = s.backend.Modules(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]backend.ModuleState, len(states))
	for _, st := range states {
		byKey[st.ModuleKey] = st
	}

	locale := s.Locale(sess, acceptLanguage)
	manifests := s.registry.All()
	out := make([]ModuleInfo, 0, len(manifests))
	for _, m := range manifests {
		info, err := s.moduleInfo(locale, m, byKey)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// SetModuleEnabled toggles a registered module. Only admins may do so.
func (s *Service) SetModuleEnabled(ctx context.Context, sess *session.Session, key string, enabled bool, acceptLanguage string) (ModuleInfo, error) {
	if _, err := s.requireAdmin(ctx, sess); err != nil {
		return ModuleInfo{}, err
	}
	m, ok := s.registry.Lookup(key)
	if !ok {
		return ModuleInfo{}, domainError(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("unknown module %q", key), nil)
	}
	var state backend.ModuleState
	err := s.backendCall(ctx, sess, func(token string) error {
		var err error
		state, err = s.backend.SetModuleEnabled(ctx, token, key, enabled)
		return err
	})
	if err != nil {
		return ModuleInfo{}, err
	}
	s.log.Info("module toggled", zap.String("module", key), zap.Bool("enabled", state.Enabled))
	return s.moduleInfo(s.Locale(sess, acceptLanguage), m, map[string]backend.ModuleState{key: state})
}

func (s *Service) moduleInfo(locale string, m registry.Manifest, states map[string]backend.ModuleState) (ModuleInfo, error) {
	info := ModuleInfo{
		Key:        m.Key,
		Name:       s.moduleLabel(locale, m.Key, m.Name, ".title"),
		Category:   m.Category,
		Configured: true,
	}
	for _, r := range m.AdminRoutes {
		info.AdminPaths = append(info.AdminPaths, registry.AdminSettingsPath+"/"+r.Path)
	}
	for _, r := range m.UserRoutes {
		info.UserPaths = append(info.UserPaths, registry.UserProvidersPath+"/"+r.Path)
	}
	st, ok := states[m.Key]
	if !ok {
		return info, nil
	}
	info.Known = true
	info.Enabled = st.Enabled
	info.Configured = st.IsConfigured()
	if st.Description != nil {
		html, err := markdown.Render(*st.Description)
		if err != nil {
			return ModuleInfo{}, fmt.Errorf("render description of %s: %w", m.Key, err)
		}
		info.Description = html
	}
	return info, nil
}

// OrderRow is an order prepared for display.
type OrderRow struct {
	ID                int64  `json:"id"`
	OrderNumber       string `json:"orderNumber"`
	Vendor            string `json:"vendor"`
	Carrier           string `json:"carrier"`
	TrackingNumber    string `json:"trackingNumber"`
	Status            string `json:"status"`
	OrderDate         string `json:"orderDate"`
	Total             string `json:"total"`
	EstimatedDelivery string `json:"estimatedDelivery"`
	Updated           string `json:"updated"`
}

type OrderEventRow struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	At          string `json:"at"`
	Ago         string `json:"ago"`
}

type OrderView struct {
	OrderRow
	Items  []backend.OrderItem `json:"items"`
	Events []OrderEventRow     `json:"events"`
}

func (s *Service) Orders(ctx context.Context, sess *session.Session, filter backend.OrderFilter, acceptLanguage string) ([]OrderRow, error) {
	if _, err := s.requireUser(ctx, sess); err != nil {
		return nil, err
	}
	var orders []backend.Order
	err := s.backendCall(ctx, sess, func(token string) error {
		var err error
		orders, err = s.backend.Orders(ctx, token, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	locale := s.Locale(sess, acceptLanguage)
	now := s.now()
	rows := make([]OrderRow, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, orderRow(locale, now, o))
	}
	return rows, nil
}

func (s *Service) Order(ctx context.Context, sess *session.Session, id int64, acceptLanguage string) (OrderView, error) {
	if _, err := s.requireUser(ctx, sess); err != nil {
		return OrderView{}, err
	}
	var detail backend.OrderDetail
	err := s.backendCall(ctx, sess, func(token string) error {
		var err error
		detail, err = s.backend.Order(ctx, token, id)
		return err
	})
	if err != nil {
		return OrderView{}, err
	}
	locale := s.Locale(sess, acceptLanguage)
	now := s.now()
	view := OrderView{
		OrderRow: orderRow(locale, now, detail.Order),
		Items:    detail.Items,
		Events:   make([]OrderEventRow, 0, len(detail.Events)),
	}
	if view.Items == nil {
		view.Items = []backend.OrderItem{}
	}
	for _, ev := range detail.Events {
		at := ev.Timestamp
		view.Events = append(view.Events, OrderEventRow{
			Type:        ev.EventType,
			Description: valueOr(ev.Description),
			At:          format.DateTime(locale, at),
			Ago:         format.TimeAgo(now, &at),
		})
	}
	return view, nil
}

const dashboardRecent = 5

type ScanRow struct {
	ID       int64  `json:"id"`
	Subject  string `json:"subject"`
	Sender   string `json:"sender"`
	Relevant bool   `json:"relevant"`
	OrderID  *int64 `json:"orderId,omitempty"`
	Scanned  string `json:"scanned"`
}

type Dashboard struct {
	// Queue is only loaded for admins.
	Queue        *backend.QueueStats `json:"queue,omitempty"`
	OrderTotal   int                 `json:"orderTotal"`
	OrderCounts  map[string]int      `json:"orderCounts"`
	RecentOrders []OrderRow          `json:"recentOrders"`
	RecentScans  []ScanRow           `json:"recentScans"`
	ScanTotal    int                 `json:"scanTotal"`
}

// Dashboard loads the summary widgets concurrently.
func (s *Service) Dashboard(ctx context.Context, sess *session.Session, acceptLanguage string) (Dashboard, error) {
	user, err := s.requireUser(ctx, sess)
	if err != nil {
		return Dashboard{}, err
	}
	locale := s.Locale(sess, acceptLanguage)
	now := s.now()

	var (
		stats  backend.QueueStats
		orders []backend.Order
		scans  backend.EmailScanList
	)
	err = s.backendCall(ctx, sess, func(token string) error {
		g, gctx := errgroup.WithContext(ctx)
		if user.IsAdmin {
			g.Go(func() error {
				var err error
				stats, err = s.backend.QueueStats(gctx, token)
				return err
			})
		}
		g.Go(func() error {
			var err error
			orders, err = s.backend.Orders(gctx, token, backend.OrderFilter{})
			return err
		})
		g.Go(func() error {
			var err error
			scans, err = s.backend.Scans(gctx, token, backend.ScanFilter{Page: 1, PerPage: dashboardRecent})
			return err
		})
		return g.Wait()
	})
	if err != nil {
		return Dashboard{}, err
	}

	dash := Dashboard{
		OrderTotal:   len(orders),
		OrderCounts:  make(map[string]int),
		RecentOrders: []OrderRow{},
		RecentScans:  []ScanRow{},
		ScanTotal:    scans.Total,
	}
	if user.IsAdmin {
		dash.Queue = &stats
	}
	for _, o := range orders {
		dash.OrderCounts[o.Status]++
	}

	recent := append([]backend.Order(nil), orders...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].UpdatedAt.After(recent[j].UpdatedAt)
	})
	if len(recent) > dashboardRecent {
		recent = recent[:dashboardRecent]
	}
	for _, o := range recent {
		dash.RecentOrders = append(dash.RecentOrders, orderRow(locale, now, o))
	}
	for _, sc := range scans.Items {
		created := sc.CreatedAt
		dash.RecentScans = append(dash.RecentScans, ScanRow{
			ID:       sc.ID,
			Subject:  sc.Subject,
			Sender:   sc.Sender,
			Relevant: sc.IsRelevant,
			OrderID:  sc.OrderID,
			Scanned:  format.TimeAgo(now, &created),
		})
	}
	return dash, nil
}

func orderRow(locale string, now time.Time, o backend.Order) OrderRow {
	updated := o.UpdatedAt
	vendor := valueOr(o.VendorName)
	if vendor == format.Placeholder {
		vendor = valueOr(o.VendorDomain)
	}
	return OrderRow{
		ID:                o.ID,
		OrderNumber:       valueOr(o.OrderNumber),
		Vendor:            vendor,
		Carrier:           valueOr(o.Carrier),
		TrackingNumber:    valueOr(o.TrackingNumber),
		Status:            o.Status,
		OrderDate:         format.DateString(locale, o.OrderDate),
		Total:             format.Amount(locale, o.TotalAmount, o.Currency),
		EstimatedDelivery: format.DateString(locale, o.EstimatedDelivery),
		Updated:           format.TimeAgo(now, &updated),
	}
}

func valueOr(v *string) string {
	if v == nil || *v == "" {
		return format.Placeholder
	}
	return *v
}
