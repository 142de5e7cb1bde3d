package fetch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"coopconsole/internal/models"
)

// Backend is the subset of the api client the screens read from.
type Backend interface {
	CooperativeDashboard(ctx context.Context, cooperativeID string) (models.DashboardSummary, error)
	AssociationDashboard(ctx context.Context, associationID string) (models.DashboardSummary, error)
	Associations(ctx context.Context, cooperativeID string) ([]models.Association, error)
	Members(ctx context.Context, associationID string) ([]models.Member, error)
	NotificationLog(ctx context.Context) ([]models.NotificationLogEntry, error)
}

// Scope supplies the tenant ids of the current session.
type Scope interface {
	Scope() (associationID, cooperativeID string)
}

// RecentNotifications is how many log entries the dashboards show.
const RecentNotifications = 5

// Dashboard is a dashboard screen's data: the summary plus the latest
// notifications. Notifications are best effort; NotificationsErr is set
// when they could not be loaded while the summary could.
type Dashboard struct {
	Summary          models.DashboardSummary
	Notifications    []models.NotificationLogEntry
	NotificationsErr error
}

// LoadDashboard loads summary and notifications concurrently. A summary
// failure fails the whole screen and cancels the notification request.
func LoadDashboard(summary Loader[models.DashboardSummary], notifications Loader[[]models.NotificationLogEntry]) Loader[Dashboard] {
	return func(ctx context.Context) (Dashboard, error) {
		var out Dashboard
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			s, err := summary(gctx)
			if err != nil {
				return err
			}
			out.Summary = s
			return nil
		})
		g.Go(func() error {
			entries, err := notifications(gctx)
			if err != nil {
				out.NotificationsErr = err
				out.Notifications = []models.NotificationLogEntry{}
				return nil
			}
			if len(entries) > RecentNotifications {
				entries = entries[:RecentNotifications]
			}
			out.Notifications = entries
			return nil
		})
		if err := g.Wait(); err != nil {
			return Dashboard{}, err
		}
		return out, nil
	}
}

// Screens builds the resources for each console screen. Scope is read at
// load time so a resource always targets the session current when it runs.
type Screens struct {
	backend Backend
	scope   Scope
	opts    []Option
}

// NewScreens returns a Screens reading from backend within scope.
func NewScreens(backend Backend, scope Scope, opts ...Option) *Screens {
	return &Screens{backend: backend, scope: scope, opts: opts}
}

func (s *Screens) associationID() string {
	id, _ := s.scope.Scope()
	return id
}

func (s *Screens) cooperativeID() string {
	_, id := s.scope.Scope()
	return id
}

// CooperativeDashboard is the cooperative admin's home screen.
func (s *Screens) CooperativeDashboard() *Resource[Dashboard] {
	return NewResource("cooperative_dashboard", LoadDashboard(
		func(ctx context.Context) (models.DashboardSummary, error) {
			return s.backend.CooperativeDashboard(ctx, s.cooperativeID())
		},
		s.backend.NotificationLog,
	), s.opts...)
}

// AssociationDashboard is the association admin's home screen.
func (s *Screens) AssociationDashboard() *Resource[Dashboard] {
	return NewResource("association_dashboard", LoadDashboard(
		func(ctx context.Context) (models.DashboardSummary, error) {
			return s.backend.AssociationDashboard(ctx, s.associationID())
		},
		s.backend.NotificationLog,
	), s.opts...)
}

// Associations lists the cooperative's associations.
func (s *Screens) Associations() *Resource[[]models.Association] {
	return NewResource("associations", func(ctx context.Context) ([]models.Association, error) {
		return s.backend.Associations(ctx, s.cooperativeID())
	}, s.opts...)
}

// Members lists the association's members.
func (s *Screens) Members() *Resource[[]models.Member] {
	return NewResource("members", func(ctx context.Context) ([]models.Member, error) {
		return s.backend.Members(ctx, s.associationID())
	}, s.opts...)
}

// NotificationLog lists sent notifications.
func (s *Screens) NotificationLog() *Resource[[]models.NotificationLogEntry] {
	return NewResource("notification_log", s.backend.NotificationLog, s.opts...)
}
