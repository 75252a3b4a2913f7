package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"smartbite/internal/models"
	"smartbite/internal/repositories"
	"smartbite/pkg/metrics"
	"smartbite/pkg/result"

	"github.com/sirupsen/logrus"
)

// MenuService manages the catalog and keeps an observed copy of it.
type MenuService struct {
	repo          repositories.MenuRepository
	profiles      repositories.ProfileRepository
	notifications repositories.NotificationRepository
	policy        AdminPolicy
	logger        logrus.FieldLogger
	now           func() time.Time

	mu       sync.RWMutex
	items    []models.MenuItem
	observed bool

	listenMu sync.Mutex
	stop     func()
	done     chan struct{}
}

// NewMenuService creates a new MenuService.
func NewMenuService(
	repo repositories.MenuRepository,
	profiles repositories.ProfileRepository,
	notifications repositories.NotificationRepository,
	policy AdminPolicy,
	logger logrus.FieldLogger,
) *MenuService {
	return &MenuService{
		repo:          repo,
		profiles:      profiles,
		notifications: notifications,
		policy:        policy,
		logger:        logger,
		now:           time.Now,
	}
}

// Items returns a copy of the observed catalog.
func (s *MenuService) Items() []models.MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *MenuService) setItems(items []models.MenuItem) {
	s.mu.Lock()
	s.items = slices.Clone(items)
	s.mu.Unlock()
}

// Catalog returns the observed catalog once Listen has delivered a snapshot,
// and reads the store otherwise.
func (s *MenuService) Catalog(ctx context.Context) result.Result[[]models.MenuItem] {
	s.mu.RLock()
	observed := s.observed
	items := slices.Clone(s.items)
	s.mu.RUnlock()
	if observed {
		return result.OK("Menus fetched", items)
	}
	return s.LoadAll(ctx)
}

// LoadAll reads the catalog once and replaces the observed copy on success.
func (s *MenuService) LoadAll(ctx context.Context) result.Result[[]models.MenuItem] {
	res := s.repo.GetAllMenus(ctx)
	if res.Success {
		s.setItems(res.Data)
	} else {
		s.logger.WithField("message", res.Message).Warn("failed to load menus")
	}
	return res
}

// Listen keeps Items in step with the stored catalog until Stop.
func (s *MenuService) Listen(ctx context.Context) {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	if s.stop != nil {
		return
	}

	updates, stop := s.repo.ListenAllMenus(ctx)
	s.stop = stop
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		for res := range updates {
			if !res.Success {
				s.logger.WithField("message", res.Message).Warn("menu listener reported a failure")
				continue
			}
			s.setItems(res.Data)
			s.mu.Lock()
			s.observed = true
			s.mu.Unlock()
		}
	}(s.done)
}

// Stop ends the listener started by Listen.
func (s *MenuService) Stop() {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	if s.stop == nil {
		return
	}
	s.stop()
	<-s.done
	s.stop = nil

	s.mu.Lock()
	s.observed = false
	s.mu.Unlock()
}

// Get reads one item from the store.
func (s *MenuService) Get(ctx context.Context, id string) result.Result[*models.MenuItem] {
	return s.repo.GetMenuByID(ctx, id)
}

// Create stores a new item, assigning a time-based id when none is given,
// and announces it to every customer.
func (s *MenuService) Create(ctx context.Context, item models.MenuItem) result.Result[*models.MenuItem] {
	if item.ID == "" {
		item.ID = models.NewTimeID(s.now())
	}
	if err := validate.Struct(item); err != nil {
		return result.Reject[*models.MenuItem](result.KindInvalid, validationMessage(err))
	}

	res := s.repo.AddMenu(ctx, item)
	if !res.Success {
		s.logger.WithField("menu_id", item.ID).WithField("message", res.Message).Error("failed to add menu")
		return result.Forward[*models.MenuItem](res)
	}
	s.announce(ctx, item)
	return result.OK(res.Message, &item)
}

// Update overwrites the stored fields of an existing item.
func (s *MenuService) Update(ctx context.Context, item models.MenuItem) result.Status {
	if err := validate.Struct(item); err != nil {
		return result.Rejected(result.KindInvalid, validationMessage(err))
	}
	return s.repo.UpdateMenu(ctx, item)
}

// Delete removes an item.
func (s *MenuService) Delete(ctx context.Context, id string) result.Status {
	return s.repo.DeleteMenu(ctx, id)
}

// ToggleAvailability flips the item's availability in the observed catalog at
// once, then writes !current. If the write fails the catalog is reloaded so
// the optimistic flip is undone.
func (s *MenuService) ToggleAvailability(ctx context.Context, id string, current bool) result.Status {
	if id == "" {
		return result.Rejected(result.KindInvalid, "Menu ID is missing")
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsAvailable = !current
			break
		}
	}
	s.mu.Unlock()

	res := s.repo.UpdateMenuAvailability(ctx, id, !current)
	if !res.Success {
		s.logger.WithField("menu_id", id).WithField("message", res.Message).Warn("availability update failed, reloading menus")
		s.LoadAll(ctx)
	}
	return res
}

// announce tells every customer profile about a new item. Failures are
// logged per recipient. It returns how many notifications were written.
func (s *MenuService) announce(ctx context.Context, item models.MenuItem) int {
	profiles := s.profiles.GetAllProfiles(ctx)
	if !profiles.Success {
		s.logger.WithField("message", profiles.Message).Warn("could not load profiles for menu announcement")
		return 0
	}

	sent := 0
	createdAt := s.now().UnixMilli()
	for _, p := range profiles.Data {
		if p.UserID == "" || p.UserID == s.policy.OwnerID || s.policy.IsAdmin(p.Email) {
			continue
		}
		_, err := s.notifications.Push(ctx, p.UserID, models.Notification{
			Type:      models.NotificationMenu,
			Title:     fmt.Sprintf("New %s Added!", item.Category),
			Message:   "Check out our new item: " + item.Name,
			MenuID:    item.ID,
			CreatedAt: createdAt,
		})
		if err != nil {
			s.logger.WithError(err).WithField("user_id", p.UserID).Warn("failed to send menu notification")
			continue
		}
		metrics.RecordNotification(string(models.NotificationMenu))
		sent++
	}
	return sent
}
