package focus_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/core/events"
	"github.com/frahmantamala/workspace-management/internal/focus"
	"github.com/frahmantamala/workspace-management/internal/rbac"
)

func TestFocus(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Focus Suite")
}

type mockFocusRepository struct {
	mu         sync.Mutex
	focuses    map[string]*focus.Focus
	failAll    bool
	failDemote bool
}

func newMockFocusRepository() *mockFocusRepository {
	return &mockFocusRepository{focuses: make(map[string]*focus.Focus)}
}

func (m *mockFocusRepository) GetAllActive(_ context.Context) ([]*focus.Focus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, context.DeadlineExceeded
	}
	var out []*focus.Focus
	for _, f := range m.focuses {
		if f.IsActive {
			copied := *f
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockFocusRepository) GetByID(_ context.Context, id string) (*focus.Focus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.focuses[id]
	if !ok || !f.IsActive {
		return nil, internal.ErrFocusNotFound
	}
	copied := *f
	return &copied, nil
}

func (m *mockFocusRepository) Create(_ context.Context, f *focus.Focus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return context.DeadlineExceeded
	}
	// the demotion fails inside the transaction, so nothing is written
	if f.IsDefault && m.failDemote {
		return context.DeadlineExceeded
	}
	copied := *f
	m.focuses[f.ID] = &copied
	if f.IsDefault {
		m.demoteLocked(f.ID, f.AssignedRoles)
	}
	return nil
}

func (m *mockFocusRepository) Update(_ context.Context, f *focus.Focus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.focuses[f.ID]; !ok {
		return internal.ErrFocusNotFound
	}
	if f.IsDefault && m.failDemote {
		return context.DeadlineExceeded
	}
	copied := *f
	m.focuses[f.ID] = &copied
	if f.IsDefault {
		m.demoteLocked(f.ID, f.AssignedRoles)
	}
	return nil
}

func (m *mockFocusRepository) demoteLocked(keepID string, roles []rbac.Role) {
	overlap := func(assigned focus.RoleList) bool {
		for _, a := range assigned {
			for _, r := range roles {
				if a == r {
					return true
				}
			}
		}
		return false
	}
	for id, f := range m.focuses {
		if id != keepID && f.IsActive && f.IsDefault && overlap(f.AssignedRoles) {
			f.IsDefault = false
		}
	}
}

func (m *mockFocusRepository) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.focuses[id]
	if !ok {
		return internal.ErrFocusNotFound
	}
	f.IsActive = false
	return nil
}

func (m *mockFocusRepository) seed(f *focus.Focus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *f
	m.focuses[f.ID] = &copied
}

var _ = Describe("Focus Service", func() {
	var (
		repo    *mockFocusRepository
		bus     *events.EventBus
		service *focus.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockFocusRepository()
		logger := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		bus = events.NewEventBus(logger)
		service = focus.NewService(repo, bus, logger)
		ctx = context.Background()
	})

	managerFocus := func(id, name string) *focus.Focus {
		return &focus.Focus{
			ID:            id,
			Name:          name,
			Type:          focus.TypeStandard,
			AssignedRoles: focus.RoleList{rbac.RoleManager, rbac.RoleAdmin},
			IsActive:      true,
			CreatedBy:     1,
		}
	}
	userFocus := func(id, name string) *focus.Focus {
		return &focus.Focus{
			ID:            id,
			Name:          name,
			Type:          focus.TypeStandard,
			AssignedRoles: focus.RoleList{rbac.RoleUser, rbac.RoleManager, rbac.RoleAdmin},
			IsActive:      true,
			CreatedBy:     1,
		}
	}

	Describe("List", func() {
		It("hides focuses below the caller's level", func() {
			repo.seed(managerFocus("m1", "Exception Management"))
			repo.seed(userFocus("u1", "Performance Dashboard"))

			visible, err := service.List(ctx, rbac.RoleUser, focus.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(visible).To(HaveLen(1))
			Expect(visible[0].ID).To(Equal("u1"))
		})

		It("lets a manager see focuses assigned only to lower roles", func() {
			repo.seed(managerFocus("m1", "Exception Management"))
			repo.seed(userFocus("u1", "Performance Dashboard"))

			visible, err := service.List(ctx, rbac.RoleManager, focus.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(visible).To(HaveLen(2))
		})

		It("orders current focus first, then favorites, then by name", func() {
			repo.seed(userFocus("a", "Alpha"))
			repo.seed(userFocus("b", "Beta"))
			repo.seed(userFocus("c", "Gamma"))
			repo.seed(userFocus("d", "Delta"))

			visible, err := service.List(ctx, rbac.RoleUser, focus.ListOptions{
				CurrentFocusID: "c",
				FavoriteIDs:    map[string]bool{"d": true},
			})
			Expect(err).NotTo(HaveOccurred())

			ids := make([]string, 0, len(visible))
			for _, f := range visible {
				ids = append(ids, f.ID)
			}
			Expect(ids).To(Equal([]string{"c", "d", "a", "b"}))
		})

		It("excludes soft-deleted focuses", func() {
			f := userFocus("u1", "Performance Dashboard")
			f.IsActive = false
			repo.seed(f)

			visible, err := service.List(ctx, rbac.RoleAdmin, focus.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(visible).To(BeEmpty())
		})

		It("wraps storage failures as unavailable", func() {
			repo.failAll = true

			_, err := service.List(ctx, rbac.RoleAdmin, focus.ListOptions{})
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeUnavailable))
		})
	})

	Describe("Create", func() {
		dto := focus.CreateFocusDTO{
			Name:          "Inventory Management",
			AssignedRoles: []rbac.Role{rbac.RoleManager, rbac.RoleAdmin},
		}

		It("lets an admin create a focus with a generated id", func() {
			created, err := service.Create(ctx, dto, rbac.RoleAdmin, 1001)
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).NotTo(BeEmpty())
			Expect(created.Type).To(Equal(focus.TypeStandard))
			Expect(created.IsActive).To(BeTrue())

			stored, err := service.Get(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Name).To(Equal("Inventory Management"))
		})

		It("rejects non-admin callers", func() {
			for _, role := range []rbac.Role{rbac.RoleGuest, rbac.RoleUser, rbac.RoleManager} {
				_, err := service.Create(ctx, dto, role, 1001)
				Expect(err).To(HaveOccurred())
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodePermissionDenied))
			}
		})

		It("rejects an empty name", func() {
			bad := dto
			bad.Name = ""
			_, err := service.Create(ctx, bad, rbac.RoleAdmin, 1001)
			Expect(err).To(HaveOccurred())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Code).To(Equal(internal.ErrCodeEmptyName))
		})

		It("rejects an empty role set", func() {
			bad := dto
			bad.AssignedRoles = nil
			_, err := service.Create(ctx, bad, rbac.RoleAdmin, 1001)
			Expect(err).To(HaveOccurred())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Code).To(Equal(internal.ErrCodeEmptyRoles))
		})

		It("rejects an unknown role", func() {
			bad := dto
			bad.AssignedRoles = []rbac.Role{"superuser"}
			_, err := service.Create(ctx, bad, rbac.RoleAdmin, 1001)
			Expect(err).To(HaveOccurred())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidRole))
		})

		It("demotes the previous default in the same role scope", func() {
			old := userFocus("old", "Performance Dashboard")
			old.IsDefault = true
			repo.seed(old)

			newDefault := focus.CreateFocusDTO{
				Name:          "Operations Overview",
				AssignedRoles: []rbac.Role{rbac.RoleUser},
				IsDefault:     true,
			}
			created, err := service.Create(ctx, newDefault, rbac.RoleAdmin, 1001)
			Expect(err).NotTo(HaveOccurred())
			Expect(created.IsDefault).To(BeTrue())

			demoted, err := service.Get(ctx, "old")
			Expect(err).NotTo(HaveOccurred())
			Expect(demoted.IsDefault).To(BeFalse())
		})

		It("leaves defaults in disjoint role scopes alone", func() {
			adminOnly := &focus.Focus{
				ID:            "setup",
				Name:          "Set-up",
				Type:          focus.TypeStandard,
				AssignedRoles: focus.RoleList{rbac.RoleAdmin},
				IsDefault:     true,
				IsActive:      true,
				CreatedBy:     1,
			}
			repo.seed(adminOnly)

			_, err := service.Create(ctx, focus.CreateFocusDTO{
				Name:          "Operations Overview",
				AssignedRoles: []rbac.Role{rbac.RoleUser},
				IsDefault:     true,
			}, rbac.RoleAdmin, 1001)
			Expect(err).NotTo(HaveOccurred())

			untouched, err := service.Get(ctx, "setup")
			Expect(err).NotTo(HaveOccurred())
			Expect(untouched.IsDefault).To(BeTrue())
		})

		It("surfaces a failed default demotion and keeps the old default", func() {
			old := userFocus("old", "Performance Dashboard")
			old.IsDefault = true
			repo.seed(old)
			repo.failDemote = true

			_, err := service.Create(ctx, focus.CreateFocusDTO{
				Name:          "Operations Overview",
				AssignedRoles: []rbac.Role{rbac.RoleUser},
				IsDefault:     true,
			}, rbac.RoleAdmin, 1001)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeUnavailable))

			// the write rolled back with the demotion
			kept, err := service.Get(ctx, "old")
			Expect(err).NotTo(HaveOccurred())
			Expect(kept.IsDefault).To(BeTrue())
		})
	})

	Describe("Update", func() {
		BeforeEach(func() {
			repo.seed(userFocus("u1", "Performance Dashboard"))
		})

		It("applies only the provided fields", func() {
			name := "Performance Overview"
			updated, err := service.Update(ctx, "u1", focus.UpdateFocusDTO{Name: &name}, rbac.RoleAdmin, 1001)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Performance Overview"))
			Expect(updated.AssignedRoles).To(HaveLen(3))
		})

		It("rejects clearing the name", func() {
			empty := ""
			_, err := service.Update(ctx, "u1", focus.UpdateFocusDTO{Name: &empty}, rbac.RoleAdmin, 1001)
			Expect(err).To(HaveOccurred())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Code).To(Equal(internal.ErrCodeEmptyName))
		})

		It("rejects non-admin callers", func() {
			name := "Renamed"
			_, err := service.Update(ctx, "u1", focus.UpdateFocusDTO{Name: &name}, rbac.RoleManager, 1001)
			Expect(err).To(HaveOccurred())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Code).To(Equal(internal.ErrCodePermissionDenied))
		})

		It("returns not found for an unknown id", func() {
			name := "Renamed"
			_, err := service.Update(ctx, "missing", focus.UpdateFocusDTO{Name: &name}, rbac.RoleAdmin, 1001)
			Expect(err).To(HaveOccurred())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Code).To(Equal(internal.ErrCodeFocusNotFound))
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			repo.seed(userFocus("u1", "Performance Dashboard"))
		})

		It("soft-deletes and notifies subscribers before returning", func() {
			var notified string
			bus.Subscribe(events.FocusDeletedEvent, func(_ context.Context, e events.Event) error {
				notified = events.FocusID(e)
				return nil
			})

			Expect(service.Delete(ctx, "u1", rbac.RoleAdmin, 1001)).To(Succeed())
			Expect(notified).To(Equal("u1"))

			_, err := service.Get(ctx, "u1")
			Expect(err).To(HaveOccurred())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Code).To(Equal(internal.ErrCodeFocusNotFound))
		})

		It("rejects non-admin callers", func() {
			err := service.Delete(ctx, "u1", rbac.RoleUser, 1001)
			Expect(err).To(HaveOccurred())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Code).To(Equal(internal.ErrCodePermissionDenied))
		})

		It("returns not found for an unknown id", func() {
			err := service.Delete(ctx, "missing", rbac.RoleAdmin, 1001)
			Expect(err).To(HaveOccurred())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Code).To(Equal(internal.ErrCodeFocusNotFound))
		})
	})
})
