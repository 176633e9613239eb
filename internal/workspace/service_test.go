package workspace_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/core/events"
	"github.com/frahmantamala/workspace-management/internal/workspace"
)

type storedDoc struct {
	raw       []byte
	updatedAt time.Time
}

type mockSnapshotStore struct {
	mu   sync.Mutex
	docs map[string]storedDoc
	err  error
}

func newMockSnapshotStore() *mockSnapshotStore {
	return &mockSnapshotStore{docs: make(map[string]storedDoc)}
}

func (m *mockSnapshotStore) LoadLayout(_ context.Context, key string) ([]byte, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, time.Time{}, m.err
	}
	doc, ok := m.docs[key]
	if !ok {
		return nil, time.Time{}, workspace.ErrAbsent
	}
	return doc.raw, doc.updatedAt, nil
}

func (m *mockSnapshotStore) CompareAndSwapLayout(_ context.Context, key string, raw []byte, base time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if existing, ok := m.docs[key]; ok && existing.updatedAt.After(base) {
		return internal.ErrSnapshotStale
	}
	m.docs[key] = storedDoc{raw: raw, updatedAt: time.Now()}
	return nil
}

func (m *mockSnapshotStore) seed(key string, raw []byte, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = storedDoc{raw: raw, updatedAt: at}
}

var _ = Describe("Snapshot Service", func() {
	var (
		focusStore *mockSnapshotStore
		localStore *mockSnapshotStore
		service    *workspace.Service
		ctx        context.Context
	)

	BeforeEach(func() {
		focusStore = newMockSnapshotStore()
		localStore = newMockSnapshotStore()
		logger := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		service = workspace.NewService(focusStore, localStore, events.NewEventBus(logger), logger)
		ctx = context.Background()
	})

	populated := func() *workspace.Snapshot {
		leaf, err := json.Marshal(workspace.LeafData{
			ID:    "panel-1",
			Views: []json.RawMessage{json.RawMessage(`{"name":"main"}`)},
		})
		Expect(err).NotTo(HaveOccurred())
		children, err := json.Marshal([]workspace.PanelNode{
			{Type: workspace.NodeLeaf, Data: leaf},
		})
		Expect(err).NotTo(HaveOccurred())

		snap := workspace.DefaultSnapshot()
		snap.PanelDocument.Panels["panel-1"] = json.RawMessage(`{"kind":"chart"}`)
		snap.PanelDocument.Grid.Root = workspace.PanelNode{Type: workspace.NodeBranch, Data: children}
		snap.GlobalFilters = map[string]string{"region": "emea"}
		return snap
	}

	Describe("save then load", func() {
		It("round-trips a snapshot through the focus store", func() {
			snap := populated()
			Expect(service.SaveFocus(ctx, "focus-1", snap, time.Time{}, 1001)).To(Succeed())

			result, err := service.LoadFocus(ctx, "focus-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.State).To(Equal(workspace.StateValid))
			Expect(result.Notice).To(BeEmpty())
			Expect(result.Snapshot.Version).To(Equal(workspace.CurrentSchemaVersion))
			Expect(result.Snapshot.GlobalFilters).To(Equal(map[string]string{"region": "emea"}))
			Expect(result.Snapshot.PanelDocument.Panels).To(HaveKey("panel-1"))
			Expect(result.UpdatedAt).NotTo(BeZero())
		})

		It("round-trips through the local store independently of the focus store", func() {
			Expect(service.SaveLocal(ctx, "user:1001", populated(), time.Time{}, 1001)).To(Succeed())

			result, err := service.LoadLocal(ctx, "user:1001")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.State).To(Equal(workspace.StateValid))

			focusResult, err := service.LoadFocus(ctx, "user:1001")
			Expect(err).NotTo(HaveOccurred())
			Expect(focusResult.State).To(Equal(workspace.StateAbsent))
		})

		It("stamps the current schema version regardless of what the client sent", func() {
			snap := populated()
			snap.Version = 2
			Expect(service.SaveFocus(ctx, "focus-1", snap, time.Time{}, 1001)).To(Succeed())

			result, err := service.LoadFocus(ctx, "focus-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.State).To(Equal(workspace.StateValid))
			Expect(result.Snapshot.Version).To(Equal(workspace.CurrentSchemaVersion))
		})
	})

	Describe("stale saves", func() {
		It("rejects a save whose base predates a newer stored write", func() {
			Expect(service.SaveFocus(ctx, "focus-1", populated(), time.Time{}, 1001)).To(Succeed())

			stale := time.Now().Add(-time.Hour)
			err := service.SaveFocus(ctx, "focus-1", populated(), stale, 1002)
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeSnapshotStale))
		})

		It("accepts a save whose base matches the last observed write", func() {
			Expect(service.SaveFocus(ctx, "focus-1", populated(), time.Time{}, 1001)).To(Succeed())

			result, err := service.LoadFocus(ctx, "focus-1")
			Expect(err).NotTo(HaveOccurred())

			Expect(service.SaveFocus(ctx, "focus-1", populated(), result.UpdatedAt, 1001)).To(Succeed())
		})
	})

	Describe("restoring damaged or missing documents", func() {
		It("returns a fresh default when nothing is stored", func() {
			result, err := service.LoadFocus(ctx, "focus-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.State).To(Equal(workspace.StateAbsent))
			Expect(result.Snapshot.Version).To(Equal(workspace.CurrentSchemaVersion))
			Expect(result.Notice).To(BeEmpty())
		})

		It("discards a corrupt document and says so", func() {
			focusStore.seed("focus-1", []byte(`{"version": 6, "panelDocument": "broken"}`), time.Now())

			result, err := service.LoadFocus(ctx, "focus-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.State).To(Equal(workspace.StateCorrupt))
			Expect(result.Snapshot.PanelDocument.Panels).To(BeEmpty())
			Expect(result.Notice).NotTo(BeEmpty())
		})

		It("discards a document with a stale schema version", func() {
			raw := snapshotJSON(func(doc map[string]interface{}) {
				doc["version"] = workspace.CurrentSchemaVersion - 1
			})
			focusStore.seed("focus-1", raw, time.Now())

			result, err := service.LoadFocus(ctx, "focus-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.State).To(Equal(workspace.StateVersionMismatch))
			Expect(result.Snapshot.Version).To(Equal(workspace.CurrentSchemaVersion))
			Expect(result.Notice).NotTo(BeEmpty())
		})

		It("never persists the replacement default on its own", func() {
			focusStore.seed("focus-1", []byte(`garbage`), time.Now())

			_, err := service.LoadFocus(ctx, "focus-1")
			Expect(err).NotTo(HaveOccurred())

			raw, _, loadErr := focusStore.LoadLayout(ctx, "focus-1")
			Expect(loadErr).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal("garbage"))
		})
	})

	Describe("save validation", func() {
		It("refuses to persist a snapshot that would not restore", func() {
			snap := populated()
			snap.PanelDocument.Grid.Root = workspace.PanelNode{Type: "column", Data: json.RawMessage(`[]`)}

			err := service.SaveFocus(ctx, "focus-1", snap, time.Time{}, 1001)
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeLayoutCorrupt))

			_, _, loadErr := focusStore.LoadLayout(ctx, "focus-1")
			Expect(loadErr).To(MatchError(workspace.ErrAbsent))
		})

		It("rejects a nil snapshot", func() {
			err := service.SaveFocus(ctx, "focus-1", nil, time.Time{}, 1001)
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})
	})

	Describe("store failures", func() {
		It("wraps unexpected load failures as unavailable", func() {
			focusStore.err = context.DeadlineExceeded

			_, err := service.LoadFocus(ctx, "focus-1")
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeUnavailable))
		})

		It("wraps unexpected save failures as unavailable", func() {
			focusStore.err = context.DeadlineExceeded

			err := service.SaveFocus(ctx, "focus-1", populated(), time.Time{}, 1001)
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeUnavailable))
		})
	})
})
