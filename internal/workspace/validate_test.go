package workspace_test

import (
	"encoding/json"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/workspace-management/internal/workspace"
)

func TestWorkspace(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Workspace Suite")
}

func snapshotJSON(mutate func(doc map[string]interface{})) []byte {
	raw, err := json.Marshal(workspace.DefaultSnapshot())
	Expect(err).NotTo(HaveOccurred())
	var doc map[string]interface{}
	Expect(json.Unmarshal(raw, &doc)).To(Succeed())
	if mutate != nil {
		mutate(doc)
	}
	out, err := json.Marshal(doc)
	Expect(err).NotTo(HaveOccurred())
	return out
}

var _ = Describe("Validate", func() {
	It("accepts the default snapshot", func() {
		Expect(workspace.Validate(snapshotJSON(nil))).To(Equal(workspace.StateValid))
	})

	It("accepts a populated tree of branches and leaves", func() {
		raw := []byte(fmt.Sprintf(`{
			"version": %d,
			"panelDocument": {
				"panels": {"p1": {"kind": "chart"}},
				"grid": {
					"root": {
						"type": "branch",
						"data": [
							{"type": "leaf", "data": {"id": "p1", "views": [{"name": "main"}]}},
							{"type": "branch", "data": [], "size": 0.5}
						]
					}
				}
			},
			"sidebar": {"collapsed": true, "width": 280},
			"globalFilters": {"region": "emea"}
		}`, workspace.CurrentSchemaVersion))
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateValid))
	})

	It("rejects empty input", func() {
		Expect(workspace.Validate(nil)).To(Equal(workspace.StateCorrupt))
		Expect(workspace.Validate([]byte{})).To(Equal(workspace.StateCorrupt))
	})

	It("rejects non-JSON input", func() {
		Expect(workspace.Validate([]byte("not json at all"))).To(Equal(workspace.StateCorrupt))
	})

	It("rejects a document without a version field", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			delete(doc, "version")
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateCorrupt))
	})

	It("classifies an older schema version as a mismatch, not corruption", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			doc["version"] = workspace.CurrentSchemaVersion - 1
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateVersionMismatch))
	})

	It("classifies a newer schema version as a mismatch", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			doc["version"] = workspace.CurrentSchemaVersion + 1
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateVersionMismatch))
	})

	It("rejects a missing panel document", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			delete(doc, "panelDocument")
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateCorrupt))
	})

	It("rejects a grid node with an unknown type", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			pd := doc["panelDocument"].(map[string]interface{})
			pd["grid"] = map[string]interface{}{
				"root": map[string]interface{}{"type": "column", "data": []interface{}{}},
			}
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateCorrupt))
	})

	It("rejects a grid node with no type at all", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			pd := doc["panelDocument"].(map[string]interface{})
			pd["grid"] = map[string]interface{}{
				"root": map[string]interface{}{"data": []interface{}{}},
			}
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateCorrupt))
	})

	It("rejects a leaf without an id", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			pd := doc["panelDocument"].(map[string]interface{})
			pd["grid"] = map[string]interface{}{
				"root": map[string]interface{}{
					"type": "leaf",
					"data": map[string]interface{}{"views": []interface{}{map[string]interface{}{}}},
				},
			}
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateCorrupt))
	})

	It("rejects a leaf with no views", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			pd := doc["panelDocument"].(map[string]interface{})
			pd["grid"] = map[string]interface{}{
				"root": map[string]interface{}{
					"type": "leaf",
					"data": map[string]interface{}{"id": "p1", "views": []interface{}{}},
				},
			}
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateCorrupt))
	})

	It("rejects corruption buried deep in a branch", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			pd := doc["panelDocument"].(map[string]interface{})
			pd["grid"] = map[string]interface{}{
				"root": map[string]interface{}{
					"type": "branch",
					"data": []interface{}{
						map[string]interface{}{
							"type": "branch",
							"data": []interface{}{
								map[string]interface{}{"type": "leaf", "data": map[string]interface{}{"id": "", "views": []interface{}{}}},
							},
						},
					},
				},
			}
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateCorrupt))
	})

	It("rejects a mistyped sidebar section", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			doc["sidebar"] = map[string]interface{}{"collapsed": "yes", "width": 280}
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateCorrupt))
	})

	It("rejects global filters that are not a string map", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			doc["globalFilters"] = []interface{}{"region"}
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateCorrupt))
	})

	It("tolerates absent optional sections", func() {
		raw := snapshotJSON(func(doc map[string]interface{}) {
			delete(doc, "sidebar")
			delete(doc, "appearance")
			delete(doc, "globalFilters")
		})
		Expect(workspace.Validate(raw)).To(Equal(workspace.StateValid))
	})
})

var _ = Describe("DefaultSnapshot", func() {
	It("carries the current schema version and an empty branch root", func() {
		snap := workspace.DefaultSnapshot()
		Expect(snap.Version).To(Equal(workspace.CurrentSchemaVersion))
		Expect(snap.PanelDocument.Panels).To(BeEmpty())
		Expect(snap.PanelDocument.Grid.Root.Type).To(Equal(workspace.NodeBranch))
		Expect(snap.Sidebar.Width).To(Equal(280))
		Expect(snap.Appearance.FontFamily).To(Equal("Inter"))
	})
})
