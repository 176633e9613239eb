package rest_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rest Suite")
}

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile(filepath.Join("..", "..", "..", "api", "openapi.yml"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("validates against the OpenAPI 3 schema", func() {
		Expect(doc.Validate(context.Background())).To(Succeed())
	})

	It("documents every mounted route", func() {
		expected := []string{
			"/health",
			"/ping",
			"/auth/request-code",
			"/auth/verify",
			"/auth/refresh",
			"/auth/logout",
			"/users/me",
			"/users",
			"/users/mappings",
			"/users/{id}",
			"/users/{id}/role",
			"/focuses",
			"/focuses/{id}",
			"/preferences",
			"/preferences/favorites/{focusID}",
			"/preferences/selection",
			"/preferences/custom-layout/{focusID}",
			"/workspace/focuses/{id}/snapshot",
			"/workspace/local",
		}
		for _, path := range expected {
			Expect(doc.Paths.Value(path)).NotTo(BeNil(), "missing path %s", path)
		}
	})

	It("requires bearer auth on protected operations", func() {
		protected := doc.Paths.Value("/users/me").Get
		Expect(protected.Security).NotTo(BeNil())
		Expect(*protected.Security).NotTo(BeEmpty())
	})

	It("keeps the snapshot schema in step with the persisted layout shape", func() {
		snapshot := doc.Components.Schemas["Snapshot"]
		Expect(snapshot).NotTo(BeNil())
		Expect(snapshot.Value.Required).To(ContainElements("version", "panelDocument"))
	})
})
