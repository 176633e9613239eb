package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubPinger struct {
	err error
}

func (s stubPinger) PingContext(context.Context) error {
	return s.err
}

var _ = Describe("Health handler", func() {
	It("reports healthy when every backing store answers", func() {
		handler := NewHealthHandler(map[string]Pinger{
			"postgres":    stubPinger{},
			"local_store": stubPinger{},
		})

		rec := httptest.NewRecorder()
		handler.healthCheckHandler(rec, httptest.NewRequest("GET", "/api/v1/health", nil))

		Expect(rec.Code).To(Equal(200))

		var resp HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Status).To(Equal(HealthHealthy))
		Expect(resp.Components).To(HaveLen(2))
	})

	It("turns unhealthy when one store is unreachable", func() {
		handler := NewHealthHandler(map[string]Pinger{
			"postgres":    stubPinger{err: errors.New("connection refused")},
			"local_store": stubPinger{},
		})

		rec := httptest.NewRecorder()
		handler.healthCheckHandler(rec, httptest.NewRequest("GET", "/api/v1/health", nil))

		Expect(rec.Code).To(Equal(503))

		var resp HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Status).To(Equal(HealthUnhealthy))
		Expect(resp.Components["postgres"].Message).To(ContainSubstring("connection refused"))
		Expect(resp.Components["local_store"].Status).To(Equal(HealthHealthy))
	})
})
