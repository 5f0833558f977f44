package middleware_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/markdown-dms/backend/internal/middleware"
)

var _ = Describe("CORS", func() {
	var (
		handler http.Handler
		served  bool
	)

	build := func(origins, methods, headers []string) {
		served = false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			served = true
			w.WriteHeader(http.StatusOK)
		})
		handler = middleware.CORS(middleware.NewCORSPolicy(origins, methods, headers), next)
	}

	do := func(method, origin string, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/health", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	Context("with explicit origins", func() {
		BeforeEach(func() {
			build([]string{"http://localhost:3000", "http://localhost:5173"}, []string{"*"}, []string{"*"})
		})

		It("should echo an allowed origin with credentials", func() {
			rec := do(http.MethodGet, "http://localhost:3000", nil)

			Expect(served).To(BeTrue())
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:3000"))
			Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
			Expect(rec.Header().Values("Vary")).To(ContainElement("Origin"))
			Expect(rec.Header().Get("Access-Control-Expose-Headers")).To(Equal("X-Request-ID"))
		})

		It("should serve a disallowed origin without CORS headers", func() {
			rec := do(http.MethodGet, "http://evil.example", nil)

			Expect(served).To(BeTrue())
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
			Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(BeEmpty())
		})

		It("should leave requests without an Origin alone", func() {
			rec := do(http.MethodGet, "", nil)

			Expect(served).To(BeTrue())
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
		})

		It("should answer a valid preflight", func() {
			rec := do(http.MethodOptions, "http://localhost:5173", map[string]string{
				"Access-Control-Request-Method":  "PUT",
				"Access-Control-Request-Headers": "Authorization, X-Custom",
			})

			Expect(served).To(BeFalse())
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("OK"))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:5173"))
			Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
			Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("PUT"))
			Expect(rec.Header().Get("Access-Control-Allow-Headers")).To(Equal("authorization, x-custom"))
			Expect(rec.Header().Get("Access-Control-Max-Age")).To(Equal("600"))
		})

		It("should reject a preflight from a disallowed origin", func() {
			rec := do(http.MethodOptions, "http://evil.example", map[string]string{
				"Access-Control-Request-Method": "GET",
			})

			Expect(served).To(BeFalse())
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(Equal("Disallowed CORS origin"))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
		})

		It("should pass a plain OPTIONS request through", func() {
			do(http.MethodOptions, "http://localhost:3000", nil)
			Expect(served).To(BeTrue())
		})
	})

	Context("with restricted methods and headers", func() {
		BeforeEach(func() {
			build([]string{"http://localhost:3000"}, []string{"GET", "post"}, []string{"Authorization"})
		})

		It("should list only the allowed methods and headers", func() {
			rec := do(http.MethodOptions, "http://localhost:3000", map[string]string{
				"Access-Control-Request-Method":  "POST",
				"Access-Control-Request-Headers": "authorization, content-type",
			})

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(Equal("GET, POST"))
			Expect(rec.Header().Get("Access-Control-Allow-Headers")).To(Equal("authorization, accept, accept-language, content-language, content-type"))
		})

		It("should name every failing part of a preflight", func() {
			rec := do(http.MethodOptions, "http://other.example", map[string]string{
				"Access-Control-Request-Method":  "DELETE",
				"Access-Control-Request-Headers": "X-Secret",
			})

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(Equal("Disallowed CORS origin, method, headers"))
		})

		It("should reject a disallowed method", func() {
			rec := do(http.MethodOptions, "http://localhost:3000", map[string]string{
				"Access-Control-Request-Method": "DELETE",
			})

			Expect(rec.Body.String()).To(Equal("Disallowed CORS method"))
		})
	})

	Context("with the wildcard origin", func() {
		BeforeEach(func() {
			build([]string{"*"}, []string{"*"}, []string{"*"})
		})

		It("should allow any origin without credentials", func() {
			rec := do(http.MethodGet, "http://anything.example", nil)

			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(BeEmpty())
		})

		It("should still echo explicitly listed origins", func() {
			build([]string{"*", "http://localhost:3000"}, []string{"*"}, []string{"*"})
			rec := do(http.MethodGet, "http://localhost:3000", nil)

			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:3000"))
			Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
		})
	})
})
