package gatepass_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	gatepassPostgres "github.com/frahmantamala/gatepass/internal/gatepass/postgres"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type errorBody struct {
	Error struct {
		Type string `json:"type"`
		Code string `json:"code"`
	} `json:"error"`
}

var _ = Describe("Gate Pass Handler", func() {
	var router chi.Router

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo := gatepassPostgres.NewGatePassRepository(openTestDB())
		h := gatepass.NewHandler(gatepass.NewService(repo, newDirectory(), nil, lg), lg)

		router = chi.NewRouter()
		router.Post("/gatepasses", h.Submit)
		router.Get("/gatepasses/pending", h.ListPending)
		router.Get("/gatepasses/{id}", h.Get)
		router.Get("/gatepasses/{id}/pass", h.Pass)
		router.Put("/gatepasses/{id}/approve", h.Approve)
		router.Put("/gatepasses/{id}/reject", h.Reject)
		router.Delete("/gatepasses/{id}", h.Delete)
	})

	do := func(method, path, body string, actor *user.Actor, headers ...string) *httptest.ResponseRecorder {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, r)
		req.Header.Set("Content-Type", "application/json")
		for i := 0; i+1 < len(headers); i += 2 {
			req.Header.Set(headers[i], headers[i+1])
		}
		if actor != nil {
			req = req.WithContext(internal.ContextWithActor(req.Context(), *actor))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	submitJSON := func() string {
		raw, err := json.Marshal(validSubmission())
		Expect(err).NotTo(HaveOccurred())
		return string(raw)
	}

	submitted := func() *gatepass.GatePassRequest {
		rec := do(http.MethodPost, "/gatepasses", submitJSON(), &student)
		Expect(rec.Code).To(Equal(http.StatusCreated))
		var g gatepass.GatePassRequest
		Expect(json.Unmarshal(rec.Body.Bytes(), &g)).To(Succeed())
		return &g
	}

	decodeError := func(rec *httptest.ResponseRecorder) errorBody {
		var body errorBody
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body
	}

	It("should require an authenticated caller", func() {
		rec := do(http.MethodPost, "/gatepasses", submitJSON(), nil)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should create a request and show it to the student", func() {
		g := submitted()
		Expect(g.Status).To(Equal(gatepass.StatusPendingTutor))

		rec := do(http.MethodGet, "/gatepasses/"+strconv.FormatInt(g.ID, 10), "", &student)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should report a missing body as a validation error", func() {
		rec := do(http.MethodPost, "/gatepasses", "", &student)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should approve without a body and return the new version as ETag", func() {
		g := submitted()
		rec := do(http.MethodPut, "/gatepasses/"+strconv.FormatInt(g.ID, 10)+"/approve", "", &tutor)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("ETag")).To(Equal(`"2"`))
	})

	It("should answer a stale If-Match with a version conflict", func() {
		g := submitted()
		rec := do(http.MethodPut, "/gatepasses/"+strconv.FormatInt(g.ID, 10)+"/approve", "", &tutor, "If-Match", `"5"`)
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(decodeError(rec).Error.Code).To(Equal(string(internal.ErrCodeVersionConflict)))
	})

	It("should refuse a malformed version", func() {
		g := submitted()
		rec := do(http.MethodPut, "/gatepasses/"+strconv.FormatInt(g.ID, 10)+"/approve?version=abc", "", &tutor)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should take the reject reason from the body", func() {
		g := submitted()
		rec := do(http.MethodPut, "/gatepasses/"+strconv.FormatInt(g.ID, 10)+"/reject", `{"reason":"exam week","version":1}`, &tutor)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodPut, "/gatepasses/"+strconv.FormatInt(g.ID, 10)+"/approve", "", &tutor)
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(decodeError(rec).Error.Type).To(Equal(string(internal.ErrorTypeInvalidState)))
	})

	It("should forbid approvers who are not assigned", func() {
		g := submitted()
		stranger := user.Actor{ID: otherTutor, Role: user.RoleTutor}
		rec := do(http.MethodPut, "/gatepasses/"+strconv.FormatInt(g.ID, 10)+"/approve", "", &stranger)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("should list the tutor queue", func() {
		submitted()
		rec := do(http.MethodGet, "/gatepasses/pending?limit=5", "", &tutor)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp gatepass.ListResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Items).To(HaveLen(1))
		Expect(resp.Limit).To(Equal(5))

		rec = do(http.MethodGet, "/gatepasses/pending?limit=x", "", &tutor)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should serve the printable pass once approved", func() {
		g := submitted()
		path := "/gatepasses/" + strconv.FormatInt(g.ID, 10)
		Expect(do(http.MethodGet, path+"/pass", "", &security).Code).To(Equal(http.StatusConflict))

		Expect(do(http.MethodPut, path+"/approve", "", &tutor).Code).To(Equal(http.StatusOK))
		Expect(do(http.MethodPut, path+"/approve", "", &warden).Code).To(Equal(http.StatusOK))

		rec := do(http.MethodGet, path+"/pass", "", &security)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/pdf"))
		Expect(rec.Body.String()).To(HavePrefix("%PDF"))
	})

	It("should delete a fresh request", func() {
		g := submitted()
		rec := do(http.MethodDelete, "/gatepasses/"+strconv.FormatInt(g.ID, 10), "", &student)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodGet, "/gatepasses/"+strconv.FormatInt(g.ID, 10), "", &student)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject a non numeric id", func() {
		rec := do(http.MethodGet, "/gatepasses/abc", "", &student)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
