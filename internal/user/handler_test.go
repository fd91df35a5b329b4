package user_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"

	"github.com/frahmantamala/gatepass/internal"
	coreuser "github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/transport"
	"github.com/frahmantamala/gatepass/internal/user"
	userPostgres "github.com/frahmantamala/gatepass/internal/user/postgres"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = Describe("User Handler Integration", func() {
	var (
		router  chi.Router
		service *user.Service
		student *user.User
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = user.NewService(userPostgres.NewUserRepository(openTestDB()), nil, bcrypt.MinCost, slogger)
		handler := user.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		var err error
		student, err = service.Create(context.Background(), user.CreateUserDTO{Name: "Stu", Username: "stu", Password: "secret1", Role: "STUDENT"})
		Expect(err).NotTo(HaveOccurred())
		_, err = service.Create(context.Background(), user.CreateUserDTO{Name: "Wanda", Username: "wanda", Password: "secret1", Role: "WARDEN"})
		Expect(err).NotTo(HaveOccurred())

		router = chi.NewRouter()
		router.Get("/users/me", handler.GetCurrentUser)
		router.Put("/users/me/profile", handler.UpdateProfile)
		router.Get("/users/role/{role}", handler.ListByRole)
		router.Put("/admin/users/{id}", handler.Update)
	})

	as := func(req *http.Request, a coreuser.Actor) *http.Request {
		return req.WithContext(internal.ContextWithActor(req.Context(), a))
	}

	It("should return the current user without the password hash", func() {
		req := as(httptest.NewRequest(http.MethodGet, "/users/me", nil), coreuser.Actor{ID: student.ID, Role: coreuser.RoleStudent})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).NotTo(ContainSubstring("password"))

		var got user.User
		Expect(json.NewDecoder(w.Body).Decode(&got)).To(Succeed())
		Expect(got.Username).To(Equal("stu"))
	})

	It("should reply 401 without an actor", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/me", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should list wardens for the picker", func() {
		req := as(httptest.NewRequest(http.MethodGet, "/users/role/warden", nil), coreuser.Actor{ID: student.ID, Role: coreuser.RoleStudent})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var got user.OptionsResponse
		Expect(json.NewDecoder(w.Body).Decode(&got)).To(Succeed())
		Expect(got.Items).To(HaveLen(1))
		Expect(got.Items[0].Name).To(Equal("Wanda"))
	})

	It("should reply 400 for an unknown role", func() {
		req := as(httptest.NewRequest(http.MethodGet, "/users/role/dean", nil), coreuser.Actor{ID: student.ID, Role: coreuser.RoleStudent})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(`"code":"INVALID_ROLE"`))
	})

	It("should reply 409 when renaming onto a taken username", func() {
		body := strings.NewReader(`{"name":"Stu","username":"wanda","role":"STUDENT"}`)
		req := httptest.NewRequest(http.MethodPut, "/admin/users/"+strconv.FormatInt(student.ID, 10), body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(w.Body.String()).To(ContainSubstring(`"code":"USERNAME_TAKEN"`))
	})

	It("should reply 400 for a malformed profile body", func() {
		req := as(httptest.NewRequest(http.MethodPut, "/users/me/profile", strings.NewReader("{")), coreuser.Actor{ID: student.ID, Role: coreuser.RoleStudent})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
