package gatepass_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/gatepass/internal"
	gatepassDatamodel "github.com/frahmantamala/gatepass/internal/core/datamodel/gatepass"
	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	gatepassPostgres "github.com/frahmantamala/gatepass/internal/gatepass/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	studentID   int64 = 1
	tutorID     int64 = 2
	wardenID    int64 = 3
	otherTutor  int64 = 4
	securityID  int64 = 5
	adminID     int64 = 6
	otherPupil  int64 = 7
	otherWarden int64 = 8
)

var (
	student  = user.Actor{ID: studentID, Name: "Stu Dent", Role: user.RoleStudent}
	tutor    = user.Actor{ID: tutorID, Name: "Tara", Role: user.RoleTutor}
	warden   = user.Actor{ID: wardenID, Name: "Wade", Role: user.RoleWarden}
	security = user.Actor{ID: securityID, Role: user.RoleSecurity}
	admin    = user.Actor{ID: adminID, Role: user.RoleAdmin}
)

type fakeDirectory map[int64]user.Role

func (f fakeDirectory) LookupRole(_ context.Context, id int64) (user.Role, error) {
	role, ok := f[id]
	if !ok {
		return "", user.ErrNotFound
	}
	return role, nil
}

func newDirectory() fakeDirectory {
	return fakeDirectory{
		studentID:   user.RoleStudent,
		tutorID:     user.RoleTutor,
		wardenID:    user.RoleWarden,
		otherTutor:  user.RoleTutor,
		securityID:  user.RoleSecurity,
		adminID:     user.RoleAdmin,
		otherPupil:  user.RoleStudent,
		otherWarden: user.RoleWarden,
	}
}

type capturePublisher struct {
	mu     sync.Mutex
	events []*events.GatePassEvent
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.(*events.GatePassEvent))
	return nil
}

func (p *capturePublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type memoryCache struct {
	mu         sync.Mutex
	entries    map[string][]byte
	hits       int
	misses     int
	invalidate int
	// beforeSet runs once, ahead of the next SetJSON.
	beforeSet func()
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dst interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		c.misses++
		return errors.New("miss")
	}
	c.hits++
	return json.Unmarshal(raw, dst)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidate++
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

type transitionCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (t *transitionCounter) IncTransition(action, toStatus string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[action+"->"+toStatus]++
}

func openTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	Expect(err).NotTo(HaveOccurred())
	sqlDB, err := db.DB()
	Expect(err).NotTo(HaveOccurred())
	sqlDB.SetMaxOpenConns(1)
	Expect(db.AutoMigrate(&gatepassDatamodel.GatePassRequest{}, &gatepassDatamodel.Transition{})).To(Succeed())
	return db
}

func validSubmission() gatepass.SubmitGatePassDTO {
	return gatepass.SubmitGatePassDTO{
		RollNumber:   "CS-2021-042",
		MobileNumber: "555-0100",
		Department:   "Computer Science",
		Year:         3,
		ClassSection: "B",
		Purpose:      "Family function in hometown",
		TutorID:      tutorID,
		WardenID:     wardenID,
	}
}

func appErrorType(err error) internal.ErrorType {
	var appErr *internal.AppError
	Expect(errors.As(err, &appErr)).To(BeTrue(), "expected an AppError, got %v", err)
	return appErr.Type
}

var _ = Describe("Gate Pass Service", func() {
	var (
		ctx       context.Context
		service   *gatepass.Service
		publisher *capturePublisher
		cache     *memoryCache
		recorder  *transitionCounter
	)

	BeforeEach(func() {
		ctx = context.Background()
		publisher = &capturePublisher{}
		cache = newMemoryCache()
		recorder = &transitionCounter{counts: map[string]int{}}
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo := gatepassPostgres.NewGatePassRepository(openTestDB())
		service = gatepass.NewService(repo, newDirectory(), publisher, lg,
			gatepass.WithCache(cache, time.Minute),
			gatepass.WithRecorder(recorder))
	})

	submit := func() *gatepass.GatePassRequest {
		g, err := service.Submit(ctx, student, validSubmission())
		Expect(err).NotTo(HaveOccurred())
		return g
	}

	Describe("Submit", func() {
		It("should create a request pending tutor approval", func() {
			g := submit()
			Expect(g.ID).To(BeNumerically(">", 0))
			Expect(g.Status).To(Equal(gatepass.StatusPendingTutor))
			Expect(g.Version).To(Equal(int64(1)))
			Expect(g.StudentID).To(Equal(studentID))
			Expect(g.StudentName).To(Equal("Stu Dent"))

			ts, err := service.Transitions(ctx, g.ID, student)
			Expect(err).NotTo(HaveOccurred())
			Expect(ts).To(HaveLen(1))
			Expect(ts[0].Action).To(Equal(gatepass.ActionSubmit))
			Expect(ts[0].FromStatus).To(BeEmpty())
			Expect(publisher.Types()).To(Equal([]string{events.EventTypeGatePassSubmitted}))
			Expect(recorder.counts["submit->PENDING_TUTOR_APPROVAL"]).To(Equal(1))
		})

		It("should only accept students", func() {
			_, err := service.Submit(ctx, tutor, validSubmission())
			Expect(errors.Is(err, gatepass.ErrRoleNotAllowed)).To(BeTrue())
		})

		It("should refuse submitting on behalf of someone else", func() {
			dto := validSubmission()
			dto.StudentID = otherPupil
			_, err := service.Submit(ctx, student, dto)
			Expect(errors.Is(err, gatepass.ErrNotOwner)).To(BeTrue())
		})

		It("should validate required fields", func() {
			dto := validSubmission()
			dto.Purpose = "   "
			dto.Year = 0
			_, err := service.Submit(ctx, student, dto)
			Expect(appErrorType(err)).To(Equal(internal.ErrorTypeValidation))
		})

		It("should require the tutor to be a tutor account", func() {
			dto := validSubmission()
			dto.TutorID = wardenID
			_, err := service.Submit(ctx, student, dto)
			Expect(appErrorType(err)).To(Equal(internal.ErrorTypeValidation))
			Expect(err.Error()).To(ContainSubstring("tutor"))
		})

		It("should report an unknown approver", func() {
			dto := validSubmission()
			dto.WardenID = 404
			_, err := service.Submit(ctx, student, dto)
			Expect(errors.Is(err, gatepass.ErrApproverNotFound)).To(BeTrue())
		})
	})

	Describe("Approval chain", func() {
		It("should go through tutor then warden", func() {
			g := submit()

			g, err := service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Status).To(Equal(gatepass.StatusPendingWarden))
			Expect(g.Version).To(Equal(int64(2)))

			g, err = service.Approve(ctx, g.ID, warden, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Status).To(Equal(gatepass.StatusApproved))
			Expect(g.Version).To(Equal(int64(3)))

			ts, err := service.Transitions(ctx, g.ID, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(ts).To(HaveLen(3))
			Expect(ts[1].FromStatus).To(Equal(gatepass.StatusPendingTutor))
			Expect(ts[2].ActorID).To(Equal(wardenID))

			Expect(publisher.Types()).To(Equal([]string{
				events.EventTypeGatePassSubmitted,
				events.EventTypeGatePassApproved,
				events.EventTypeGatePassApproved,
			}))
		})

		It("should refuse an approver who is not assigned", func() {
			g := submit()
			_, err := service.Approve(ctx, g.ID, user.Actor{ID: otherTutor, Role: user.RoleTutor}, nil)
			Expect(errors.Is(err, gatepass.ErrNotAssigned)).To(BeTrue())
		})

		It("should refuse a warden before the tutor has approved", func() {
			g := submit()
			_, err := service.Approve(ctx, g.ID, warden, nil)
			Expect(errors.Is(err, gatepass.ErrInvalidState)).To(BeTrue())
		})

		It("should check the role before anything else", func() {
			_, err := service.Approve(ctx, 999, student, nil)
			Expect(errors.Is(err, gatepass.ErrRoleNotAllowed)).To(BeTrue())

			_, err = service.Approve(ctx, 999, tutor, nil)
			Expect(errors.Is(err, gatepass.ErrRequestNotFound)).To(BeTrue())
		})

		It("should check assignment before state", func() {
			g := submit()
			_, err := service.Approve(ctx, g.ID, user.Actor{ID: otherWarden, Role: user.RoleWarden}, nil)
			Expect(errors.Is(err, gatepass.ErrNotAssigned)).To(BeTrue())
		})
	})

	Describe("Reject", func() {
		It("should end the workflow and keep the reason in the ledger", func() {
			g := submit()
			g, err := service.Reject(ctx, g.ID, tutor, "  exam week  ", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Status).To(Equal(gatepass.StatusRejected))

			ts, err := service.Transitions(ctx, g.ID, student)
			Expect(err).NotTo(HaveOccurred())
			Expect(ts[len(ts)-1].Reason).To(Equal("exam week"))

			_, err = service.Modify(ctx, g.ID, tutor, nil)
			Expect(errors.Is(err, gatepass.ErrInvalidState)).To(BeTrue())
			_, err = service.Approve(ctx, g.ID, tutor, nil)
			Expect(errors.Is(err, gatepass.ErrInvalidState)).To(BeTrue())
		})

		It("should let the warden reject once the tutor approved", func() {
			g := submit()
			_, err := service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())
			g, err = service.Reject(ctx, g.ID, warden, "", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Status).To(Equal(gatepass.StatusRejected))
		})
	})

	Describe("Modify", func() {
		It("should let the tutor pull a request back from the warden", func() {
			g := submit()
			_, err := service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())

			g, err = service.Modify(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Status).To(Equal(gatepass.StatusPendingTutor))
			Expect(g.Version).To(Equal(int64(3)))

			resp, err := service.ListPendingFor(ctx, tutor, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(HaveLen(1))
			Expect(resp.Items[0].ID).To(Equal(g.ID))

			resp, err = service.ListPendingFor(ctx, warden, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(BeEmpty())
		})

		It("should let the warden revoke an approval and drop the approved cache", func() {
			g := submit()
			_, err := service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, g.ID, warden, nil)
			Expect(err).NotTo(HaveOccurred())
			invalidations := cache.invalidate

			_, err = service.Modify(ctx, g.ID, tutor, nil)
			Expect(errors.Is(err, gatepass.ErrInvalidState)).To(BeTrue())

			g, err = service.Modify(ctx, g.ID, warden, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Status).To(Equal(gatepass.StatusPendingWarden))
			Expect(cache.invalidate).To(Equal(invalidations + 1))
		})
	})

	Describe("Optimistic concurrency", func() {
		It("should refuse a stale version", func() {
			g := submit()
			stale := int64(7)
			_, err := service.Approve(ctx, g.ID, tutor, &stale)
			Expect(errors.Is(err, gatepass.ErrVersionConflict)).To(BeTrue())

			current := g.Version
			g, err = service.Approve(ctx, g.ID, tutor, &current)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Version).To(Equal(current + 1))
		})

		It("should let exactly one of two simultaneous approvals win", func() {
			g := submit()

			var wg sync.WaitGroup
			results := make([]error, 2)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, results[i] = service.Approve(ctx, g.ID, tutor, nil)
				}(i)
			}
			wg.Wait()

			var wins int
			for _, err := range results {
				if err == nil {
					wins++
					continue
				}
				Expect(errors.Is(err, gatepass.ErrInvalidState) || errors.Is(err, gatepass.ErrVersionConflict)).To(BeTrue())
			}
			Expect(wins).To(Equal(1))

			ts, err := service.Transitions(ctx, g.ID, tutor)
			Expect(err).NotTo(HaveOccurred())
			Expect(ts).To(HaveLen(2))
		})
	})

	Describe("Delete", func() {
		It("should remove a request nobody acted on", func() {
			g := submit()
			Expect(service.Delete(ctx, g.ID, student)).To(Succeed())

			_, err := service.Get(ctx, g.ID, student)
			Expect(errors.Is(err, gatepass.ErrRequestNotFound)).To(BeTrue())
			Expect(publisher.Types()).To(ContainElement(events.EventTypeGatePassDeleted))
		})

		It("should refuse once the tutor has approved", func() {
			g := submit()
			_, err := service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(errors.Is(service.Delete(ctx, g.ID, student), gatepass.ErrNotDeletable)).To(BeTrue())

			kept, err := service.Get(ctx, g.ID, student)
			Expect(err).NotTo(HaveOccurred())
			Expect(kept.Status).To(Equal(gatepass.StatusPendingWarden))
			Expect(kept.Version).To(Equal(int64(2)))
		})

		It("should only let the owner delete", func() {
			g := submit()
			Expect(errors.Is(service.Delete(ctx, g.ID, user.Actor{ID: otherPupil, Role: user.RoleStudent}), gatepass.ErrNotOwner)).To(BeTrue())
			Expect(errors.Is(service.Delete(ctx, g.ID, tutor), gatepass.ErrRoleNotAllowed)).To(BeTrue())
		})
	})

	Describe("Visibility", func() {
		It("should hide requests from unrelated users", func() {
			g := submit()
			_, err := service.Get(ctx, g.ID, user.Actor{ID: otherTutor, Role: user.RoleTutor})
			Expect(errors.Is(err, gatepass.ErrNotParticipant)).To(BeTrue())
			_, err = service.Get(ctx, g.ID, security)
			Expect(errors.Is(err, gatepass.ErrNotParticipant)).To(BeTrue())

			got, err := service.Get(ctx, g.ID, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(g.ID))
		})
	})

	Describe("Lists", func() {
		It("should show pending requests oldest first", func() {
			first := submit()
			second := submit()

			resp, err := service.ListPendingFor(ctx, tutor, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(HaveLen(2))
			Expect(resp.Items[0].ID).To(Equal(first.ID))
			Expect(resp.Items[1].ID).To(Equal(second.ID))
			Expect(resp.Limit).To(Equal(50))

			resp, err = service.ListPendingFor(ctx, warden, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(BeEmpty())

			_, err = service.ListPendingFor(ctx, student, gatepass.ListQuery{})
			Expect(errors.Is(err, gatepass.ErrRoleNotAllowed)).To(BeTrue())
		})

		It("should keep acted-on requests in the approver history", func() {
			g := submit()
			submit()
			_, err := service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := service.ListHistoryFor(ctx, tutor, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(HaveLen(1))
			Expect(resp.Items[0].ID).To(Equal(g.ID))
		})

		It("should list the approver history newest first", func() {
			older := submit()
			newer := submit()
			_, err := service.Approve(ctx, older.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Reject(ctx, newer.ID, tutor, "exam week", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := service.ListHistoryFor(ctx, tutor, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(HaveLen(2))
			Expect(resp.Items[0].ID).To(Equal(newer.ID))
			Expect(resp.Items[1].ID).To(Equal(older.ID))
		})

		It("should show a request to security once both approvals are in", func() {
			g := submit()
			_, err := service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := service.ListApproved(ctx, security, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(BeEmpty())

			_, err = service.Approve(ctx, g.ID, warden, nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err = service.ListApproved(ctx, security, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(HaveLen(1))
			Expect(resp.Items[0].ID).To(Equal(g.ID))
			Expect(resp.Items[0].Status).To(Equal(gatepass.StatusApproved))
		})

		It("should not cache approved rows read before a concurrent revoke", func() {
			g := submit()
			_, err := service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, g.ID, warden, nil)
			Expect(err).NotTo(HaveOccurred())

			cache.beforeSet = func() {
				_, err := service.Modify(ctx, g.ID, warden, nil)
				Expect(err).NotTo(HaveOccurred())
			}
			resp, err := service.ListApproved(ctx, security, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(HaveLen(1))

			resp, err = service.ListApproved(ctx, security, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(BeEmpty())
		})

		It("should serve approved passes from the cache until a transition changes them", func() {
			g := submit()
			_, err := service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, g.ID, warden, nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := service.ListApproved(ctx, security, gatepass.ListQuery{Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(HaveLen(1))
			Expect(cache.misses).To(Equal(1))
			Expect(cache.entries).To(HaveLen(1))
			Expect(cache.entries).To(HaveKey(HaveSuffix(":10:0")))

			resp, err = service.ListApproved(ctx, security, gatepass.ListQuery{Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(HaveLen(1))
			Expect(cache.hits).To(Equal(1))

			_, err = service.Modify(ctx, g.ID, warden, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cache.entries).To(BeEmpty())

			resp, err = service.ListApproved(ctx, security, gatepass.ListQuery{Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(BeEmpty())

			_, err = service.ListApproved(ctx, student, gatepass.ListQuery{})
			Expect(errors.Is(err, gatepass.ErrRoleNotAllowed)).To(BeTrue())
		})

		It("should reject out of range paging", func() {
			_, err := service.ListPendingFor(ctx, tutor, gatepass.ListQuery{Limit: 1000})
			Expect(appErrorType(err)).To(Equal(internal.ErrorTypeValidation))
		})

		It("should list a student's own requests", func() {
			submit()
			resp, err := service.ListByStudent(ctx, student, studentID, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(HaveLen(1))

			_, err = service.ListByStudent(ctx, user.Actor{ID: otherPupil, Role: user.RoleStudent}, studentID, gatepass.ListQuery{})
			Expect(errors.Is(err, gatepass.ErrNotOwner)).To(BeTrue())

			resp, err = service.ListByStudent(ctx, admin, studentID, gatepass.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Items).To(HaveLen(1))
		})
	})

	Describe("RenderPass", func() {
		It("should only print approved passes", func() {
			g := submit()
			_, err := service.RenderPass(ctx, g.ID, security)
			Expect(errors.Is(err, gatepass.ErrPassNotPrintable)).To(BeTrue())

			_, err = service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, g.ID, warden, nil)
			Expect(err).NotTo(HaveOccurred())

			pdf, err := service.RenderPass(ctx, g.ID, security)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(pdf[:4])).To(Equal("%PDF"))

			_, err = service.RenderPass(ctx, g.ID, student)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.RenderPass(ctx, g.ID, tutor)
			Expect(errors.Is(err, gatepass.ErrRoleNotAllowed)).To(BeTrue())
		})
	})

	Describe("Summaries", func() {
		It("should count waiting requests per approver", func() {
			g := submit()
			submit()
			_, err := service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())

			counts, err := service.PendingSummary(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(counts).To(ConsistOf(
				gatepass.PendingCount{ApproverID: tutorID, Role: user.RoleTutor, Count: 1},
				gatepass.PendingCount{ApproverID: wardenID, Role: user.RoleWarden, Count: 1},
			))
		})

		It("should know which users are referenced by requests", func() {
			submit()
			used, err := service.HasGatePasses(ctx, wardenID)
			Expect(err).NotTo(HaveOccurred())
			Expect(used).To(BeTrue())

			used, err = service.HasGatePasses(ctx, otherTutor)
			Expect(err).NotTo(HaveOccurred())
			Expect(used).To(BeFalse())
		})

		It("should report approvers with requests awaiting a decision", func() {
			g := submit()
			pending, err := service.HasPendingAssignments(ctx, wardenID)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeTrue())

			_, err = service.Approve(ctx, g.ID, tutor, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, g.ID, warden, nil)
			Expect(err).NotTo(HaveOccurred())

			pending, err = service.HasPendingAssignments(ctx, wardenID)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeFalse())
			pending, err = service.HasPendingAssignments(ctx, tutorID)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeFalse())
		})
	})
})
