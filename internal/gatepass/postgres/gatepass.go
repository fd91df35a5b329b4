package postgres

import (
	"context"
	"errors"

	gatepassDatamodel "github.com/frahmantamala/gatepass/internal/core/datamodel/gatepass"
	"github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	"gorm.io/gorm"
)

// GatePassRepository implements gatepass.Repository using GORM
type GatePassRepository struct {
	db *gorm.DB
}

func NewGatePassRepository(db *gorm.DB) *GatePassRepository {
	return &GatePassRepository{db: db}
}

func (r *GatePassRepository) Create(ctx context.Context, g *gatepass.GatePassRequest, t *gatepass.Transition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := gatepass.ToDataModel(g)
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		t.RequestID = row.ID
		if err := tx.Create(gatepass.TransitionToDataModel(t)).Error; err != nil {
			return err
		}
		g.ID = row.ID
		g.CreatedAt = row.CreatedAt
		g.UpdatedAt = row.UpdatedAt
		return nil
	})
}

func (r *GatePassRepository) GetByID(ctx context.Context, id int64) (*gatepass.GatePassRequest, error) {
	var row gatepassDatamodel.GatePassRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gatepass.ErrRequestNotFound
		}
		return nil, err
	}
	return gatepass.FromDataModel(&row), nil
}

// ApplyTransition is a compare-and-swap on (status, version); the ledger row is
// written in the same transaction so a lost race leaves no trace.
func (r *GatePassRepository) ApplyTransition(ctx context.Context, current *gatepass.GatePassRequest, t *gatepass.Transition) (*gatepass.GatePassRequest, error) {
	var updated gatepassDatamodel.GatePassRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&gatepassDatamodel.GatePassRequest{}).
			Where("id = ? AND status = ? AND version = ?", current.ID, string(current.Status), current.Version).
			Updates(map[string]interface{}{
				"status":     string(t.ToStatus),
				"version":    t.Version,
				"updated_at": t.CreatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gatepass.ErrVersionConflict
		}

		if err := tx.Create(gatepass.TransitionToDataModel(t)).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", current.ID).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return gatepass.FromDataModel(&updated), nil
}

func (r *GatePassRepository) Delete(ctx context.Context, current *gatepass.GatePassRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND status = ? AND version = ?", current.ID, string(current.Status), current.Version).
			Delete(&gatepassDatamodel.GatePassRequest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gatepass.ErrVersionConflict
		}
		return tx.Where("request_id = ?", current.ID).Delete(&gatepassDatamodel.Transition{}).Error
	})
}

// ListPending is FIFO so the oldest request is handled first
func (r *GatePassRepository) ListPending(ctx context.Context, filter gatepass.ApproverFilter, limit, offset int) ([]*gatepass.GatePassRequest, error) {
	q := r.db.WithContext(ctx).Where("status = ?", string(filter.Status))
	if filter.TutorID != 0 {
		q = q.Where("tutor_id = ?", filter.TutorID)
	}
	if filter.WardenID != 0 {
		q = q.Where("warden_id = ?", filter.WardenID)
	}
	var rows []*gatepassDatamodel.GatePassRequest
	err := q.Order("created_at ASC").Order("id ASC").Limit(limit).Offset(offset).Find(&rows).Error
	return fromRows(rows), err
}

func (r *GatePassRepository) ListActedOn(ctx context.Context, actorID int64, actions []gatepass.Action, limit, offset int) ([]*gatepass.GatePassRequest, error) {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	acted := r.db.Model(&gatepassDatamodel.Transition{}).
		Select("request_id").
		Where("actor_id = ? AND action IN ?", actorID, names)

	var rows []*gatepassDatamodel.GatePassRequest
	err := r.db.WithContext(ctx).
		Where("id IN (?)", acted).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return fromRows(rows), err
}

func (r *GatePassRepository) ListByStatus(ctx context.Context, status gatepass.Status, limit, offset int) ([]*gatepass.GatePassRequest, error) {
	var rows []*gatepassDatamodel.GatePassRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return fromRows(rows), err
}

func (r *GatePassRepository) ListByStudent(ctx context.Context, studentID int64, limit, offset int) ([]*gatepass.GatePassRequest, error) {
	var rows []*gatepassDatamodel.GatePassRequest
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return fromRows(rows), err
}

func (r *GatePassRepository) ListTransitions(ctx context.Context, requestID int64) ([]*gatepass.Transition, error) {
	var rows []*gatepassDatamodel.Transition
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("version ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*gatepass.Transition, len(rows))
	for i, row := range rows {
		out[i] = gatepass.TransitionFromDataModel(row)
	}
	return out, nil
}

type pendingRow struct {
	ApproverID int64
	Count      int64
}

func (r *GatePassRepository) CountPendingByApprover(ctx context.Context) ([]gatepass.PendingCount, error) {
	var out []gatepass.PendingCount
	stages := []struct {
		column string
		status gatepass.Status
		role   user.Role
	}{
		{"tutor_id", gatepass.StatusPendingTutor, user.RoleTutor},
		{"warden_id", gatepass.StatusPendingWarden, user.RoleWarden},
	}
	for _, st := range stages {
		var rows []pendingRow
		err := r.db.WithContext(ctx).Model(&gatepassDatamodel.GatePassRequest{}).
			Select(st.column+" AS approver_id, COUNT(*) AS count").
			Where("status = ?", string(st.status)).
			Group(st.column).
			Order(st.column).
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, gatepass.PendingCount{ApproverID: row.ApproverID, Role: st.role, Count: row.Count})
		}
	}
	return out, nil
}

func (r *GatePassRepository) CountForUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&gatepassDatamodel.GatePassRequest{}).
		Where("student_id = ? OR tutor_id = ? OR warden_id = ?", userID, userID, userID).
		Count(&n).Error
	return n, err
}

func (r *GatePassRepository) CountInProgressForApprover(ctx context.Context, approverID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&gatepassDatamodel.GatePassRequest{}).
		Where("tutor_id = ? OR warden_id = ?", approverID, approverID).
		Where("status IN ?", []string{string(gatepass.StatusPendingTutor), string(gatepass.StatusPendingWarden)}).
		Count(&n).Error
	return n, err
}

func fromRows(rows []*gatepassDatamodel.GatePassRequest) []*gatepass.GatePassRequest {
	out := make([]*gatepass.GatePassRequest, len(rows))
	for i, row := range rows {
		out[i] = gatepass.FromDataModel(row)
	}
	return out
}

var _ gatepass.Repository = (*GatePassRepository)(nil)
