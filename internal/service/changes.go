package service

import (
	"context"
	"time"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/realtime"
)

type sessionInvalidator interface {
	Invalidate(ctx context.Context)
}

func publish(p realtime.Publisher, op realtime.Op, kind, path string) {
	if p == nil {
		return
	}
	p.Publish(realtime.ChangeEvent{Op: op, Kind: kind, Path: path, At: time.Now().UTC()})
}

// publishPlan emits one event per status change, cascaded archives first.
func publishPlan(p realtime.Publisher, plan lifecycle.Plan) {
	for _, c := range plan.Changes {
		op := realtime.OpArchived
		if c.To == models.StatusActive {
			op = realtime.OpActivated
		}
		publish(p, op, c.Kind, c.Path)
	}
}

// Kinds carried by change events for records outside the period lifecycle.
const (
	kindDepartment   = "department"
	kindCourse       = "course"
	kindYearLevel    = "year_level"
	kindSubject      = "subject"
	kindRoom         = "room"
	kindSchedule     = "schedule"
	kindUser         = "user"
	kindRequest      = "request"
	kindInboxEntry   = "inbox_entry"
	kindNotification = "notification"
)
