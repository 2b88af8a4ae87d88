package auditlog

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	"github.com/dalemusser/taskboard/internal/app/store/audit"
	projectstore "github.com/dalemusser/taskboard/internal/app/store/projects"
	userstore "github.com/dalemusser/taskboard/internal/app/store/users"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/app/system/paging"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ServeList handles GET /api/admin/audit. Filters: category, event_type,
// project_id, user_id, start_date and end_date (YYYY-MM-DD, inclusive),
// plus start and limit for paging.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if s := strings.TrimSpace(r.URL.Query().Get("project_id")); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			uierrors.Error(w, http.StatusBadRequest, "Invalid project_id")
			return
		}
		filter.ProjectID = &id
	}
	h.serve(w, r, filter)
}

// ServeProjectList handles GET /api/projects/{projectID}/audit. It takes
// the same filters as ServeList except project_id.
func (h *Handler) ServeProjectList(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	projectID := mc.ProjectID
	filter.ProjectID = &projectID
	h.serve(w, r, filter)
}

func parseFilter(r *http.Request) (audit.QueryFilter, error) {
	q := r.URL.Query()
	var f audit.QueryFilter

	f.Category = strings.TrimSpace(q.Get("category"))
	if f.Category != "" && !knownCategory(f.Category) {
		return f, fmt.Errorf("Unknown category %q", f.Category)
	}
	f.EventType = strings.TrimSpace(q.Get("event_type"))
	if f.EventType != "" && !knownEventType(f.Category, f.EventType) {
		return f, fmt.Errorf("Unknown event_type %q", f.EventType)
	}

	if s := strings.TrimSpace(q.Get("user_id")); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return f, errors.New("Invalid user_id")
		}
		f.UserID = &id
	}

	if s := strings.TrimSpace(q.Get("start_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, errors.New("start_date must be YYYY-MM-DD")
		}
		f.StartTime = &t
	}
	if s := strings.TrimSpace(q.Get("end_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, errors.New("end_date must be YYYY-MM-DD")
		}
		// End of day
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &end
	}
	if f.StartTime != nil && f.EndTime != nil && f.EndTime.Before(*f.StartTime) {
		return f, errors.New("end_date is before start_date")
	}
	return f, nil
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, filter audit.QueryFilter) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	start := paging.ParseStart(r)
	limit := paging.ParseLimit(r)
	filter.Offset = paging.Skip(start)
	filter.Limit = paging.LimitPlusOne(limit)

	store := audit.New(h.DB)
	events, err := store.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events", err, "A database error occurred.")
		return
	}
	hasNext := paging.TrimPage(&events, limit)

	total, err := store.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count audit events", err, "A database error occurred.")
		return
	}

	// Collect unique user IDs and project IDs for name resolution
	userIDs := make(map[primitive.ObjectID]struct{})
	projectIDs := make(map[primitive.ObjectID]struct{})
	for _, e := range events {
		if e.ActorID != nil {
			userIDs[*e.ActorID] = struct{}{}
		}
		if e.UserID != nil {
			userIDs[*e.UserID] = struct{}{}
		}
		if e.ProjectID != nil {
			projectIDs[*e.ProjectID] = struct{}{}
		}
	}

	userNames := make(map[primitive.ObjectID]string)
	if len(userIDs) > 0 {
		users, err := userstore.New(h.DB).ListByIDs(ctx, keys(userIDs))
		if err != nil {
			h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		}
		for _, u := range users {
			userNames[u.ID] = u.Name
		}
	}

	projectNames := make(map[primitive.ObjectID]string)
	if len(projectIDs) > 0 {
		projects, err := projectstore.New(h.DB).List(ctx, keys(projectIDs))
		if err != nil {
			h.Log.Warn("failed to fetch project names for audit log", zap.Error(err))
		}
		for _, p := range projects {
			projectNames[p.ID] = p.Name
		}
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.Hex()
			item.ActorName = userNames[*e.ActorID]
		}
		if e.UserID != nil {
			item.UserID = e.UserID.Hex()
			item.UserName = userNames[*e.UserID]
		}
		if e.ProjectID != nil {
			item.ProjectID = e.ProjectID.Hex()
			item.ProjectName = projectNames[*e.ProjectID]
		}
		items = append(items, item)
	}

	uierrors.JSON(w, http.StatusOK, listResponse{
		Items: items,
		Total: total,
		Range: paging.ComputeRange(start, len(items), limit, hasNext),
	})
}

func keys(m map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
