// internal/app/features/projects/manage.go
package projects

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/taskboard/internal/app/features/errors"
	commentstore "github.com/dalemusser/taskboard/internal/app/store/comments"
	invitestore "github.com/dalemusser/taskboard/internal/app/store/invites"
	membershipstore "github.com/dalemusser/taskboard/internal/app/store/memberships"
	permissionstore "github.com/dalemusser/taskboard/internal/app/store/permissions"
	projectstore "github.com/dalemusser/taskboard/internal/app/store/projects"
	statusstore "github.com/dalemusser/taskboard/internal/app/store/statuses"
	taskstore "github.com/dalemusser/taskboard/internal/app/store/tasks"
	"github.com/dalemusser/taskboard/internal/app/system/authz"
	"github.com/dalemusser/taskboard/internal/app/system/gates"
	"github.com/dalemusser/taskboard/internal/app/system/inputval"
	"github.com/dalemusser/taskboard/internal/app/system/timeouts"
	"github.com/dalemusser/taskboard/internal/app/system/txn"
	"github.com/dalemusser/taskboard/internal/domain/models"
	"go.uber.org/zap"
)

type createInput struct {
	Name        string `json:"name" validate:"required,max=200" label:"Project name"`
	Description string `json:"description" validate:"max=5000" label:"Description"`
}

// HandleCreate handles POST /. The caller becomes the owner and the
// project starts with the default statuses.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var in createInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.Error(w, http.StatusBadRequest, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var created models.Project
	err := txn.Run(ctx, h.DB.Client(), h.Log, "create project", func(ctx context.Context) error {
		p, err := projectstore.New(h.DB).Create(ctx, models.Project{
			Name:        in.Name,
			Description: in.Description,
			OwnerID:     actor.UserID,
		})
		if err != nil {
			return err
		}
		if _, err := membershipstore.New(h.DB).Add(ctx, p.ID, actor.UserID, models.RoleOwner); err != nil {
			return err
		}
		if _, err := statusstore.New(h.DB).CreateDefaults(ctx, p.ID); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create project", err, "Could not create project.")
		return
	}

	h.AuditLog.ProjectCreated(ctx, r, actor.UserID, created.ID, created.Name)
	h.Log.Info("project created", zap.String("project_id", created.ID.Hex()), zap.String("owner_id", actor.UserID.Hex()))
	uierrors.JSON(w, http.StatusCreated, projectView{
		Project:      created,
		MyRole:       string(models.RoleOwner),
		MembersCount: 1,
	})
}

// ServeProject handles GET /{projectID}.
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := projectstore.New(h.DB).GetByID(ctx, mc.ProjectID)
	if errors.Is(err, projectstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load project", err, "A server error occurred.")
		return
	}

	role, err := h.myRole(ctx, mc)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load membership", err, "A server error occurred.")
		return
	}
	views, err := h.decorate(ctx, []models.Project{*p}, func(models.Project) string { return role })
	if err != nil {
		h.ErrLog.LogServerError(w, r, "decorate project", err, "A server error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, views[0])
}

// myRole is the caller's real membership role; a global admin without
// one is reported as admin.
func (h *Handler) myRole(ctx context.Context, mc *authz.MembershipContext) (string, error) {
	if !mc.GlobalAdmin {
		return string(mc.Role), nil
	}
	m, err := membershipstore.New(h.DB).FindMembership(ctx, mc.ProjectID, mc.UserID)
	if err != nil {
		return "", err
	}
	if m == nil {
		return globalAdminRole, nil
	}
	return string(m.Role), nil
}

type updateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// HandleUpdate handles PATCH /{projectID} (owner or admin).
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	var in updateInput
	if err := inputval.DecodeJSON(w, r, &in); err != nil {
		uierrors.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	upd := projectstore.Update{Name: in.Name, Description: in.Description}
	if upd.Empty() {
		uierrors.Error(w, http.StatusBadRequest, "No fields to update")
		return
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		uierrors.Error(w, http.StatusBadRequest, "Project name is required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := projectstore.New(h.DB).Update(ctx, mc.ProjectID, upd)
	if errors.Is(err, projectstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update project", err, "Could not update project.")
		return
	}
	uierrors.JSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /{projectID} (owner only; a global admin
// counts as owner). Dependents are removed in order: permissions,
// comments, tasks, statuses, invites, members, then the project itself.
// Attachment files are removed after the database commit.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	mc, ok := gates.MembershipFrom(r.Context())
	if !ok {
		uierrors.Error(w, http.StatusForbidden, authz.ErrNotAMember.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	projects := projectstore.New(h.DB)
	p, err := projects.GetByID(ctx, mc.ProjectID)
	if errors.Is(err, projectstore.ErrNotFound) {
		uierrors.Error(w, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load project", err, "A server error occurred.")
		return
	}

	tasks := taskstore.New(h.DB)
	paths, err := tasks.ListAttachmentPaths(ctx, p.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list attachments", err, "A server error occurred.")
		return
	}

	err = txn.Run(ctx, h.DB.Client(), h.Log, "delete project", func(ctx context.Context) error {
		if _, err := permissionstore.New(h.DB).DeleteByProject(ctx, p.ID); err != nil {
			return err
		}
		if _, err := commentstore.New(h.DB).DeleteByProject(ctx, p.ID); err != nil {
			return err
		}
		if _, err := tasks.DeleteByProject(ctx, p.ID); err != nil {
			return err
		}
		if _, err := statusstore.New(h.DB).DeleteByProject(ctx, p.ID); err != nil {
			return err
		}
		if _, err := invitestore.New(h.DB).DeleteByProject(ctx, p.ID); err != nil {
			return err
		}
		if _, err := membershipstore.New(h.DB).DeleteByProject(ctx, p.ID); err != nil {
			return err
		}
		err := projects.Delete(ctx, p.ID)
		if errors.Is(err, projectstore.ErrNotFound) {
			// A concurrent delete already removed it.
			return nil
		}
		return err
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete project", err, "Could not delete project.")
		return
	}

	if h.Blobs != nil {
		for _, path := range paths {
			if err := h.Blobs.Delete(ctx, path); err != nil {
				h.Log.Warn("delete attachment file", zap.Error(err), zap.String("path", path))
			}
		}
	}

	h.AuditLog.ProjectDeleted(ctx, r, mc.UserID, p.ID, p.Name)
	h.Log.Info("project deleted", zap.String("project_id", p.ID.Hex()), zap.Int("files", len(paths)))
	uierrors.NoContent(w)
}
