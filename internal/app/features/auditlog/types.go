package auditlog

import (
	"slices"
	"time"

	"github.com/dalemusser/taskboard/internal/app/store/audit"
	"github.com/dalemusser/taskboard/internal/app/system/paging"
)

// listItem is a single audit event with names resolved for display.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorName     string            `json:"actor_name,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	UserName      string            `json:"user_name,omitempty"`
	ProjectID     string            `json:"project_id,omitempty"`
	ProjectName   string            `json:"project_name,omitempty"`
	IP            string            `json:"ip"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Items []listItem `json:"items"`
	Total int64      `json:"total"`
	paging.Range
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedRateLimit,
		audit.EventLogout,
		audit.EventUserRegistered,
	}
	adminEvents := []string{
		audit.EventUserCreated,
		audit.EventUserUpdated,
		audit.EventUserDeleted,
	}
	accessEvents := []string{
		audit.EventProjectCreated,
		audit.EventProjectDeleted,
		audit.EventMemberAdded,
		audit.EventMemberRemoved,
		audit.EventMemberRoleChanged,
		audit.EventPermissionsReplaced,
		audit.EventInviteCreated,
		audit.EventInviteRevoked,
		audit.EventInviteRedeemed,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case audit.CategoryAccess:
		return accessEvents
	case "":
		return slices.Concat(authEvents, adminEvents, accessEvents)
	default:
		return nil
	}
}

func knownCategory(c string) bool {
	return c == audit.CategoryAuth || c == audit.CategoryAdmin || c == audit.CategoryAccess
}

func knownEventType(category, eventType string) bool {
	return slices.Contains(eventTypesForCategory(category), eventType)
}
