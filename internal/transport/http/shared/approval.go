package shared

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/approval"
	"paycore/internal/domain/auth"
)

type DecisionRequest struct {
	Level   int    `json:"level"`
	Comment string `json:"comment"`
}

type RerouteRequest struct {
	Level int    `json:"level"`
	Role  string `json:"role"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

// Decision binds an approval request to the caller. A payroll admin may act
// on any level; everyone else must hold the level's role.
func Decision(user auth.UserContext, req DecisionRequest) approval.Decision {
	role := user.Role
	if role == auth.RolePayrollAdmin {
		role = ""
	}
	return approval.Decision{
		Level:      req.Level,
		Role:       role,
		ApproverID: user.UserID,
		Comment:    strings.TrimSpace(req.Comment),
		At:         time.Now().UTC(),
	}
}

// PathID reads a chi URL parameter.
func PathID(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}
