package permission

import (
	"github.com/rallytrack/tracking-service-manager-go/log"
	"github.com/rallytrack/tracking-service-manager-go/pkg/auth"
)

type Permission string

const (
	PermissionChangeStatus Permission = "change-competitor-status"
	PermissionReadRoster   Permission = "read-roster"
)

type PermissionEvaluator interface {
	HasPermission(auth auth.Authentication, perm Permission) bool
}

func NewPermissionEvaluator() PermissionEvaluator {
	if ret, err := NewOpaPermissionEvaluator(); err != nil {
		log.Default().Error("failed to create permission evaluator", log.ErrorField(err))
		return nil
	} else {
		return ret
	}
}
