package middleware

import (
	"net/http"

	"github.com/alimgiray/newsletter-manager/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	PrivilegeRead   = "read"
	PrivilegeWrite  = "write"
	PrivilegeDelete = "delete"
)

// ACL decides whether a role holds a privilege on a resource
type ACL interface {
	IsAllowed(role, resource, privilege string) bool
}

// StaticACL grants every listed privilege on every resource to a role
type StaticACL struct {
	roles map[string]map[string]bool
}

// NewStaticACL builds the ACL from role -> privileges
func NewStaticACL(rolePrivileges map[string][]string) *StaticACL {
	roles := make(map[string]map[string]bool, len(rolePrivileges))
	for role, privileges := range rolePrivileges {
		set := make(map[string]bool, len(privileges))
		for _, p := range privileges {
			set[p] = true
		}
		roles[role] = set
	}
	return &StaticACL{roles: roles}
}

func (a *StaticACL) IsAllowed(role, resource, privilege string) bool {
	return a.roles[role][privilege]
}

// RequirePrivilege aborts with 403 unless the session role holds privilege
// on resource
func RequirePrivilege(acl ACL, resource, privilege string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := ""
		if session := GetSession(c); session != nil {
			role = session.Role
		}

		if !acl.IsAllowed(role, resource, privilege) {
			logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
				"role":      role,
				"resource":  resource,
				"privilege": privilege,
			}).Warn("Permission denied")

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Insufficient Permissions",
			})
			return
		}

		c.Next()
	}
}
