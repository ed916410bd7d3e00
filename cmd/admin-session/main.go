// Command admin-session prints a signed backend session cookie for local use
// of the admin API, e.g.
//
//	curl -b "backend_session=$(admin-session -role admin)" localhost:8080/backend/session
package main

import (
	"flag"
	"fmt"

	"github.com/alimgiray/newsletter-manager/internal/middleware"
	"github.com/alimgiray/newsletter-manager/pkg/config"
	"github.com/alimgiray/newsletter-manager/pkg/logger"
)

func main() {
	userID := flag.String("user", "1", "backend user id")
	username := flag.String("name", "admin", "backend user name")
	role := flag.String("role", "admin", "ACL role")
	flag.Parse()

	if err := config.Load(); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if _, ok := config.ParseRolePrivileges(config.AppConfig.ACL.RolePrivileges)[*role]; !ok {
		logger.WithField("role", *role).Warn("Role has no privileges configured")
	}

	value, err := middleware.EncodeSession(middleware.NewSessionData(*userID, *username, *role))
	if err != nil {
		logger.Fatalf("Failed to encode session: %v", err)
	}

	fmt.Println(value)
}
