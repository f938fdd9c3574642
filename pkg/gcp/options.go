// Package gcp holds helpers shared by the Google Cloud clients.
package gcp

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/tollwatch-backend/pkg/config"
)

// ErrProjectIDRequired is returned when no project is configured.
var ErrProjectIDRequired = errors.New("gcp project id is required")

// ProjectID returns the trimmed project id or ErrProjectIDRequired.
func ProjectID(cfg config.GCPConfig) (string, error) {
	id := strings.TrimSpace(cfg.ProjectID)
	if id == "" {
		return "", ErrProjectIDRequired
	}
	return id, nil
}

// ClientOptions picks inline credentials over a credentials file. With
// neither set the clients fall back to application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.ApplicationCredentials)}
	default:
		return nil
	}
}

// ResourceName expands a short id into projects/<project>/<kind>/<id>.
// Fully qualified names pass through. Blank ids resolve to "".
func ResourceName(projectID, kind, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+kind+"/") {
		return id
	}
	if strings.TrimSpace(projectID) == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", strings.TrimSpace(projectID), kind, id)
}
