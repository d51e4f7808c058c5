package auth

import "log/slog"

// authenticator holds the workspace allow-list. It is built once at
// startup and read-only afterwards. An empty list allows every workspace.
type authenticator struct {
	allowedWorkspaceIDs []string
}

func NewAuthenticator(allowedWorkspaceIDs []string) *authenticator {
	slog.Info("allowed slack workspaces", "workspace_ids", allowedWorkspaceIDs)

	return &authenticator{
		allowedWorkspaceIDs: allowedWorkspaceIDs,
	}
}

func (a *authenticator) IsAllowed(workspaceID string) bool {
	if len(a.allowedWorkspaceIDs) == 0 {
		return true
	}
	for _, id := range a.allowedWorkspaceIDs {
		if workspaceID == id {
			return true
		}
	}
	return false
}
