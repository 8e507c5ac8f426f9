package model

import "time"

// ProfileView records when a candidate was last shown to a viewer so the
// discovery engine can avoid re-surfacing it too soon.
type ProfileView struct {
	ViewerUserID int64     `json:"viewer_user_id"`
	SeenUserID   int64     `json:"seen_user_id"`
	LastShownAt  time.Time `json:"last_shown_at"`
}
