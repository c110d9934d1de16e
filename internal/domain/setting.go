package domain

import "context"

// Well-known system setting keys.
const (
	SettingPointsPerKg          = "points_per_kg"
	SettingDefaultAgentApproval = "default_agent_approval"
)

// SystemSetting is an admin-managed key/value pair read by rule logic.
type SystemSetting struct {
	Key   string
	Value string
}

// SettingRepository defines data access for system settings.
type SettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	List(ctx context.Context) ([]*SystemSetting, error)
}
