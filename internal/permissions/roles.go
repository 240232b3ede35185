package permissions

import "github.com/saiakshat556/farm-data-bridge/internal/models"

func roleGrants(cfg GateConfig) map[models.Role]map[string]Scope {
	farmer := map[string]Scope{
		SubmissionSubmit:   ScopeOwn,
		SubmissionView:     ScopeOwn,
		NotificationView:   ScopeOwn,
		NotificationUpdate: ScopeOwn,
		StatsView:          ScopeOwn,
	}

	officer := map[string]Scope{
		SubmissionView:     ScopeAll,
		SubmissionReview:   ScopeAll,
		NotificationView:   ScopeOwn,
		NotificationUpdate: ScopeOwn,
		StatsView:          ScopeAll,
	}

	admin := map[string]Scope{
		SubmissionView:     ScopeAll,
		IdentityView:       ScopeAll,
		StatsView:          ScopeAll,
		NotificationView:   ScopeOwn,
		NotificationUpdate: ScopeOwn,
	}
	if cfg.AdminCanReview {
		admin[SubmissionReview] = ScopeAll
	}

	return map[models.Role]map[string]Scope{
		models.RoleFarmer:  farmer,
		models.RoleOfficer: officer,
		models.RoleAdmin:   admin,
	}
}
