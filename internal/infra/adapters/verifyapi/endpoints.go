// Package verifyapi adapts the remote verification service's REST surface to
// the domain ports.
package verifyapi

const (
	pathSignIn      = "/auth/signin"
	pathSignUp      = "/auth/signup"
	pathSignOut     = "/auth/logout"
	pathCredentials = "/auth/user/credentials" // POST issues, PUT rotates
	pathTimezone    = "/auth/user/timezone"
	pathUserByEmail = "/users/email"

	pathBulkUpload   = "/api/v1/email/bulk/upload"
	pathBulkStart    = "/api/v1/email/bulk/start"
	pathBulkStatus   = "/api/v1/email/bulk/status"
	pathBulkDownload = "/api/v1/email/bulk/download"
	pathBulk         = "/api/v1/email/bulk"
	pathSingleVerify = "/api/v1/email/single/verify"
	pathCredits      = "/api/v1/email/credit-balance"

	pathLists        = "/api/v1/email-lists"
	pathShare        = "/api/v1/email-lists/share"
	pathChangeAccess = "/api/v1/email-lists/change-access-type"
	pathRemoveMember = "/api/v1/email-lists/remove-member"
	pathMemberStats  = "/api/v1/email-lists/stats/members"

	pathActivityLogs = "/api/v1/logs/activity-logs"
)
