package constants

import (
	"time"
)

// Redis key layout for tablebook
// Pattern: tablebook:{module}:{purpose}:{identifier?}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SESSION_DEFAULT = 2 * time.Hour // wizard sessions, overridable by REDIS_SESSION_TTL
	TTL_STAFF_PROFILE   = 6 * time.Hour // staff profile lookups
	TTL_SUBMIT_CLAIM    = time.Minute   // outlives the form dispatch timeout
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "tablebook"
)

// ================== WIZARD MODULE ==================

const (
	CACHE_KEY_WIZARD_SESSION = CACHE_PREFIX + ":wizard:session:" // + session-id
	CACHE_KEY_WIZARD_SUBMIT  = CACHE_PREFIX + ":wizard:submit:"  // + session-id
)

// ================== SUBMISSION MODULE ==================

const (
	// LOCAL_CACHE_NAME is the single named key holding every submitted record.
	LOCAL_CACHE_NAME = "reservations"

	CACHE_KEY_SUBMISSIONS = CACHE_PREFIX + ":submissions:" + LOCAL_CACHE_NAME
)

// ================== STAFF MODULE ==================

const (
	CACHE_KEY_STAFF_PROFILE = CACHE_PREFIX + ":staff:profile:uuid:" // + staff-id
)

// ================== RATE LIMIT ==================

const (
	CACHE_KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit" // + :ip:type
)

// ================== HELPER FUNCTIONS ==================

// BuildWizardSessionKey -> "tablebook:wizard:session:<id>"
func BuildWizardSessionKey(sessionID string) string {
	return CACHE_KEY_WIZARD_SESSION + sessionID
}

// BuildWizardSubmitKey -> "tablebook:wizard:submit:<id>"
func BuildWizardSubmitKey(sessionID string) string {
	return CACHE_KEY_WIZARD_SUBMIT + sessionID
}

func BuildStaffProfileKey(staffID string) string {
	return CACHE_KEY_STAFF_PROFILE + staffID
}
