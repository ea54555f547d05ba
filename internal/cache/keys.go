package cache

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/pkg/models"
)

func JobStatusKey(jobID uuid.UUID, platform models.Platform) string {
	return fmt.Sprintf("job:%s:%s", jobID, platform)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func ActiveJobKey(artistID uuid.UUID) string {
	return fmt.Sprintf("artist:%s:active_job", artistID)
}
