package applied

import (
	"errors"
	"time"
)

// ErrInvalidInput is returned when company or job id normalize to empty.
var ErrInvalidInput = errors.New("invalid input")

// Flag records whether a user applied to one job.
type Flag struct {
	UserID    string    `json:"-"`
	Company   string    `json:"company"`
	JobID     string    `json:"job_id"`
	Applied   bool      `json:"applied"`
	UpdatedAt time.Time `json:"updated_at"`
}
