package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobRequest is one client's application to perform one AdJob.
// Its status lives in the append-only States log, never on the row itself.
type JobRequest struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;index:idx_job_request_client_job,unique" json:"client_id"`
	AdJobID  uuid.UUID `gorm:"type:uuid;not null;index:idx_job_request_client_job,unique;index" json:"ad_job_id"`

	CreatedAt time.Time `json:"created_at"`

	Client  *Client        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	AdJob   *AdJob         `gorm:"foreignKey:AdJobID" json:"ad_job,omitempty"`
	States  []RequestState `gorm:"foreignKey:JobRequestID" json:"states,omitempty"`
	Payment *Payment       `gorm:"foreignKey:JobRequestID" json:"payment,omitempty"`

	// Current is resolved on read as the newest entry of States.
	Current *RequestState `gorm:"-" json:"current_state,omitempty"`
}

func (r *JobRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// RequestState is one immutable entry of a JobRequest's state log.
type RequestState struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobRequestID      uuid.UUID `gorm:"type:uuid;not null;index" json:"job_request_id"`
	RequestStateRefID uint      `gorm:"not null" json:"request_state_ref_id"`
	CreatedAt         time.Time `gorm:"not null;index" json:"created_at"`

	Ref *RequestStateRef `gorm:"foreignKey:RequestStateRefID" json:"ref,omitempty"`
}

// IsTerminal reports whether this entry closes the log.
func (s RequestState) IsTerminal() bool { return s.RequestStateRefID == RequestStateCompleted }

// LatestState picks the newest entry by CreatedAt, breaking ties on ID.
func LatestState(states []RequestState) *RequestState {
	var latest *RequestState
	for i := range states {
		s := &states[i]
		if latest == nil ||
			s.CreatedAt.After(latest.CreatedAt) ||
			(s.CreatedAt.Equal(latest.CreatedAt) && s.ID > latest.ID) {
			latest = s
		}
	}
	return latest
}
