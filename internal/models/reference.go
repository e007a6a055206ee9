package models

// Reference rows are seeded with fixed ids; the workflow only ever compares
// against these constants.
const (
	RequestStatePending   uint = 1
	RequestStateApproved  uint = 2
	RequestStateRejected  uint = 3
	RequestStateCompleted uint = 4 // terminal

	PaymentTypeEscrowRelease uint = 1

	RatingTypeClientRatesContractor uint = 1
	RatingTypeContractorRatesClient uint = 2

	RatingCategoryQuality       uint = 1
	RatingCategoryTimeliness    uint = 2
	RatingCategoryCommunication uint = 3

	AdStateOpen   uint = 1
	AdStateClosed uint = 2
)

type RequestStateRef struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(60);not null" json:"name"`
}

// IsTerminal reports whether a request in this state accepts no further states.
func (r RequestStateRef) IsTerminal() bool { return r.ID == RequestStateCompleted }

type PaymentType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(60);not null" json:"name"`
}

type RatingType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(60);not null" json:"name"`
}

type RatingCategory struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(60);not null" json:"name"`
}

// AdState is shared by ads and their jobs.
type AdState struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(60);not null" json:"name"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(80);not null;uniqueIndex" json:"name"`
}
