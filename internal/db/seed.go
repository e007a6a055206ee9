package db

import (
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
)

// Seed inserts the fixed reference rows the workflow compares against.
// Existing rows are left as they are, so admins may relabel them.
func Seed(gdb *gorm.DB) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		refs := []models.RequestStateRef{
			{ID: models.RequestStatePending, Name: "Хүсэлт илгээсэн"},
			{ID: models.RequestStateApproved, Name: "Зөвшөөрсөн"},
			{ID: models.RequestStateRejected, Name: "Татгалзсан"},
			{ID: models.RequestStateCompleted, Name: "Дууссан"},
		}
		for _, r := range refs {
			if err := tx.FirstOrCreate(&r, models.RequestStateRef{ID: r.ID}).Error; err != nil {
				return err
			}
		}

		paymentTypes := []models.PaymentType{
			{ID: models.PaymentTypeEscrowRelease, Name: "Escrow release"},
		}
		for _, p := range paymentTypes {
			if err := tx.FirstOrCreate(&p, models.PaymentType{ID: p.ID}).Error; err != nil {
				return err
			}
		}

		ratingTypes := []models.RatingType{
			{ID: models.RatingTypeClientRatesContractor, Name: "Client rates contractor"},
			{ID: models.RatingTypeContractorRatesClient, Name: "Contractor rates client"},
		}
		for _, r := range ratingTypes {
			if err := tx.FirstOrCreate(&r, models.RatingType{ID: r.ID}).Error; err != nil {
				return err
			}
		}

		categories := []models.RatingCategory{
			{ID: models.RatingCategoryQuality, Name: "Quality"},
			{ID: models.RatingCategoryTimeliness, Name: "Timeliness"},
			{ID: models.RatingCategoryCommunication, Name: "Communication"},
		}
		for _, c := range categories {
			if err := tx.FirstOrCreate(&c, models.RatingCategory{ID: c.ID}).Error; err != nil {
				return err
			}
		}

		states := []models.AdState{
			{ID: models.AdStateOpen, Name: "Open"},
			{ID: models.AdStateClosed, Name: "Closed"},
		}
		for _, s := range states {
			if err := tx.FirstOrCreate(&s, models.AdState{ID: s.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
