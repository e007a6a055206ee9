package models

// All lists every table in migration order.
func All() []any {
	return []any{
		&Client{},
		&RequestStateRef{}, &PaymentType{}, &RatingType{}, &RatingCategory{},
		&AdState{}, &Category{},
		&Ad{}, &AdCategory{}, &AdJob{}, &Escrow{},
		&JobRequest{}, &RequestState{},
		&Payment{}, &JobRating{},
	}
}
