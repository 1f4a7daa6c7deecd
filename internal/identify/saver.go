package identify

import (
	"context"

	"github.com/robeeeeeet/bottle-keep/internal/ai"
	"github.com/robeeeeeet/bottle-keep/internal/collection"
)

// CollectionSaver bridges the workflow's final step to the collection service
// for one authenticated user. A new identification carries the item itself; a
// review of an already-catalogued bottle carries only its id.
type CollectionSaver struct {
	Reviews *collection.Service
	UserID  string
}

func (s CollectionSaver) Save(ctx context.Context, item ai.AlcoholInfo, existingID string, review Review) error {
	in := collection.SaveInput{
		ExistingAlcoholID: existingID,
		PhotoURL:          review.PhotoURL,
		DrinkingDate:      review.DrinkingDate,
		Rating:            review.Rating,
		Memo:              review.Memo,
	}
	if existingID == "" {
		in.Info = &item
	}
	_, err := s.Reviews.SaveReview(ctx, s.UserID, in)
	return err
}
