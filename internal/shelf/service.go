package shelf

import (
	"context"
	"sort"

	"github.com/robeeeeeet/bottle-keep/internal/models"
	"github.com/robeeeeeet/bottle-keep/internal/store"
)

// Store is the slice of persistence the shelf needs: who the caller's
// friends are, and the filtered/sorted entry rows for a set of owners.
type Store interface {
	FriendIDs(ctx context.Context, userID string) ([]string, error)
	VisibleEntries(ctx context.Context, ownerIDs []string, q store.EntryQuery) ([]models.CollectionEntry, error)
}

// Query is the caller-facing filter/sort request.
type Query struct {
	SortField string // created_at (default) | rating | drinking_date
	SortDesc  bool
	Type      string
	MinRating int
}

// Group is one distinct alcohol with every visible review of it.
type Group struct {
	AlcoholID   string                   `json:"alcohol_id"`
	Alcohol     *models.Alcohol          `json:"alcohol"`
	Entries     []models.CollectionEntry `json:"entries"`
	MaxRating   int                      `json:"max_rating"`
	HasMyReview bool                     `json:"has_my_review"`
	PhotoURL    *string                  `json:"photo_url"`
}

// View is the assembled shelf.
type View struct {
	Groups []Group `json:"groups"`
	// Mixed is true when any visible entry belongs to someone other than
	// the caller, i.e. the shelf shows friends' bottles too.
	Mixed      bool `json:"mixed"`
	EntryCount int  `json:"entry_count"`
}

type Service struct {
	store Store
}

func NewService(st Store) *Service { return &Service{store: st} }

// List builds the caller's shelf: own entries plus accepted friends' entries,
// grouped by alcohol. The visibility rule is applied here as an explicit
// owner-id set rather than trusting the database to filter rows.
func (s *Service) List(ctx context.Context, userID string, q Query) (*View, error) {
	friends, err := s.store.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	owners := append([]string{userID}, friends...)

	entries, err := s.store.VisibleEntries(ctx, owners, store.EntryQuery{
		SortField: q.SortField,
		SortDesc:  q.SortDesc,
		Type:      q.Type,
		MinRating: q.MinRating,
	})
	if err != nil {
		return nil, err
	}
	return groupEntries(userID, q, entries), nil
}

// groupEntries partitions sorted rows by alcohol id, preserving the row order
// both across groups (first-seen) and within each group.
func groupEntries(userID string, q Query, entries []models.CollectionEntry) *View {
	view := &View{Groups: []Group{}, EntryCount: len(entries)}

	index := make(map[string]int)
	for _, e := range entries {
		i, ok := index[e.AlcoholID]
		if !ok {
			i = len(view.Groups)
			index[e.AlcoholID] = i
			view.Groups = append(view.Groups, Group{
				AlcoholID: e.AlcoholID,
				Alcohol:   e.Alcohol,
			})
		}
		g := &view.Groups[i]
		g.Entries = append(g.Entries, e)

		if e.Rating > g.MaxRating {
			g.MaxRating = e.Rating
		}
		mine := e.UserID == userID
		if mine {
			g.HasMyReview = true
		} else {
			view.Mixed = true
		}
		// First photo wins unless the caller's own photo shows up later.
		if e.PhotoURL != nil && (g.PhotoURL == nil || mine) {
			g.PhotoURL = e.PhotoURL
		}
	}

	// "rating" sorts groups by the derived max, not by any single row; the
	// row-level sort the query already applied is kept inside each group.
	if q.SortField == "rating" {
		sort.SliceStable(view.Groups, func(a, b int) bool {
			if q.SortDesc {
				return view.Groups[a].MaxRating > view.Groups[b].MaxRating
			}
			return view.Groups[a].MaxRating < view.Groups[b].MaxRating
		})
	}
	return view
}
