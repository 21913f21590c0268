// internal/workers/meals/notify-meal-created/selector.go
package notifymealcreated

import (
	"context"

	errs "mealbell/internal/common/errors"
	"mealbell/internal/models"
)

// MembershipStore looks up all members of a family. Recipients are read
// fresh per dispatch; the pipeline never caches them.
type MembershipStore interface {
	FamilyMembers(ctx context.Context, familyID string) ([]models.Recipient, error)
}

// selectCandidates returns the family members minus the excluded author.
// Order is whatever the store yields; downstream code must not rely on it.
// An empty membership is an empty slice, not an error.
func selectCandidates(ctx context.Context, store MembershipStore, familyID, excludeID string) ([]models.Recipient, error) {
	members, err := store.FamilyMembers(ctx, familyID)
	if err != nil {
		return nil, errs.NewMembershipLookupFailedError(familyID, err)
	}

	candidates := make([]models.Recipient, 0, len(members))
	for _, m := range members {
		if m.ID == excludeID {
			continue
		}
		candidates = append(candidates, m)
	}
	return candidates, nil
}
