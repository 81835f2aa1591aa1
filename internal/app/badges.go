package app

import "quiz-progress-service/internal/domain"

// badgeCatalog is ordered by ascending threshold; NewlyQualified relies on it.
var badgeCatalog = []domain.Badge{
	{ID: "rookie", Name: "Rookie Learner", Description: "Earn your first 50 XP!", ThresholdXP: 50},
	{ID: "scholar", Name: "Rising Scholar", Description: "Reach 150 XP!", ThresholdXP: 150},
	{ID: "master", Name: "Knowledge Master", Description: "Reach 300 XP!", ThresholdXP: 300},
}

// BadgeCatalog returns a copy of the fixed badge catalog.
func BadgeCatalog() []domain.Badge {
	out := make([]domain.Badge, len(badgeCatalog))
	copy(out, badgeCatalog)
	return out
}

// LookupBadge finds a catalog badge by id.
func LookupBadge(id domain.BadgeID) (domain.Badge, bool) {
	for _, b := range badgeCatalog {
		if b.ID == id {
			return b, true
		}
	}
	return domain.Badge{}, false
}

// NewlyQualified returns the catalog badges whose threshold is reached by
// currentXP and that are not in alreadyUnlocked, in catalog order.
func NewlyQualified(currentXP int, alreadyUnlocked []domain.BadgeID) []domain.Badge {
	unlocked := make(map[domain.BadgeID]struct{}, len(alreadyUnlocked))
	for _, id := range alreadyUnlocked {
		unlocked[id] = struct{}{}
	}

	var earned []domain.Badge
	for _, b := range badgeCatalog {
		if b.ThresholdXP > currentXP {
			continue
		}
		if _, ok := unlocked[b.ID]; ok {
			continue
		}
		earned = append(earned, b)
	}
	return earned
}
