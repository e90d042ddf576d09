package domain

import "math"

// Learner is the gamification state of the signed-in user. Its methods return an
// updated copy and never mutate the receiver.
type Learner struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Level         int      `json:"level"`
	XP            int      `json:"xp"`
	XPToNextLevel int      `json:"xpToNextLevel"`
	Coins         int      `json:"coins"`
	Badges        []string `json:"badges"`
}

func (l Learner) clone() Learner {
	if l.Badges != nil {
		l.Badges = append([]string(nil), l.Badges...)
	}
	return l
}

// AddXP adds experience, levelling up while the XP reaches the current threshold.
// Each level raises the threshold by 20%.
func (l Learner) AddXP(amount int) Learner {
	out := l.clone()
	out.XP += amount
	for out.XPToNextLevel > 0 && out.XP >= out.XPToNextLevel {
		out.XP -= out.XPToNextLevel
		out.Level++
		out.XPToNextLevel = int(math.Floor(float64(out.XPToNextLevel) * 1.2))
	}
	return out
}

// AddCoins adds (or with a negative amount, spends) coins.
func (l Learner) AddCoins(amount int) Learner {
	out := l.clone()
	out.Coins += amount
	return out
}

// AddBadge awards a badge once; awarding an owned badge is a no-op.
func (l Learner) AddBadge(badgeID string) Learner {
	out := l.clone()
	for _, b := range out.Badges {
		if b == badgeID {
			return out
		}
	}
	out.Badges = append(out.Badges, badgeID)
	return out
}
