package model

import "time"

const (
	GenderMale   = "male"
	GenderFemale = "female"

	GoalMaintain = "maintain"
	GoalCut      = "cut"
	GoalGain     = "gain"
)

var (
	Genders         = []string{GenderMale, GenderFemale}
	ActivityLevels  = []string{"sedentary", "light", "moderate", "active", "very_active"}
	Goals           = []string{GoalMaintain, GoalCut, GoalGain}
	DefaultBio      = "Newbie here"
	DefaultActivity = "light"
)

// Profile is the per-user profile resource. It embeds the owning user.
type Profile struct {
	ID             string    `json:"id"`
	UserID         string    `json:"-"`
	User           User      `json:"user"`
	Bio            string    `json:"bio"`
	Age            int       `json:"age,omitempty"`
	Gender         string    `json:"gender,omitempty"`
	HeightCM       float64   `json:"height_cm,omitempty"`
	WeightKG       float64   `json:"weight_kg,omitempty"`
	ActivityLevel  string    `json:"activity_level,omitempty"`
	Goal           string    `json:"goal,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	Followers      []User    `json:"followers"`
	Following      []User    `json:"following"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsComplete reports whether the completion form has been submitted for this profile.
// A provisioned profile carries only defaults.
func (p Profile) IsComplete() bool {
	return p.Age > 0 && p.Goal != ""
}

// ProfileFields are the completion form values.
type ProfileFields struct {
	Bio           string  `json:"bio"`
	Age           int     `json:"age"`
	Gender        string  `json:"gender"`
	HeightCM      float64 `json:"height_cm"`
	WeightKG      float64 `json:"weight_kg"`
	ActivityLevel string  `json:"activity_level"`
	Goal          string  `json:"goal"`
}

// DefaultProfileFields mirrors the pre-filled completion form.
func DefaultProfileFields() ProfileFields {
	return ProfileFields{
		Bio:           DefaultBio,
		Age:           18,
		Gender:        GenderMale,
		HeightCM:      170,
		WeightKG:      70,
		ActivityLevel: DefaultActivity,
		Goal:          GoalMaintain,
	}
}
