package model

// Recipient categorizes who the bouquet is for.
type Recipient string

const (
	RecipientMom         Recipient = "mom"
	RecipientWife        Recipient = "wife"
	RecipientGirlfriend  Recipient = "girlfriend"
	RecipientDaughter    Recipient = "daughter"
	RecipientSister      Recipient = "sister"
	RecipientGrandmother Recipient = "grandmother"
	RecipientColleague   Recipient = "colleague"
	RecipientFriend      Recipient = "friend"
	RecipientTeacher     Recipient = "teacher"
	RecipientSelf        Recipient = "self"
)

// Occasion categorizes the reason for the purchase.
type Occasion string

const (
	OccasionBirthday    Occasion = "birthday"
	OccasionAnniversary Occasion = "anniversary"
	OccasionMarch8      Occasion = "march8"
	OccasionDate        Occasion = "date"
	OccasionWedding     Occasion = "wedding"
	OccasionApology     Occasion = "apology"
	OccasionSympathy    Occasion = "sympathy"
	OccasionNewborn     Occasion = "newborn"
	OccasionJustBecause Occasion = "justbecause"
)

// BudgetRange is a closed price interval in whole currency units.
type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ExtractedParams is the per-message extraction result. Every field is
// optional; absence means the message said nothing about it. Values are
// merged into the session only when non-empty, so a later message cannot
// erase earlier facts by omission.
type ExtractedParams struct {
	Recipient   Recipient    `json:"recipient,omitempty"`
	Occasion    Occasion     `json:"occasion,omitempty"`
	Budget      *BudgetRange `json:"budget,omitempty"`
	City        *City        `json:"city,omitempty"`
	Address     string       `json:"address,omitempty"`
	Date        string       `json:"date,omitempty"`
	Preferences string       `json:"preferences,omitempty"`
}

// Empty reports whether the message yielded nothing.
func (p ExtractedParams) Empty() bool {
	return p.Recipient == "" && p.Occasion == "" && p.Budget == nil &&
		p.City == nil && p.Address == "" && p.Date == "" && p.Preferences == ""
}
