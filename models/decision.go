package models

type DecisionOutcome string

const (
	OutcomePassed   DecisionOutcome = "PASSED"
	OutcomeRejected DecisionOutcome = "REJECTED"
	OutcomeTabled   DecisionOutcome = "TABLED"
)

// Decision is a motion voted on during a meeting. Outcome stays nil until
// the meeting completes.
type Decision struct {
	Base
	MeetingID    string           `gorm:"type:uuid;not null;index" json:"meetingId"`
	AgendaItemID *string          `gorm:"type:uuid" json:"agendaItemId,omitempty"`
	Title        string           `gorm:"not null" json:"title"`
	Description  string           `json:"description,omitempty"`
	Outcome      *DecisionOutcome `gorm:"type:varchar(10)" json:"outcome"`
	Order        int              `gorm:"column:sort_order;not null;default:0" json:"order"`
}

type VoteChoice string

const (
	VoteFor     VoteChoice = "FOR"
	VoteAgainst VoteChoice = "AGAINST"
	VoteAbstain VoteChoice = "ABSTAIN"
)

func (v VoteChoice) Valid() bool {
	return v == VoteFor || v == VoteAgainst || v == VoteAbstain
}

// Vote is unique per (decision, user); casting again overwrites.
type Vote struct {
	Base
	DecisionID string     `gorm:"type:uuid;not null;uniqueIndex:idx_vote_decision_user" json:"decisionId"`
	UserID     string     `gorm:"not null;uniqueIndex:idx_vote_decision_user" json:"userId"`
	Vote       VoteChoice `gorm:"type:varchar(10);not null" json:"vote"`
}

// Tally is the FOR/AGAINST/ABSTAIN count for one decision.
type Tally struct {
	For     int `json:"for"`
	Against int `json:"against"`
	Abstain int `json:"abstain"`
}

func (t *Tally) Add(v VoteChoice) {
	switch v {
	case VoteFor:
		t.For++
	case VoteAgainst:
		t.Against++
	case VoteAbstain:
		t.Abstain++
	}
}

// Outcome derives the decision outcome; ties are tabled.
func (t Tally) Outcome() DecisionOutcome {
	switch {
	case t.For > t.Against:
		return OutcomePassed
	case t.Against > t.For:
		return OutcomeRejected
	default:
		return OutcomeTabled
	}
}
