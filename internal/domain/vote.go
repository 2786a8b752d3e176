package domain

import "sort"

// VoteType is the direction of a vote.
type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

// ParseVoteType validates a vote type string.
func ParseVoteType(s string) (VoteType, error) {
	switch VoteType(s) {
	case Upvote, Downvote:
		return VoteType(s), nil
	default:
		return "", NewValidationError("type", "must be upvote or downvote")
	}
}

// TargetKind names the entity kinds that carry votes.
type TargetKind string

const (
	TargetQuestion TargetKind = "question"
	TargetAnswer   TargetKind = "answer"
)

// VoteTarget identifies a votable entity.
type VoteTarget struct {
	Kind TargetKind
	ID   string
}

// Vote is a single user's vote on a target.
type Vote struct {
	UserID string
	Type   VoteType
}

// VoteTally is the derived count of votes on a target. It is computed on read
// and never stored.
type VoteTally struct {
	Up   int
	Down int
}

// Score is upvotes minus downvotes.
func (t VoteTally) Score() int {
	return t.Up - t.Down
}

// VoteLedger holds at most one vote per user, keyed by user id.
type VoteLedger map[string]VoteType

// Cast records userID's vote, replacing any previous vote by that user.
func (l VoteLedger) Cast(userID string, t VoteType) {
	l[userID] = t
}

// Tally counts the ledger's votes.
func (l VoteLedger) Tally() VoteTally {
	var t VoteTally
	for _, v := range l {
		switch v {
		case Upvote:
			t.Up++
		case Downvote:
			t.Down++
		}
	}

	return t
}

// Votes returns the ledger entries ordered by user id.
func (l VoteLedger) Votes() []Vote {
	out := make([]Vote, 0, len(l))
	for user, v := range l {
		out = append(out, Vote{UserID: user, Type: v})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })

	return out
}

// Clone returns an independent copy of the ledger.
func (l VoteLedger) Clone() VoteLedger {
	out := make(VoteLedger, len(l))
	for k, v := range l {
		out[k] = v
	}

	return out
}
