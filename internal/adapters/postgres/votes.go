package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jsamuelsen/qa-service/internal/domain"
)

const tallySQL = `
	SELECT count(*) FILTER (WHERE vote_type = 'upvote'),
	       count(*) FILTER (WHERE vote_type = 'downvote')
	FROM votes
	WHERE target_kind = $1 AND target_id = $2`

// CastVote implements ports.VoteRepository. The upsert keeps one row per user
// and target; the tally is read back inside the same transaction.
func (s *Store) CastVote(ctx context.Context, target domain.VoteTarget, vote domain.Vote) (domain.VoteTally, error) {
	var tally domain.VoteTally

	err := s.inTx(ctx, "cast vote", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO votes (target_kind, target_id, user_id, vote_type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (target_kind, target_id, user_id)
			DO UPDATE SET vote_type = EXCLUDED.vote_type, updated_at = now()`,
			string(target.Kind), target.ID, vote.UserID, string(vote.Type),
		)
		if err != nil {
			return storeError("upsert vote", err)
		}

		err = tx.QueryRow(ctx, tallySQL, string(target.Kind), target.ID).Scan(&tally.Up, &tally.Down)

		return storeError("tally votes", err)
	})

	return tally, err
}

// Ledger implements ports.VoteRepository.
func (s *Store) Ledger(ctx context.Context, target domain.VoteTarget) (domain.VoteLedger, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, vote_type FROM votes
		WHERE target_kind = $1 AND target_id = $2`,
		string(target.Kind), target.ID,
	)
	if err != nil {
		return nil, storeError("read vote ledger", err)
	}
	defer rows.Close()

	ledger := make(domain.VoteLedger)
	for rows.Next() {
		var user, voteType string
		if err := rows.Scan(&user, &voteType); err != nil {
			return nil, storeError("scan vote", err)
		}

		ledger.Cast(user, domain.VoteType(voteType))
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("read vote ledger", err)
	}

	return ledger, nil
}
