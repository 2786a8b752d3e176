// Package app contains the Q&A use cases. Services depend on the port
// interfaces in internal/ports and never on concrete adapters.
//
// Write operations (creating content, voting, accepting and pinning answers,
// deleting, editing profiles) run through the command pipeline in command.go.
// Reads (listings, question detail, profiles, notifications) call the
// repositories directly.
//
// Services:
//   - ContentService: questions, answers, comments and author counters
//   - VoteService: one vote per user per target, derived scores
//   - Coordinator: the single accepted and single pinned answer per question
//   - Cascader: soft delete, cascading from answers to their comments
//   - Dispatcher: notifications on new answers and comments, read state
//   - QueryService: listings, search and the question detail view
//   - ProfileService: user profiles
package app
