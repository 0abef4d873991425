package bot

import (
	"fmt"
	"strings"

	"github.com/gokatarajesh/battlestudy/internal/db/repository"
	"github.com/gokatarajesh/battlestudy/internal/leaderboard"
	"github.com/gokatarajesh/battlestudy/internal/match"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

const (
	welcomeText        = "👋 Welcome to the probability battle!\nTwo players get the same problem and the first correct answer wins rating points."
	pickTierText       = "Choose the difficulty:"
	alreadyQueuedText  = "You are already waiting for an opponent."
	alreadyBattleText  = "You are already in a battle. Answer the problem first!"
	leftQueueText      = "You left the queue."
	notQueuedText      = "You are not in the queue."
	unknownTierText    = "Unknown difficulty."
	emptyBoardText     = "🏆 The leaderboard is empty for now."
	serviceErrorText   = "❗ Something went wrong. Please try again later."
	notParticipantText = "This rematch is for other players."
	staleRematchText   = "This rematch is no longer available."
	acceptedText       = "Rematch request sent!"
	alreadyAcceptText  = "You already accepted. Waiting for your opponent."
	declinedText       = "Rematch declined."
)

func profileText(s repository.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\n\n", s.DisplayName)
	fmt.Fprintf(&b, "Rating: %d\n", s.Rating)
	fmt.Fprintf(&b, "Battles played: %d\n\n", s.TotalGames)
	b.WriteString("Wins by difficulty:\n")
	for _, d := range question.Difficulties {
		fmt.Fprintf(&b, "%s: %d\n", tierLabel(d), s.Wins[d])
	}
	return strings.TrimRight(b.String(), "\n")
}

func leaderboardText(entries []leaderboard.Entry) string {
	if len(entries) == 0 {
		return emptyBoardText
	}
	var b strings.Builder
	b.WriteString("🏆 Leaderboard\n\n")
	for _, e := range entries {
		name := e.DisplayName
		if name == "" {
			name = fmt.Sprintf("Player %d", e.UserID)
		}
		fmt.Fprintf(&b, "%d. %s: %d\n", e.Rank, name, e.Rating)
	}
	return strings.TrimRight(b.String(), "\n")
}

func howToText(rules match.Rules) string {
	var b strings.Builder
	b.WriteString("❓ How to play\n\n")
	b.WriteString("1. Press \"" + btnJoin + "\" and choose a difficulty.\n")
	b.WriteString("2. When an opponent is found you both get the same problem.\n")
	b.WriteString("3. Send your answer as text: 1/6, 0.1667 or 0,1667 all work.\n")
	b.WriteString("4. The first correct answer wins. If time runs out it is a draw.\n\n")
	for _, d := range question.Difficulties {
		tr, ok := rules.For(d)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %s, win +%d, loss %d\n", tierLabel(d), match.FormatDuration(tr.Timeout), tr.WinDelta, tr.LoseDelta)
	}
	b.WriteString("\nYou never get the same problem twice.")
	return b.String()
}
