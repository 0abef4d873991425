package match

import (
	"fmt"
	"time"

	"github.com/gokatarajesh/battlestudy/internal/question"
)

// FormatDuration renders a countdown as "M min S sec", or "S sec" below a minute.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	minutes, seconds := total/60, total%60
	if minutes > 0 {
		return fmt.Sprintf("%d min %d sec", minutes, seconds)
	}
	return fmt.Sprintf("%d sec", seconds)
}

func waitingText(tier question.Difficulty) string {
	return fmt.Sprintf("You joined the %s queue. Waiting for an opponent...", tier)
}

func ownTierExhaustedText(tier question.Difficulty) string {
	return fmt.Sprintf("❗ You have solved every %s question. Try another tier.", tier)
}

func noQuestionsText(tier question.Difficulty) string {
	return fmt.Sprintf("❗ No %s question is left that neither player has seen.\nPick another tier or join the battle again.", tier)
}

func questionText(opponent string, tier question.Difficulty, prompt string) string {
	return fmt.Sprintf("🔔 Opponent found: %s\n\nDifficulty: %s\n\n❓ Problem:\n%s\n\nSend your answers as text. The first correct answer wins.", opponent, tier, prompt)
}

func timerStartText(d time.Duration) string {
	return "⏱ Time to answer: " + FormatDuration(d)
}

func timerLeftText(d time.Duration) string {
	return "⏱ Time left: " + FormatDuration(d)
}

const (
	tryAgainText        = "Wrong. Try again!"
	startFailedText     = "❗ The battle could not be started. Please join again."
	rematchOfferText    = "Want a rematch?"
	rematchStartText    = "🔄 Both players accepted the rematch! Starting a new battle."
	rematchExpiredText  = "⏰ Nobody answered the rematch in time. Rematch cancelled."
	rematchBusyText     = "The rematch was dropped because one of the players is already in another battle."
	youDeclinedText     = "You declined the rematch."
	rematchAcceptLabel  = "🔄 Rematch"
	rematchConfirmLabel = "🔄 Accept rematch"
	rematchDeclineLabel = "❌ Decline"
)

func winText(rating int) string {
	return fmt.Sprintf("🎉 You won! New rating: %d", rating)
}

func loseText(answer string, rating int) string {
	return fmt.Sprintf("You lost this one. Correct answer: %s\nNew rating: %d", answer, rating)
}

func timeoutText(answer string) string {
	return fmt.Sprintf("⏰ Time is up! Nobody answered, the battle is a draw.\nCorrect answer: %s\nRating unchanged.", answer)
}

func rematchRequestedText(name string) string {
	return fmt.Sprintf("🔄 %s wants a rematch! Accept?", name)
}

func opponentDeclinedText(name string) string {
	return fmt.Sprintf("🚫 %s declined the rematch.", name)
}

func rematchActions(key PairKey, confirm bool) []Action {
	label := rematchAcceptLabel
	if confirm {
		label = rematchConfirmLabel
	}
	return []Action{
		{Label: label, Data: ActionRematch + ":" + key.String()},
		{Label: rematchDeclineLabel, Data: ActionDeclineRematch + ":" + key.String()},
	}
}
