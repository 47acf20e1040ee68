package notifier

import (
	"fmt"
	"html"
	"strings"

	"CashNudge/internal/model"
)

// FormatCashCheck builds the title and plain-text body of a cash_check nudge.
func FormatCashCheck(pos model.CashPosition, suggestions []model.Suggestion) (title, message string) {
	title = fmt.Sprintf("Untracked cash: %s", pos.EstimatedUntrackedCash.StringFixed(2))

	var b strings.Builder
	b.WriteString(fmt.Sprintf("You withdrew %s in the last %d days",
		pos.TotalWithdrawn.StringFixed(2), pos.WindowDays))
	if pos.HasWithdrawal() {
		b.WriteString(fmt.Sprintf(" (latest %s)", dayPhrase(pos.DaysSinceWithdrawal)))
	}
	b.WriteString(fmt.Sprintf(" and logged %s of cash spending.", pos.TrackedCashSpend.StringFixed(2)))

	if len(suggestions) > 0 {
		parts := make([]string, 0, len(suggestions))
		for _, s := range suggestions {
			parts = append(parts, fmt.Sprintf("%s ~%s", s.Label, s.TypicalAmount.StringFixed(2)))
		}
		b.WriteString(" Maybe: ")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(".")
	}
	return title, b.String()
}

// FormatTelegram renders a stored notification as a Telegram HTML message.
func FormatTelegram(n model.Notification) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💵 <b>%s</b>\n\n", html.EscapeString(n.Title)))

	pos := n.Payload.Position
	b.WriteString(fmt.Sprintf("Withdrawn: %s\n", pos.TotalWithdrawn.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Logged cash spend: %s\n", pos.TrackedCashSpend.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Days since withdrawal: %d\n", pos.DaysSinceWithdrawal))

	if len(n.Payload.Suggestions) > 0 {
		b.WriteString("\n<b>Likely spends:</b>\n")
		for _, s := range n.Payload.Suggestions {
			b.WriteString(fmt.Sprintf("  • %s %s (%s–%s, %.0f%%)\n",
				html.EscapeString(s.Label),
				s.TypicalAmount.StringFixed(2),
				s.AmountRange.Low.StringFixed(2),
				s.AmountRange.High.StringFixed(2),
				s.Probability*100))
		}
	}
	return b.String()
}

func dayPhrase(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	}
	return fmt.Sprintf("%d days ago", days)
}
