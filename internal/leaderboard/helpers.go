package leaderboard

import sqlcgen "github.com/gokatarajesh/battlestudy/internal/db/sqlc"

func fromRows(rows []sqlcgen.TopPlayersRow) []Entry {
	result := make([]Entry, len(rows))
	for i, r := range rows {
		result[i] = Entry{
			Rank:        i + 1,
			UserID:      r.UserID,
			DisplayName: r.DisplayName,
			Rating:      int(r.Rating),
		}
	}
	return result
}
