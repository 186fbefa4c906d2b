package catalog

// SeedQuery pairs a curated system collection with the catalog query that
// fills it on startup.
type SeedQuery struct {
	ID          string
	Name        string
	Description string
	Query       string
}

// SeedQueries returns the curated queries used to build the session's
// system collections. The order is the display order.
func SeedQueries() []SeedQuery {
	return []SeedQuery{
		{ID: "p_india", Name: "Bollywood Top 50", Description: "The hottest tracks from India.", Query: "Trending India Top 50"},
		{ID: "p_global", Name: "International Hits", Description: "Top English and Pop hits.", Query: "English Pop Hits 2024"},
		{ID: "p_phonk", Name: "Phonk Drift", Description: "High energy drift phonk beats.", Query: "Phonk Playlist"},
		{ID: "p_romantic", Name: "Romantic Vibes", Description: "Love is in the air.", Query: "Bollywood Romance"},
		{ID: "p_party", Name: "Party Starters", Description: "Get the floor moving.", Query: "Party Dance Songs"},
		{ID: "p_lofi", Name: "Lo-Fi Study", Description: "Chill beats for focus.", Query: "Lofi Study Beats"},
		{ID: "p_rock", Name: "Classic Rock", Description: "Timeless legends.", Query: "Classic Rock Legends"},
		{ID: "p_edm", Name: "EDM Festival", Description: "Big room house and drops.", Query: "EDM Festival Hits"},
		{ID: "p_gaming", Name: "Gaming Zone", Description: "Dubstep and Trap for gaming.", Query: "NCS Gaming Music"},
		{ID: "p_jazz", Name: "Smooth Jazz", Description: "Relaxing instrumental vibes.", Query: "Jazz Classics"},
	}
}
