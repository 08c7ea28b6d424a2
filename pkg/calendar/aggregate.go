package calendar

import "bndy-backend/pkg/models"

// Aggregate merges the three calendar sources into one list: the viewed
// artist's events, the user's personal events, then events from the user's
// other artists. Input order is preserved within each source and the
// sources keep that fixed order; callers sort by date themselves if they
// need a different order. Cross-artist entries get the originating artist's
// name appended to their title so the SPA renders them through the same
// path as everything else.
//
// No deduplication happens here: the upstream queries are expected to be
// disjoint, and a duplicate ID across sources would be kept twice.
func Aggregate(artistEvents, personalEvents []models.Event, crossArtistEvents []models.CrossArtistEvent) []models.CalendarEntry {
	entries := make([]models.CalendarEntry, 0, len(artistEvents)+len(personalEvents)+len(crossArtistEvents))

	for _, ev := range artistEvents {
		entries = append(entries, models.CalendarEntry{Event: ev})
	}
	for _, ev := range personalEvents {
		entries = append(entries, models.CalendarEntry{Event: ev})
	}
	for _, cev := range crossArtistEvents {
		entry := models.CalendarEntry{
			Event:            cev.Event,
			SourceArtistName: cev.ArtistName,
			CrossArtist:      true,
		}
		entry.Title = cev.DisplayTitle() + " (" + cev.ArtistName + ")"
		entries = append(entries, entry)
	}

	return entries
}
