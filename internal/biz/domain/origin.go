package domain

import "time"

// Origin represents a distinct notification-sending application
type Origin struct {
	ID           int64
	AppName      string
	Color        string
	LoginURL     string     // Empty until the crawler finds one
	URLCheckedAt *time.Time // Nil until the first crawl finishes
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NeverChecked reports whether no crawl has finished for this origin yet
func (o *Origin) NeverChecked() bool {
	return o.URLCheckedAt == nil
}

// OriginSighting is one (app name, color) pair seen in a batch
type OriginSighting struct {
	AppName string
	Color   string
}

// SightingsFrom dedupes a batch by app name; the last color seen wins.
// Order follows first appearance.
func SightingsFrom(msgs []*Message) []OriginSighting {
	index := make(map[string]int)
	var sightings []OriginSighting
	for _, m := range msgs {
		if i, ok := index[m.AppName]; ok {
			sightings[i].Color = m.Color
			continue
		}
		index[m.AppName] = len(sightings)
		sightings = append(sightings, OriginSighting{AppName: m.AppName, Color: m.Color})
	}
	return sightings
}
