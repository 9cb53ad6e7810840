package stats

import "time"

type Summary struct {
	Days        int             `json:"days"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Daily       []Day           `json:"daily"`
	Diapers     DiaperBreakdown `json:"diapers"`
	Weight      []Point         `json:"weight"`
	Temperature []Point         `json:"temperature"`
}

type Day struct {
	Date       string  `json:"date"`
	Feedings   int     `json:"feedings"`
	FeedingML  float64 `json:"feeding_ml"`
	SleepHours float64 `json:"sleep_hours"`
	Diapers    int     `json:"diapers"`
}

type DiaperBreakdown struct {
	Wet   int `json:"wet"`
	Poop  int `json:"poop"`
	Mixed int `json:"mixed"`
}

type Point struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

type Query struct {
	Days     int
	Location *time.Location
}
