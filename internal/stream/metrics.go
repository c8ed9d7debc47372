package stream

import "time"

// MetricWindows are the trailing windows the stream reports activity
// over: a short pulse, the recent session, and the broader half-day.
var MetricWindows = []float64{0.5, 2, 12}

// WindowMetrics is event activity over one trailing window.
type WindowMetrics struct {
	WindowHours float64 `json:"window_hours"`
	Count       int     `json:"count"`
	RatePerHour float64 `json:"rate_per_hour"`
}

// Metrics summarizes stream activity across the standard windows.
type Metrics struct {
	Windows  []WindowMetrics `json:"windows"`
	Velocity float64         `json:"velocity"`
}

// CountInWindow counts events with timestamps inside [now-hours, now].
// Events with unparseable timestamps are ignored.
func CountInWindow(events []Event, hours float64, now time.Time) int {
	cutoff := now.Add(-time.Duration(hours * float64(time.Hour)))
	n := 0
	for _, ev := range events {
		t, err := ev.Time()
		if err != nil {
			continue
		}
		if !t.Before(cutoff) && !t.After(now) {
			n++
		}
	}
	return n
}

// RatePerHour is the event rate over the window.
func RatePerHour(events []Event, hours float64, now time.Time) float64 {
	if hours <= 0 {
		return 0
	}
	return float64(CountInWindow(events, hours, now)) / hours
}

// Velocity compares the short-window rate to the long-window rate. The
// long rate is floored at 0.5 so a quiet stream can't divide to
// infinity; a velocity above 1 means activity is accelerating.
func Velocity(shortRate, longRate float64) float64 {
	floor := longRate
	if floor < 0.5 {
		floor = 0.5
	}
	return shortRate / floor
}

// ComputeEventMetrics reports counts and rates over the standard
// windows, plus velocity (the 30-minute rate against the 12-hour rate).
func ComputeEventMetrics(events []Event, now time.Time) Metrics {
	m := Metrics{Windows: make([]WindowMetrics, 0, len(MetricWindows))}
	rates := make(map[float64]float64, len(MetricWindows))
	for _, hours := range MetricWindows {
		count := CountInWindow(events, hours, now)
		rate := float64(count) / hours
		rates[hours] = rate
		m.Windows = append(m.Windows, WindowMetrics{
			WindowHours: hours,
			Count:       count,
			RatePerHour: rate,
		})
	}
	m.Velocity = Velocity(rates[0.5], rates[12])
	return m
}
