package service

import (
	"fmt"
	"strconv"
	"strings"

	"task-manager/internal/apperr"
	"task-manager/internal/model"
)

// Repeat is the stored form of a repetition frequency.
type Repeat struct {
	Type     model.RepeatType
	Interval *int
}

// NormalizeFrequency maps the user-facing repetition frequency onto the
// stored pair: "" is none, "1" daily, "7" weekly and any other positive
// integer every_n_days with that interval. Anything that is not a positive
// integer maps to none.
func NormalizeFrequency(raw string) Repeat {
	n, ok := parseFrequency(raw)
	if !ok {
		return Repeat{Type: model.RepeatNone}
	}
	switch n {
	case 1:
		return Repeat{Type: model.RepeatDaily}
	case 7:
		return Repeat{Type: model.RepeatWeekly}
	default:
		return Repeat{Type: model.RepeatEveryNDays, Interval: &n}
	}
}

// ValidateFrequency rejects values NormalizeFrequency would silently turn into none.
func ValidateFrequency(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if _, ok := parseFrequency(raw); !ok {
		return apperr.Validation("repetitionFrequency must be empty or a positive integer").
			WithDetails(map[string]string{"repetitionFrequency": raw})
	}
	return nil
}

func parseFrequency(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Frequency is the inverse of NormalizeFrequency.
func (r Repeat) Frequency() string {
	switch r.Type {
	case model.RepeatDaily:
		return "1"
	case model.RepeatWeekly:
		return "7"
	case model.RepeatEveryNDays:
		if r.Interval != nil {
			return strconv.Itoa(*r.Interval)
		}
	}
	return ""
}

// Days is the length of one repeat period, zero for none.
func (r Repeat) Days() int {
	switch r.Type {
	case model.RepeatDaily:
		return 1
	case model.RepeatWeekly:
		return 7
	case model.RepeatEveryNDays:
		if r.Interval != nil && *r.Interval > 0 {
			return *r.Interval
		}
	}
	return 0
}

// Describe renders the repeat rule for humans.
func (r Repeat) Describe() string {
	switch r.Type {
	case model.RepeatDaily:
		return "daily"
	case model.RepeatWeekly:
		return "weekly"
	case model.RepeatEveryNDays:
		return fmt.Sprintf("every %d days", r.Days())
	}
	return "once"
}

// RepeatOf reads the repeat pair stored on task.
func RepeatOf(task model.Task) Repeat {
	return Repeat{Type: task.RepeatType, Interval: task.RepeatInterval}
}

func (r Repeat) apply(task *model.Task) {
	task.RepeatType = r.Type
	task.RepeatInterval = r.Interval
}
