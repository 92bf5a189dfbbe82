package outlook

// UntitledEvent is shown for events without a subject.
const UntitledEvent = "(No title)"

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

func orDefault(calendarID string) string {
	if calendarID == "" {
		return DefaultCalendar
	}
	return calendarID
}
