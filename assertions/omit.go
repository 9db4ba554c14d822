package assertions

// Omit ends the current case as skipped. An optional payload describes why.
func Omit(payload ...any) {
	var s Skip
	switch len(payload) {
	case 0:
	case 1:
		s.Payload = payload[0]
	default:
		s.Payload = messageFromArgs(payload)
	}
	panic(&s)
}
