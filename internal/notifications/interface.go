package notifications

// Notifier delivers session alerts to an external channel.
type Notifier interface {
	// SendAlert sends an alert with the specified level and message
	SendAlert(level, message string) error
}
