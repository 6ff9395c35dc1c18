package workflow

// Trigger represents an event that can advance a vale through its lifecycle
type Trigger string

const (
	TriggerIssue     Trigger = "ISSUE"
	TriggerStartWork Trigger = "START_WORK"
	TriggerClose     Trigger = "CLOSE"
	TriggerVerify    Trigger = "VERIFY"
	TriggerPay       Trigger = "PAY"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
