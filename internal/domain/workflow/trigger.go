package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

// Quote triggers
const (
	TriggerSubmit           Trigger = "submit"
	TriggerSend             Trigger = "send"
	TriggerAccept           Trigger = "accept"
	TriggerReject           Trigger = "reject"
	TriggerBookSurvey       Trigger = "book_survey"
	TriggerBookInstallation Trigger = "book_installation"
	TriggerConvert          Trigger = "convert"
)

// Survey and installation triggers
const (
	TriggerStart    Trigger = "start"
	TriggerComplete Trigger = "complete"
	TriggerCancel   Trigger = "cancel"
)

// Invoice triggers. TriggerSend and TriggerCancel are shared with the
// machines above.
const (
	TriggerIssue       Trigger = "issue"
	TriggerPay         Trigger = "pay"
	TriggerMarkOverdue Trigger = "mark_overdue"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
