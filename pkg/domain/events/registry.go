package events

// Factories maps event type names to constructors for decoding events
// off a broker. Distributed buses look types up here when consuming.
var Factories = map[string]func() Event{
	EventTransferInitiated:  func() Event { return &TransferInitiated{} },
	EventTransferCodeSent:   func() Event { return &TransferCodeSent{} },
	EventCodeValidated:      func() Event { return &CodeValidated{} },
	EventValidationFailed:   func() Event { return &ValidationFailed{} },
	EventTransferProcessing: func() Event { return &TransferProcessing{} },
	EventTransferPaused:     func() Event { return &TransferPaused{} },
	EventTransferResumed:    func() Event { return &TransferResumed{} },
	EventTransferCompleted:  func() Event { return &TransferCompleted{} },
	EventNotificationQueued: func() Event { return &NotificationQueued{} },
}
