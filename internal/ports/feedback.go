package ports

import "time"

type HapticKind string

// HapticLight is the tap sent when an action is invoked.
const HapticLight HapticKind = "light"

// HapticNotifier forwards haptic feedback requests to the dashboard.
type HapticNotifier interface {
	Haptic(cardID string, kind HapticKind)
}

// DispatchObserver is told about every action invocation and its outcome.
type DispatchObserver interface {
	Invoked(action string)
	Rejected(action string)
	Settled(action string, took time.Duration, err error)
}
