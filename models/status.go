package models

// Lifecycle statuses shared by service requests and job cards.
const (
	StatusPending    = "pending"
	StatusAccepted   = "accepted"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusRejected   = "rejected"
)

var serviceRequestTransitions = map[string][]string{
	StatusPending:    {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// ServiceRequestStatuses lists every service request status.
var ServiceRequestStatuses = []string{
	StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled, StatusRejected,
}

// JobCardStatuses lists every job card status.
var JobCardStatuses = []string{
	StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled,
}

// JobCardTerminalStatuses are end-of-life for a job card.
var JobCardTerminalStatuses = []string{StatusCompleted, StatusCancelled}

// ServiceRequestTerminalStatuses are end-of-life for a service request.
var ServiceRequestTerminalStatuses = []string{StatusCompleted, StatusCancelled, StatusRejected}

// CanTransitionServiceRequest reports whether from -> to is an allowed edge.
func CanTransitionServiceRequest(from, to string) bool {
	for _, next := range serviceRequestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ServiceRequestNextStatuses returns the statuses reachable from status.
func ServiceRequestNextStatuses(status string) []string {
	return serviceRequestTransitions[status]
}

func IsValidServiceRequestStatus(status string) bool {
	return contains(ServiceRequestStatuses, status)
}

func IsTerminalServiceRequestStatus(status string) bool {
	return contains(ServiceRequestTerminalStatuses, status)
}

func IsValidJobCardStatus(status string) bool {
	return contains(JobCardStatuses, status)
}

func IsTerminalJobCardStatus(status string) bool {
	return contains(JobCardTerminalStatuses, status)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
