package models

// ReadinessChecks aggregates per-session completeness of a class.
type ReadinessChecks struct {
	TotalSessions            int     `json:"totalSessions"`
	SessionsWithTimeSlots    int     `json:"sessionsWithTimeSlots"`
	SessionsWithResources    int     `json:"sessionsWithResources"`
	SessionsWithTeachers     int     `json:"sessionsWithTeachers"`
	SessionsWithoutTimeSlots int     `json:"sessionsWithoutTimeSlots"`
	SessionsWithoutResources int     `json:"sessionsWithoutResources"`
	SessionsWithoutTeachers  int     `json:"sessionsWithoutTeachers"`
	CompletionPercentage     float64 `json:"completionPercentage"`
	AllSessionsHaveTimeSlots bool    `json:"allSessionsHaveTimeSlots"`
	AllSessionsHaveResources bool    `json:"allSessionsHaveResources"`
	AllSessionsHaveTeachers  bool    `json:"allSessionsHaveTeachers"`
}

// Readiness is the submit decision for a class.
type Readiness struct {
	Valid     bool            `json:"valid"`
	CanSubmit bool            `json:"canSubmit"`
	Errors    []string        `json:"errors"`
	Checks    ReadinessChecks `json:"checks"`
}

// ReviewDecision is the approver's verdict on a submitted class.
type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "APPROVE"
	ReviewReject  ReviewDecision = "REJECT"
)
