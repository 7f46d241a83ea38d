package models

import "fmt"

// WizardStep is one of the ordered scheduling wizard steps.
type WizardStep int

const (
	StepBasicInfo WizardStep = iota + 1
	StepSessionReview
	StepTimeSlots
	StepResources
	StepTeachers
	StepSubmit
)

// WizardSteps lists the steps in order.
var WizardSteps = []WizardStep{StepBasicInfo, StepSessionReview, StepTimeSlots, StepResources, StepTeachers, StepSubmit}

var wizardStepNames = map[WizardStep]string{
	StepBasicInfo:     "BASIC_INFO",
	StepSessionReview: "SESSION_REVIEW",
	StepTimeSlots:     "TIME_SLOTS",
	StepResources:     "RESOURCES",
	StepTeachers:      "TEACHERS",
	StepSubmit:        "SUBMIT",
}

// Valid reports whether the step exists.
func (s WizardStep) Valid() bool {
	return s >= StepBasicInfo && s <= StepSubmit
}

func (s WizardStep) String() string {
	if name, ok := wizardStepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("WizardStep(%d)", int(s))
}

// WizardState is the serialisable position of a user inside the wizard.
type WizardState struct {
	DraftID     string     `json:"draftId,omitempty"`
	CurrentStep WizardStep `json:"currentStep"`
}

// WizardStepStatus describes reachability and completion of one step.
type WizardStepStatus struct {
	Step      WizardStep `json:"step"`
	Name      string     `json:"name"`
	Complete  bool       `json:"complete"`
	Reachable bool       `json:"reachable"`
	Reason    string     `json:"reason,omitempty"`
}

// WizardProgress is the wizard state plus the live status of every step.
type WizardProgress struct {
	State WizardState        `json:"state"`
	Token string             `json:"token"`
	Steps []WizardStepStatus `json:"steps"`
}

// LeaveChoice is the explicit decision when leaving the wizard before submission.
type LeaveChoice string

const (
	LeaveKeep   LeaveChoice = "KEEP"
	LeaveDelete LeaveChoice = "DELETE"
)
