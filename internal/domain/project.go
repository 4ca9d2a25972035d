package domain

import "fmt"

// ProjectStatus is the remediation project state machine
type ProjectStatus string

const (
	ProjectProposed    ProjectStatus = "proposed"
	ProjectApproved    ProjectStatus = "approved"
	ProjectImplemented ProjectStatus = "implemented"
	ProjectCancelled   ProjectStatus = "cancelled"
)

var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectProposed: {ProjectApproved, ProjectCancelled},
	ProjectApproved: {ProjectImplemented, ProjectCancelled},
}

// CanTransition reports whether a project may move from s to next
func (s ProjectStatus) CanTransition(next ProjectStatus) bool {
	for _, allowed := range projectTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Project links a countermeasure to a hotspot over a time period
type Project struct {
	ID               string        `json:"id"`
	HotspotID        string        `json:"hotspot_id"`
	CountermeasureID string        `json:"countermeasure_id"`
	Period           Period        `json:"period"`
	ExpectedCost     Money         `json:"expected_cost"`
	ActualCost       *Money        `json:"actual_cost,omitempty"`
	Status           ProjectStatus `json:"status"`
}

// Advance moves the project to next, recording the actual cost once implemented
func (p *Project) Advance(next ProjectStatus, actualCost *Money) error {
	if !p.Status.CanTransition(next) {
		return fmt.Errorf("%w: project %s %s -> %s", ErrInvalidTransition, p.ID, p.Status, next)
	}
	p.Status = next
	if actualCost != nil {
		p.ActualCost = actualCost
	}
	return nil
}
