package domain

import (
	"strings"
	"time"

	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// NewSceneCase creates a case from a scene report. A report filed by a chief
// or a superuser opens immediately; any other goes to review.
func NewSceneCase(creator types.ID, title, description string, severity Severity, reportedAt *time.Time, witnesses []Witness, openImmediately bool) (*Case, error) {
	if err := validateHeader(title, description, severity); err != nil {
		return nil, err
	}
	if reportedAt == nil || reportedAt.IsZero() {
		return nil, errors.Validation("scene_reported_at is required", map[string]string{
			"scene_reported_at": "required",
		})
	}
	if creator.IsZero() {
		return nil, errors.Validation("creator is required", nil)
	}

	now := time.Now()
	status := CaseStatusUnderReview
	if openImmediately {
		status = CaseStatusOpen
	}
	at := reportedAt.UTC()
	c := &Case{
		ID:              types.NewID(),
		Title:           strings.TrimSpace(title),
		Description:     strings.TrimSpace(description),
		Source:          SourceScene,
		Status:          status,
		Severity:        severity,
		CreatedBy:       creator,
		SceneReportedAt: &at,
		Complainants:    []Complainant{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, w := range witnesses {
		if strings.TrimSpace(w.FullName) == "" {
			return nil, errors.Validation("witness full_name is required", map[string]string{
				"witnesses": "full_name required",
			})
		}
		w.ID = types.NewID()
		w.CaseID = c.ID
		w.CreatedAt = now
		c.Witnesses = append(c.Witnesses, w)
	}

	c.addEvent(CaseEventSceneReported, creator, "Scene report filed", map[string]any{
		"status":    status,
		"witnesses": len(c.Witnesses),
	})
	return c, nil
}

// ApproveScene opens a scene report that was waiting for a superior.
func (c *Case) ApproveScene(actor types.ID, note string) error {
	if err := c.RequireSceneUnderReview(); err != nil {
		return err
	}
	return c.transition(CaseStatusOpen, actor, CaseEventSceneApproved, "Scene report approved", map[string]any{
		"note": note,
	})
}

// DenyScene voids a scene report.
func (c *Case) DenyScene(actor types.ID, note string) error {
	if err := c.RequireSceneUnderReview(); err != nil {
		return err
	}
	return c.transition(CaseStatusVoid, actor, CaseEventSceneDenied, "Scene report denied", map[string]any{
		"note": note,
	})
}

// RequireSceneUnderReview fails unless c is a scene report awaiting review.
func (c *Case) RequireSceneUnderReview() error {
	if c.Source != SourceScene {
		return errors.InvalidState("case is not a scene report")
	}
	if c.Status != CaseStatusUnderReview {
		return errors.InvalidState("scene report is not under review")
	}
	return nil
}
