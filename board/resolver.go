package board

import (
	"prism-board/domain"
)

// TaskReader looks up tasks by id.
type TaskReader interface {
	Get(id string) (domain.Task, error)
}

// Resolve turns a completed drop into the intent that realizes it. ok is false when the
// drop changes nothing. A referenced id that no longer exists yields a *NotFoundError and
// no intent. An invalid position on a task target falls back to after.
func Resolve(tasks TaskReader, d Drop) (cmd domain.Command, ok bool, err error) {
	if d.TargetID != "" && d.TargetID == d.DraggedID {
		return domain.Command{}, false, nil
	}
	dragged, err := tasks.Get(d.DraggedID)
	if err != nil {
		return domain.Command{}, false, err
	}

	if d.TargetID != "" {
		target, err := tasks.Get(d.TargetID)
		if err != nil {
			return domain.Command{}, false, err
		}
		pos, _ := domain.ParsePosition(string(d.Position))
		return domain.NewReorder(dragged.ID, target.ID, pos), true, nil
	}

	if d.TargetColumn == "" || d.TargetColumn == dragged.Status {
		return domain.Command{}, false, nil
	}
	return domain.NewStatusUpdate(dragged.ID, d.TargetColumn), true, nil
}
