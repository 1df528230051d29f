package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/nlatta/caseforge/internal/domain/casefile"
	"github.com/nlatta/caseforge/internal/domain/operation"
)

// opInvoker binds canonical operations to the casefile service for one
// request. All reads and writes are scoped to the principal's workspace.
type opInvoker struct {
	casefiles   *casefile.Service
	workspaceID string
	actorID     string
}

func (inv *opInvoker) Invoke(ctx context.Context, op string, params map[string]any) (map[string]any, error) {
	switch op {
	case "create_casefile":
		return inv.createCasefile(ctx, params)
	case "get_casefile":
		return inv.getCasefile(ctx, params)
	case "update_casefile":
		return inv.updateCasefile(ctx, params)
	case "close_casefile":
		return inv.closeCasefile(ctx, params)
	case "list_casefiles":
		return inv.listCasefiles(ctx, params)
	case "add_casefile_note":
		return inv.addNote(ctx, params)
	case "archive_casefile":
		return inv.archiveCasefile(ctx, params)
	default:
		return nil, fmt.Errorf("%w: %s", operation.ErrOperationNotFound, op)
	}
}

func (inv *opInvoker) createCasefile(ctx context.Context, params map[string]any) (map[string]any, error) {
	cf, err := inv.casefiles.Create(ctx, casefile.CreateInput{
		WorkspaceID: inv.workspaceID,
		OwnerID:     inv.actorID,
		Title:       str(params, "title"),
		Description: str(params, "description"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"casefile_id": cf.ID,
		"status":      cf.Status,
		"created_at":  cf.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (inv *opInvoker) getCasefile(ctx context.Context, params map[string]any) (map[string]any, error) {
	cf, err := inv.casefiles.Get(ctx, inv.workspaceID, str(params, "casefile_id"))
	if err != nil {
		return nil, err
	}
	return casefileView(cf), nil
}

func (inv *opInvoker) updateCasefile(ctx context.Context, params map[string]any) (map[string]any, error) {
	prior, err := inv.casefiles.Get(ctx, inv.workspaceID, str(params, "casefile_id"))
	if err != nil {
		return nil, err
	}
	cf, err := inv.casefiles.Update(ctx, inv.workspaceID, str(params, "casefile_id"), casefile.UpdateInput{
		Title:       str(params, "title"),
		Description: str(params, "description"),
		Priority:    str(params, "priority"),
		Status:      str(params, "status"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"casefile_id":       cf.ID,
		"updated":           true,
		"updated_at":        cf.UpdatedAt.Format(time.RFC3339),
		"previous_priority": prior.Priority,
	}, nil
}

func (inv *opInvoker) closeCasefile(ctx context.Context, params map[string]any) (map[string]any, error) {
	cf, err := inv.casefiles.Close(ctx, inv.workspaceID, str(params, "casefile_id"), inv.actorID, str(params, "reason"))
	if err != nil {
		return nil, err
	}
	closedAt := ""
	if cf.ClosedAt != nil {
		closedAt = cf.ClosedAt.Format(time.RFC3339)
	}
	return map[string]any{
		"casefile_id": cf.ID,
		"status":      cf.Status,
		"closed_at":   closedAt,
	}, nil
}

func (inv *opInvoker) archiveCasefile(ctx context.Context, params map[string]any) (map[string]any, error) {
	cf, err := inv.casefiles.Archive(ctx, inv.workspaceID, str(params, "casefile_id"), inv.actorID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"casefile_id": cf.ID,
		"status":      cf.Status,
	}, nil
}

func (inv *opInvoker) listCasefiles(ctx context.Context, params map[string]any) (map[string]any, error) {
	items, total, err := inv.casefiles.List(ctx, inv.workspaceID, casefile.ListInput{
		Status: str(params, "status"),
		Limit:  intVal(params, "limit"),
		Offset: intVal(params, "offset"),
	})
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(items))
	for _, cf := range items {
		views = append(views, casefileView(cf))
	}
	return map[string]any{"items": views, "total": total}, nil
}

func (inv *opInvoker) addNote(ctx context.Context, params map[string]any) (map[string]any, error) {
	note, err := inv.casefiles.AddNote(ctx, inv.workspaceID, str(params, "casefile_id"), inv.actorID, str(params, "body"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"note_id":    note.ID,
		"created_at": note.CreatedAt.Format(time.RFC3339),
	}, nil
}

func casefileView(cf *casefile.Casefile) map[string]any {
	return map[string]any{
		"casefile_id": cf.ID,
		"title":       cf.Title,
		"description": cf.Description,
		"priority":    cf.Priority,
		"status":      cf.Status,
		"owner_id":    cf.OwnerID,
		"created_at":  cf.CreatedAt.Format(time.RFC3339),
		"updated_at":  cf.UpdatedAt.Format(time.RFC3339),
	}
}

func str(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func intVal(params map[string]any, key string) int {
	switch n := params[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
