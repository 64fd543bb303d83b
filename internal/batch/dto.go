package batch

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/pagination"
)

// WindowDTO is the transport shape of one assignment run record.
type WindowDTO struct {
	ID              uuid.UUID `json:"id"`
	BatchID         string    `json:"batch_id"`
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
	TotalOrders     int       `json:"total_orders"`
	AssignedOrders  int       `json:"assigned_orders"`
	AvailableAgents int       `json:"available_agents"`
	GuaranteeRatio  float64   `json:"guarantee_ratio"`
	CreatedAt       time.Time `json:"created_at"`
}

// WindowPageDTO is a cursor page of windows.
type WindowPageDTO struct {
	Windows    []WindowDTO `json:"windows"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// StatsDTO is the admin snapshot of the dispatch queue.
type StatsDTO struct {
	PendingOrders   int64      `json:"pending_orders"`
	AvailableAgents int64      `json:"available_agents"`
	GuaranteeRatio  float64    `json:"guarantee_ratio"`
	LastWindow      *WindowDTO `json:"last_window,omitempty"`
}

// RunResult reports one scheduler pass. Skipped runs recorded no window.
type RunResult struct {
	Window  *WindowDTO `json:"window,omitempty"`
	Skipped bool       `json:"skipped"`
}

func WindowFromModel(w *models.BatchWindow) *WindowDTO {
	if w == nil {
		return nil
	}
	return &WindowDTO{
		ID:              w.ID,
		BatchID:         w.BatchID,
		WindowStart:     w.WindowStart,
		WindowEnd:       w.WindowEnd,
		TotalOrders:     w.TotalOrders,
		AssignedOrders:  w.AssignedOrders,
		AvailableAgents: w.AvailableAgents,
		GuaranteeRatio:  w.GuaranteeRatio,
		CreatedAt:       w.CreatedAt,
	}
}

// WindowPage trims the lookahead row and computes the next cursor.
func WindowPage(rows []models.BatchWindow, limit int) WindowPageDTO {
	normalized := pagination.NormalizeLimit(limit)
	page := WindowPageDTO{Windows: make([]WindowDTO, 0, len(rows))}

	hasMore := len(rows) > normalized
	if hasMore {
		rows = rows[:normalized]
	}
	for i := range rows {
		page.Windows = append(page.Windows, *WindowFromModel(&rows[i]))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page
}
