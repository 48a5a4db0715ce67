package tasks

import (
	"fmt"

	"github.com/desertthunder/lumen/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PrimeCredential Phase = iota
	ResolveBatch
	ItemSettled
	PaceBatches
	LoadComplete
)

func (p Phase) String() string {
	switch p {
	case PrimeCredential:
		return "prime_credential"
	case ResolveBatch:
		return "resolve_batch"
	case ItemSettled:
		return "item_settled"
	case PaceBatches:
		return "pace_batches"
	case LoadComplete:
		return "load_complete"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

func primeCredentialUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: PrimeCredential, Step: 1, Total: 1, Message: "Obtaining API credential..."}
}

func resolveBatchUpdate(batch, batches, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveBatch,
		Step:    batch,
		Total:   batches,
		Message: fmt.Sprintf("Resolving batch %d/%d (%d playlists)...", batch, batches, size),
	}
}

func itemSettledUpdate(completed, total int, res ItemResult) ProgressUpdate {
	switch {
	case res.Dropped:
		return ProgressUpdate{
			Phase:   ItemSettled,
			Step:    completed,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] dropped #%d", completed, total, res.Index),
			Data:    res,
		}
	case res.Err != nil:
		return ProgressUpdate{
			Phase:   ItemSettled,
			Step:    completed,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", completed, total, res.URL, res.Err),
			Data:    res,
		}
	default:
		return ProgressUpdate{
			Phase:   ItemSettled,
			Step:    completed,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✓ %s - %s", completed, total, res.Playlist.Artist, res.Playlist.Title),
			Data:    res,
		}
	}
}

func paceUpdate(batch, batches int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PaceBatches,
		Step:    batch,
		Total:   batches,
		Message: "Waiting before next batch...",
	}
}

func loadCompleteUpdate(result *LoadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadComplete,
		Step:    result.Total(),
		Total:   result.Total(),
		Message: fmt.Sprintf("Loaded %d playlists (%d failed)", result.Resolved, result.Failed),
		Data:    result,
	}
}

// playlists returns the successfully resolved playlists in source order.
func playlists(items []ItemResult) []*models.Playlist {
	out := make([]*models.Playlist, 0, len(items))
	for _, it := range items {
		if it.Playlist != nil && it.Err == nil && !it.Dropped {
			out = append(out, it.Playlist)
		}
	}
	return out
}
