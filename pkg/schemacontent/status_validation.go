package schemacontent

import "fmt"

// canPublish checks if content can be moved to published from its current
// status.
func canPublish(status ContentStatus) error {
	switch status {
	case ContentStatusDraft, ContentStatusPublished:
		return nil
	case ContentStatusArchived:
		return fmt.Errorf("%w: cannot publish archived content", ErrInvalidStatusTransition)
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvalidStatusTransition, status)
	}
}

// canUnpublish checks if content can be moved back to draft.
func canUnpublish(status ContentStatus) error {
	switch status {
	case ContentStatusPublished, ContentStatusDraft:
		return nil
	case ContentStatusArchived:
		return fmt.Errorf("%w: cannot unpublish archived content", ErrInvalidStatusTransition)
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvalidStatusTransition, status)
	}
}

// canArchive checks if content can be archived. Both drafts and published
// content may be archived; archiving is idempotent.
func canArchive(status ContentStatus) error {
	switch status {
	case ContentStatusDraft, ContentStatusPublished, ContentStatusArchived:
		return nil
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvalidStatusTransition, status)
	}
}
