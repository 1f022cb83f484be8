package file

import (
	"context"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/expensahq/expensa/pkg/models"
)

const approvalCollection = "approvals"

// ApprovalRepository handles decision record file operations. Each
// expense gets its own directory; the file name encodes the
// (step, approver) tuple, which gives the uniqueness invariant for
// free: a second decision for the same tuple finds its file already
// present and is absorbed.
type ApprovalRepository struct {
	root string
}

func approvalDir(expenseID string) string {
	return path.Join(approvalCollection, expenseID)
}

func approvalDocID(stepID, approverID string) string {
	return stepID + "__" + approverID
}

// Record inserts a decision row unless one already exists for the
// (expense, step, approver) tuple.
func (ar *ApprovalRepository) Record(_ context.Context, approval *models.ExpenseApproval) (bool, error) {
	collection := approvalDir(approval.ExpenseID)
	docID := approvalDocID(approval.StepID, approval.ApproverID)

	var existing models.ExpenseApproval

	found, err := readDocument(ar.root, collection, docID, &existing)
	if err != nil {
		return false, fmt.Errorf("failed to check existing decision: %w", err)
	}

	if found {
		return false, nil
	}

	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now().UTC()
	}

	err = writeDocument(ar.root, collection, docID, approval)
	if err != nil {
		return false, err
	}

	return true, nil
}

// ListByExpense returns every decision recorded for an expense, sorted
// by (step id, approver id).
func (ar *ApprovalRepository) ListByExpense(_ context.Context, expenseID string) ([]*models.ExpenseApproval, error) {
	ids, err := listDocumentIDs(ar.root, approvalDir(expenseID))
	if err != nil {
		return nil, err
	}

	approvals := make([]*models.ExpenseApproval, 0, len(ids))

	for _, id := range ids {
		var approval models.ExpenseApproval

		found, err := readDocument(ar.root, approvalDir(expenseID), id, &approval)
		if err != nil {
			return nil, fmt.Errorf("failed to load decision %s: %w", id, err)
		}

		if found {
			approvals = append(approvals, &approval)
		}
	}

	sort.Slice(approvals, func(i, j int) bool {
		if approvals[i].StepID != approvals[j].StepID {
			return approvals[i].StepID < approvals[j].StepID
		}

		return approvals[i].ApproverID < approvals[j].ApproverID
	})

	return approvals, nil
}
