// Package file provides file-based persistence for expenses, flows,
// rules and approval decisions. It is intended for development and
// tests; production deployments use the postgresql package.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/expensahq/expensa/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
// Each entity is stored as one JSON document under a per-collection
// directory.
type Persistence struct {
	root         string
	companyRepo  *CompanyRepository
	userRepo     *UserRepository
	expenseRepo  *ExpenseRepository
	flowRepo     *FlowRepository
	ruleRepo     *RuleRepository
	approvalRepo *ApprovalRepository
}

// NewPersistence creates a new instance rooted at the given directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		companyRepo:  &CompanyRepository{root: cleanRoot},
		userRepo:     &UserRepository{root: cleanRoot},
		expenseRepo:  &ExpenseRepository{root: cleanRoot},
		flowRepo:     &FlowRepository{root: cleanRoot},
		ruleRepo:     &RuleRepository{root: cleanRoot},
		approvalRepo: &ApprovalRepository{root: cleanRoot},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Companies() persistence.CompanyRepository {
	return fp.companyRepo
}

func (fp *Persistence) Users() persistence.UserRepository {
	return fp.userRepo
}

func (fp *Persistence) Expenses() persistence.ExpenseRepository {
	return fp.expenseRepo
}

func (fp *Persistence) Flows() persistence.FlowRepository {
	return fp.flowRepo
}

func (fp *Persistence) Rules() persistence.RuleRepository {
	return fp.ruleRepo
}

func (fp *Persistence) Approvals() persistence.ApprovalRepository {
	return fp.approvalRepo
}

// readDocument loads one JSON document into out. A missing file is not
// an error: it reports found=false so repositories can map absence to
// their own semantics.
func readDocument(root, collection, id string, out any) (bool, error) {
	filePath := filepath.Clean(path.Join(root, collection, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s %s: %w", collection, id, err)
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s %s: %w", collection, id, err)
	}

	return true, nil
}

// writeDocument stores one JSON document, creating the collection
// directory on first use.
func writeDocument(root, collection, id string, doc any) error {
	dir := path.Join(root, collection)

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", collection, id, err)
	}

	return os.WriteFile(path.Join(dir, id+".json"), data, 0600)
}

// listDocumentIDs returns the ids of every document in a collection.
func listDocumentIDs(root, collection string) ([]string, error) {
	dir := os.DirFS(path.Join(root, collection))

	jsonFiles, err := fs.Glob(dir, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", collection, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
