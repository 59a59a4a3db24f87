package exec

import (
	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/sql/phys"
	"github.com/htapcore/engine/pkg/sql/plan"
)

// ExecuteDDL applies a bound DDL node directly against cat; DDL has no
// Operator tree since it produces no rows, only a schema-registry mutation.
func ExecuteDDL(n phys.PhysNode, cat *catalog.Catalog) error {
	switch x := n.(type) {
	case phys.CreateTable:
		return cat.CreateTable(catalog.SchemaMeta{TableName: x.Table, Fields: x.Fields})
	case phys.DropTable:
		return cat.DropTable(x.Table, x.IfExists)
	case phys.CreateIndex:
		return cat.CreateIndex(catalog.IndexMeta{IndexName: x.IndexName, TableName: x.Table, ColumnName: x.Column})
	case phys.DropIndex:
		return cat.DropIndex(x.IndexName, x.IfExists)
	case phys.AlterTable:
		return cat.AlterTable(x.Table, alterKind(x.Kind), x.Column, x.ColumnName, x.NewName)
	default:
		return &errors.SqlNotSupportedError{Feature: "not a DDL node"}
	}
}

func alterKind(k plan.AlterKind) catalog.AlterKind {
	switch k {
	case plan.AlterDropColumn:
		return catalog.AlterDropColumn
	case plan.AlterRenameColumn:
		return catalog.AlterRenameColumn
	default:
		return catalog.AlterAddColumn
	}
}
