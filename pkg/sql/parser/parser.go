package parser

import (
	"fmt"
	"strconv"

	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/sql/plan"
	"github.com/htapcore/engine/pkg/types"
)

// Parser is a recursive-descent parser over a Lexer's token stream. It
// produces pkg/sql/plan Expr values directly for expressions and the
// Statement types of ast.go for statements; Build turns a Statement into a
// pkg/sql/plan.Node.
type Parser struct {
	lex     *Lexer
	cur     Token
	peek    Token
	sqlText string
	err     error
}

func NewParser(sql string) (*Parser, error) {
	p := &Parser{lex: NewLexer(sql), sqlText: sql}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse parses exactly one statement, optionally followed by a trailing
// semicolon and EOF.
func Parse(sql string) (Statement, error) {
	p, err := NewParser(sql)
	if err != nil {
		return nil, err
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == SEMICOLON {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.cur.Type != EOF {
		return nil, p.errorf("unexpected trailing input near %q", p.cur.Literal)
	}
	return stmt, nil
}

func (p *Parser) advance() error {
	p.cur = p.peek
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return &errors.SqlParseError{Message: fmt.Sprintf(format, args...), Sql: p.sqlText}
}

func (p *Parser) expect(t TokenType) (Token, error) {
	if p.cur.Type != t {
		return Token{}, p.errorf("expected %s, got %s (%q)", t, p.cur.Type, p.cur.Literal)
	}
	tok := p.cur
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (p *Parser) at(t TokenType) bool { return p.cur.Type == t }

func (p *Parser) parseStatement() (Statement, error) {
	switch p.cur.Type {
	case SELECT:
		return p.parseSelect()
	case INSERT:
		return p.parseInsert()
	case UPDATE:
		return p.parseUpdate()
	case DELETE:
		return p.parseDelete()
	case CREATE:
		return p.parseCreate()
	case DROP:
		return p.parseDrop()
	case ALTER:
		return p.parseAlterTable()
	default:
		return nil, &errors.SqlNotSupportedError{Feature: p.cur.Type.String(), Hint: "expected a statement keyword"}
	}
}

// --- SELECT ---

func (p *Parser) parseSelect() (Statement, error) {
	if _, err := p.expect(SELECT); err != nil {
		return nil, err
	}
	stmt := SelectStmt{}

	items, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	stmt.Projection = items

	if _, err := p.expect(FROM); err != nil {
		return nil, err
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	stmt.From = table.Literal

	for p.at(JOIN) || p.at(INNER) || p.at(LEFT) || p.at(RIGHT) || p.at(CROSS) {
		jc, err := p.parseJoin()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, jc)
	}

	if p.at(WHERE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.at(GROUP) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(BY); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, e)
			if p.at(COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}

	if p.at(ORDER) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(BY); err != nil {
			return nil, err
		}
		for {
			item, err := p.parseOrderItem()
			if err != nil {
				return nil, err
			}
			stmt.OrderBy = append(stmt.OrderBy, item)
			if p.at(COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}

	if p.at(LIMIT) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Limit = n
		stmt.HasLimit = true
	}

	if p.at(OFFSET) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Offset = n
	}

	return stmt, nil
}

func (p *Parser) parseSelectList() ([]SelectItem, error) {
	var items []SelectItem
	for {
		if p.at(ASTERISK) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			items = append(items, SelectItem{Star: true})
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			alias := ""
			if p.at(AS) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				tok, err := p.expect(IDENT)
				if err != nil {
					return nil, err
				}
				alias = tok.Literal
			}
			items = append(items, SelectItem{Expr: e, Alias: alias})
		}
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseJoin() (JoinClause, error) {
	jt := plan.JoinInner
	switch p.cur.Type {
	case INNER:
		if err := p.advance(); err != nil {
			return JoinClause{}, err
		}
	case LEFT:
		jt = plan.JoinLeft
		if err := p.advance(); err != nil {
			return JoinClause{}, err
		}
		if p.at(OUTER) {
			if err := p.advance(); err != nil {
				return JoinClause{}, err
			}
		}
	case RIGHT:
		jt = plan.JoinRight
		if err := p.advance(); err != nil {
			return JoinClause{}, err
		}
		if p.at(OUTER) {
			if err := p.advance(); err != nil {
				return JoinClause{}, err
			}
		}
	case CROSS:
		jt = plan.JoinCross
		if err := p.advance(); err != nil {
			return JoinClause{}, err
		}
	}
	if _, err := p.expect(JOIN); err != nil {
		return JoinClause{}, err
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return JoinClause{}, err
	}
	jc := JoinClause{Table: table.Literal, Type: jt}
	if jt == plan.JoinCross {
		return jc, nil
	}
	if _, err := p.expect(ON); err != nil {
		return JoinClause{}, err
	}
	on, err := p.parseExpr()
	if err != nil {
		return JoinClause{}, err
	}
	jc.On = on
	return jc, nil
}

func (p *Parser) parseOrderItem() (OrderItem, error) {
	e, err := p.parseExpr()
	if err != nil {
		return OrderItem{}, err
	}
	item := OrderItem{Expr: e, Ascending: true}
	switch p.cur.Type {
	case ASC:
		if err := p.advance(); err != nil {
			return OrderItem{}, err
		}
	case DESC:
		item.Ascending = false
		if err := p.advance(); err != nil {
			return OrderItem{}, err
		}
	}
	return item, nil
}

func (p *Parser) parseIntLiteral() (int64, error) {
	tok, err := p.expect(INT)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.ParseInt(tok.Literal, 10, 64)
	if convErr != nil {
		return 0, p.errorf("invalid integer literal %q", tok.Literal)
	}
	return n, nil
}

// --- INSERT / UPDATE / DELETE ---

func (p *Parser) parseInsert() (Statement, error) {
	if _, err := p.expect(INSERT); err != nil {
		return nil, err
	}
	if _, err := p.expect(INTO); err != nil {
		return nil, err
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	stmt := InsertStmt{Table: table.Literal}

	if p.at(LPAREN) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for {
			col, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col.Literal)
			if p.at(COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(VALUES); err != nil {
		return nil, err
	}
	for {
		row, err := p.parseValueTuple()
		if err != nil {
			return nil, err
		}
		stmt.Rows = append(stmt.Rows, row)
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return stmt, nil
}

func (p *Parser) parseValueTuple() ([]plan.Expr, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var vals []plan.Expr
	for {
		e, err := p.parseLiteralOrParam()
		if err != nil {
			return nil, err
		}
		vals = append(vals, e)
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return vals, nil
}

func (p *Parser) parseLiteralOrParam() (plan.Expr, error) {
	switch p.cur.Type {
	case MINUS:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseLiteralOrParam()
		if err != nil {
			return nil, err
		}
		lit, ok := e.(plan.Literal)
		if !ok {
			return nil, p.errorf("unary minus requires a literal operand")
		}
		return negateLiteral(lit), nil
	default:
		return p.parsePrimary()
	}
}

func negateLiteral(lit plan.Literal) plan.Literal {
	switch lit.Value.Type {
	case types.TypeInt32:
		return plan.Literal{Value: types.Int32(-lit.Value.I32)}
	case types.TypeInt64:
		return plan.Literal{Value: types.Int64(-lit.Value.I64)}
	case types.TypeFloat64:
		return plan.Literal{Value: types.Float64(-lit.Value.F64)}
	default:
		return lit
	}
}

func (p *Parser) parseUpdate() (Statement, error) {
	if _, err := p.expect(UPDATE); err != nil {
		return nil, err
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	stmt := UpdateStmt{Table: table.Literal}
	if _, err := p.expect(SET); err != nil {
		return nil, err
	}
	for {
		col, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, plan.UpdateAssignment{Column: col.Literal, Value: val})
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.at(WHERE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}

func (p *Parser) parseDelete() (Statement, error) {
	if _, err := p.expect(DELETE); err != nil {
		return nil, err
	}
	if _, err := p.expect(FROM); err != nil {
		return nil, err
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	stmt := DeleteStmt{Table: table.Literal}
	if p.at(WHERE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}

// --- DDL ---

func (p *Parser) parseCreate() (Statement, error) {
	if _, err := p.expect(CREATE); err != nil {
		return nil, err
	}
	switch p.cur.Type {
	case TABLE:
		return p.parseCreateTable()
	case INDEX:
		return p.parseCreateIndex()
	default:
		return nil, &errors.SqlNotSupportedError{Feature: "CREATE " + p.cur.Type.String()}
	}
}

func (p *Parser) parseCreateTable() (Statement, error) {
	if _, err := p.expect(TABLE); err != nil {
		return nil, err
	}
	ifNotExists := false
	if p.at(IF) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(NOT); err != nil {
			return nil, err
		}
		if _, err := p.expect(EXISTS); err != nil {
			return nil, err
		}
		ifNotExists = true
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	stmt := CreateTableStmt{Table: table.Literal, IfNotExists: ifNotExists}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, col)
		if p.at(COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseColumnDef() (ColumnDef, error) {
	name, err := p.expect(IDENT)
	if err != nil {
		return ColumnDef{}, err
	}
	typTok, err := p.expect(IDENT)
	if err != nil {
		return ColumnDef{}, err
	}
	col := ColumnDef{Name: name.Literal, DataType: typTok.Literal, Nullable: true}
	if p.at(NOT) {
		if err := p.advance(); err != nil {
			return ColumnDef{}, err
		}
		if _, err := p.expect(NULL); err != nil {
			return ColumnDef{}, err
		}
		col.Nullable = false
	} else if p.at(NULL) {
		if err := p.advance(); err != nil {
			return ColumnDef{}, err
		}
	}
	return col, nil
}

func (p *Parser) parseCreateIndex() (Statement, error) {
	if _, err := p.expect(INDEX); err != nil {
		return nil, err
	}
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ON); err != nil {
		return nil, err
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	col, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return CreateIndexStmt{IndexName: name.Literal, Table: table.Literal, Column: col.Literal}, nil
}

func (p *Parser) parseDrop() (Statement, error) {
	if _, err := p.expect(DROP); err != nil {
		return nil, err
	}
	switch p.cur.Type {
	case TABLE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		ifExists := false
		if p.at(IF) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if _, err := p.expect(EXISTS); err != nil {
				return nil, err
			}
			ifExists = true
		}
		table, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		return DropTableStmt{Table: table.Literal, IfExists: ifExists}, nil
	case INDEX:
		if err := p.advance(); err != nil {
			return nil, err
		}
		ifExists := false
		if p.at(IF) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if _, err := p.expect(EXISTS); err != nil {
				return nil, err
			}
			ifExists = true
		}
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		return DropIndexStmt{IndexName: name.Literal, IfExists: ifExists}, nil
	default:
		return nil, &errors.SqlNotSupportedError{Feature: "DROP " + p.cur.Type.String()}
	}
}

func (p *Parser) parseAlterTable() (Statement, error) {
	if _, err := p.expect(ALTER); err != nil {
		return nil, err
	}
	if _, err := p.expect(TABLE); err != nil {
		return nil, err
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	switch p.cur.Type {
	case ADD:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(COLUMN) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		return AlterTableStmt{Table: table.Literal, Kind: plan.AlterAddColumn, Column: col}, nil
	case DROP:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(COLUMN) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		return AlterTableStmt{Table: table.Literal, Kind: plan.AlterDropColumn, ColumnName: name.Literal}, nil
	case RENAME:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(COLUMN) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		oldName, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TO); err != nil {
			return nil, err
		}
		newName, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		return AlterTableStmt{Table: table.Literal, Kind: plan.AlterRenameColumn, ColumnName: oldName.Literal, NewName: newName.Literal}, nil
	default:
		return nil, &errors.SqlNotSupportedError{Feature: "ALTER TABLE " + p.cur.Type.String()}
	}
}

// --- expressions, precedence climbing ---
//
// orExpr -> andExpr (OR andExpr)*
// andExpr -> notExpr (AND notExpr)*
// notExpr -> NOT* comparison
// comparison -> additive ((= | <> | < | <= | > | >= | IS NULL | IS NOT NULL | IN (...)) additive)?
// additive -> multiplicative ((+ | -) multiplicative)*
// multiplicative -> unary ((* | / | %) unary)*
// unary -> (-)* primary

func (p *Parser) parseExpr() (plan.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (plan.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(OR) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = plan.BinaryOp{Op: plan.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (plan.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(AND) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = plan.BinaryOp{Op: plan.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (plan.Expr, error) {
	if p.at(NOT) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return plan.BinaryOp{Op: plan.OpEq, Left: plan.Literal{Value: types.Boolean(false)}, Right: inner}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (plan.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	if p.at(IS) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		negated := false
		if p.at(NOT) {
			negated = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(NULL); err != nil {
			return nil, err
		}
		if negated {
			return plan.IsNotNull{Expr: left}, nil
		}
		return plan.IsNull{Expr: left}, nil
	}

	if p.at(IN) || (p.at(NOT) && p.peek.Type == IN) {
		negated := false
		if p.at(NOT) {
			negated = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		var values []plan.Expr
		for {
			v, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			if p.at(COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return plan.InList{Expr: left, Values: values, Negated: negated}, nil
	}

	var op plan.BinaryOperator
	switch p.cur.Type {
	case EQ:
		op = plan.OpEq
	case NEQ:
		op = plan.OpNeq
	case LT:
		op = plan.OpLt
	case LTE:
		op = plan.OpLte
	case GT:
		op = plan.OpGt
	case GTE:
		op = plan.OpGte
	default:
		return left, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return plan.BinaryOp{Op: op, Left: left, Right: right}, nil
}

func (p *Parser) parseAdditive() (plan.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(PLUS) || p.at(MINUS) {
		op := plan.OpAdd
		if p.cur.Type == MINUS {
			op = plan.OpSub
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = plan.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (plan.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(ASTERISK) || p.at(SLASH) || p.at(PERCENT) {
		var op plan.BinaryOperator
		switch p.cur.Type {
		case ASTERISK:
			op = plan.OpMul
		case SLASH:
			op = plan.OpDiv
		case PERCENT:
			op = plan.OpMod
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = plan.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (plan.Expr, error) {
	if p.at(MINUS) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return plan.BinaryOp{Op: plan.OpSub, Left: plan.Literal{Value: types.Int64(0)}, Right: inner}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (plan.Expr, error) {
	switch p.cur.Type {
	case LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case INT:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, convErr := strconv.ParseInt(tok.Literal, 10, 64)
		if convErr != nil {
			return nil, p.errorf("invalid integer literal %q", tok.Literal)
		}
		return plan.Literal{Value: types.Int64(n)}, nil
	case FLOAT:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		f, convErr := strconv.ParseFloat(tok.Literal, 64)
		if convErr != nil {
			return nil, p.errorf("invalid float literal %q", tok.Literal)
		}
		return plan.Literal{Value: types.Float64(f)}, nil
	case STRING:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return plan.Literal{Value: types.Utf8(tok.Literal)}, nil
	case TRUE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return plan.Literal{Value: types.Boolean(true)}, nil
	case FALSE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return plan.Literal{Value: types.Boolean(false)}, nil
	case NULL:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return plan.Literal{Value: types.Null()}, nil
	case PARAM:
		return nil, &errors.SqlNotSupportedError{
			Feature: "unsubstituted parameter " + p.cur.Literal,
			Hint:    "parameters must be substituted via pkg/paramsub before parsing",
		}
	case IDENT:
		return p.parseIdentOrCall()
	default:
		return nil, p.errorf("unexpected token %s (%q) in expression", p.cur.Type, p.cur.Literal)
	}
}

func (p *Parser) parseIdentOrCall() (plan.Expr, error) {
	name := p.cur.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}
	if !p.at(LPAREN) {
		for p.at(DOT) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			field, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			name = field.Literal
		}
		return plan.Column{Name: name}, nil
	}
	return p.parseCall(name)
}

func (p *Parser) parseCall(name string) (plan.Expr, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	if agg, ok := aggFuncByName(name); ok {
		if p.at(ASTERISK) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			return plan.Function{Name: plan.Name(name), Fn: agg}, nil
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return plan.Function{Name: plan.Name(name), Fn: agg, Arg: arg}, nil
	}

	variant, ok := scalarFuncByName(name)
	if !ok {
		return nil, &errors.SqlNotSupportedError{Feature: "function " + name}
	}
	var args []plan.Expr
	if !p.at(RPAREN) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.at(COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return plan.ScalarFunc{Variant: variant, Args: args}, nil
}

func aggFuncByName(name string) (plan.AggFunc, bool) {
	switch upper(name) {
	case "COUNT":
		return plan.AggCount, true
	case "SUM":
		return plan.AggSum, true
	case "AVG":
		return plan.AggAvg, true
	case "MIN":
		return plan.AggMin, true
	case "MAX":
		return plan.AggMax, true
	default:
		return 0, false
	}
}

func scalarFuncByName(name string) (plan.ScalarVariant, bool) {
	switch upper(name) {
	case "UPPER":
		return plan.FnUpper, true
	case "LOWER":
		return plan.FnLower, true
	case "TRIM":
		return plan.FnTrim, true
	case "LENGTH":
		return plan.FnLength, true
	case "CONCAT":
		return plan.FnConcat, true
	case "ABS":
		return plan.FnAbs, true
	case "ROUND":
		return plan.FnRound, true
	case "SQRT":
		return plan.FnSqrt, true
	case "NOW":
		return plan.FnNow, true
	case "CURRENT_DATE":
		return plan.FnCurrentDate, true
	case "CURRENT_TIME":
		return plan.FnCurrentTime, true
	default:
		return 0, false
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
