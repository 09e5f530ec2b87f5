package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnsupportedCondition = errors.New("unsupported search condition")

// Matcher finds the ids of the messages whose contents contain every word of a query.
type Matcher interface {
	Search(query string) ([]int64, error)
}

// columns maps fields to the columns of the search query, which joins messages with threads and folders.
var columns = map[Field]string{
	Subject:         "`messages`.`subject`",
	Date:            "`messages`.`date`",
	UID:             "`messages`.`uid`",
	Flag:            "`messages`.`flags`",
	Sender:          "`messages`.`sender_list`",
	To:              "`messages`.`to_list`",
	Cc:              "`messages`.`cc_list`",
	Bcc:             "`messages`.`bcc_list`",
	ReplyTo:         "`messages`.`reply_to_list`",
	AttachmentCount: "`messages`.`attachment_count`",
	Deleted:         "`messages`.`deleted`",
	ThreadID:        "`threads`.`root`",
	ID:              "`messages`.`id`",
	Read:            "`messages`.`read`",
	Flagged:         "`messages`.`flagged`",
	Folder:          "`folders`.`name`",
	Preview:         "`messages`.`preview`",
}

// Builder translates condition trees into parameterised WHERE clauses.
type Builder struct {
	// Matcher resolves MessageContents conditions. Without one they search the message preview.
	Matcher Matcher
}

// Where returns the SQL expression for the tree and its bound arguments. A nil tree matches everything.
func (b Builder) Where(node Node) (string, []any, error) {
	if node == nil {
		return "1", nil, nil
	}

	var (
		sb   strings.Builder
		args []any
	)

	if err := b.build(&sb, &args, node); err != nil {
		return "", nil, err
	}

	return sb.String(), args, nil
}

func (b Builder) build(sb *strings.Builder, args *[]any, node Node) error {
	switch node := node.(type) {
	case Condition:
		return b.condition(sb, args, node)

	case *Condition:
		return b.condition(sb, args, *node)

	case And:
		return b.group(sb, args, node, " AND ", "1")

	case Or:
		return b.group(sb, args, node, " OR ", "0")

	case Not:
		sb.WriteString("NOT (")

		if err := b.build(sb, args, node.Node); err != nil {
			return err
		}

		sb.WriteString(")")

		return nil

	default:
		return fmt.Errorf("%w: node %T", ErrUnsupportedCondition, node)
	}
}

func (b Builder) group(sb *strings.Builder, args *[]any, nodes []Node, op, empty string) error {
	if len(nodes) == 0 {
		sb.WriteString(empty)
		return nil
	}

	sb.WriteString("(")

	for i, child := range nodes {
		if i > 0 {
			sb.WriteString(op)
		}

		if err := b.build(sb, args, child); err != nil {
			return err
		}
	}

	sb.WriteString(")")

	return nil
}

func (b Builder) condition(sb *strings.Builder, args *[]any, cond Condition) error {
	if cond.Field == MessageContents && b.Matcher != nil {
		return b.contents(sb, cond)
	}

	column, ok := columns[cond.Field]
	if !ok && cond.Field == MessageContents {
		column = columns[Preview]
	} else if !ok {
		return fmt.Errorf("%w: field %v", ErrUnsupportedCondition, cond.Field)
	}

	switch cond.Attribute {
	case Contains:
		writeLike(sb, args, column, "LIKE", "%"+escapeLike(cond.Value)+"%")

	case NotContains:
		writeLike(sb, args, column, "NOT LIKE", "%"+escapeLike(cond.Value)+"%")

	case StartsWith:
		writeLike(sb, args, column, "LIKE", escapeLike(cond.Value)+"%")

	case NotStartsWith:
		writeLike(sb, args, column, "NOT LIKE", escapeLike(cond.Value)+"%")

	case EndsWith:
		writeLike(sb, args, column, "LIKE", "%"+escapeLike(cond.Value))

	case NotEndsWith:
		writeLike(sb, args, column, "NOT LIKE", "%"+escapeLike(cond.Value))

	case Equals:
		writeCompare(sb, args, column, "=", cond.Value)

	case NotEquals:
		writeCompare(sb, args, column, "!=", cond.Value)

	case LessThan:
		writeCompare(sb, args, column, "<", cond.Value)

	case GreaterThan:
		writeCompare(sb, args, column, ">", cond.Value)

	default:
		return fmt.Errorf("%w: attribute %v on %v", ErrUnsupportedCondition, cond.Attribute, cond.Field)
	}

	return nil
}

// contents writes the ids found by the matcher as literals so the statement stays within the bound parameter limit.
func (b Builder) contents(sb *strings.Builder, cond Condition) error {
	var not bool

	switch cond.Attribute {
	case Contains:
	case NotContains:
		not = true
	default:
		return fmt.Errorf("%w: attribute %v on %v", ErrUnsupportedCondition, cond.Attribute, cond.Field)
	}

	ids, err := b.Matcher.Search(cond.Value)
	if err != nil {
		return fmt.Errorf("failed to search message contents: %w", err)
	}

	if len(ids) == 0 {
		if not {
			sb.WriteString("1")
		} else {
			sb.WriteString("0")
		}

		return nil
	}

	sb.WriteString(columns[ID])

	if not {
		sb.WriteString(" NOT")
	}

	sb.WriteString(" IN (")

	for i, id := range ids {
		if i > 0 {
			sb.WriteString(",")
		}

		sb.WriteString(strconv.FormatInt(id, 10))
	}

	sb.WriteString(")")

	return nil
}

func writeLike(sb *strings.Builder, args *[]any, column, op, pattern string) {
	if strings.HasPrefix(op, "NOT") {
		// NULL columns contain nothing.
		fmt.Fprintf(sb, "(%v IS NULL OR %v %v ? ESCAPE '\\')", column, column, op)
	} else {
		fmt.Fprintf(sb, "%v %v ? ESCAPE '\\'", column, op)
	}

	*args = append(*args, pattern)
}

func writeCompare(sb *strings.Builder, args *[]any, column, op, value string) {
	fmt.Fprintf(sb, "%v %v ?", column, op)

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		*args = append(*args, n)
	} else {
		*args = append(*args, value)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
