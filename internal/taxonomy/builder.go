package taxonomy

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Sheet is one tab of a spreadsheet extract. Rows are kept in source order;
// cells hold raw cell text, untrimmed.
type Sheet struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// Extract is the parsed spreadsheet handed to Build.
type Extract struct {
	Sheets []Sheet `json:"sheets"`
}

// Build converts a spreadsheet extract into an immutable taxonomy Model.
//
// Within a sheet the rightmost column carries the tag description and every
// earlier column is a hierarchy level. A row's own node is the deepest
// populated label cell; populated cells to its left name (or refresh) its
// ancestors. A row with no label cells continues the previous node: its
// description is appended to the most recently built node in that sheet.
// Rows that name an already-built sibling merge into it instead of creating
// a duplicate, so ids stay stable across re-uploads of the same extract.
func Build(extract Extract) (*Model, error) {
	if len(extract.Sheets) == 0 {
		return nil, &MalformedError{Reason: "extract has no sheets"}
	}

	model := &Model{
		Nodes:     make(map[string]*Node),
		CreatedAt: time.Now().UTC(),
	}

	for _, sheet := range extract.Sheets {
		if len(sheet.Rows) == 0 {
			// Structurally empty tab, common in real workbooks. Skip it.
			continue
		}
		if err := buildSheet(model, sheet); err != nil {
			return nil, err
		}
	}

	if model.NodeCount == 0 {
		return nil, ErrEmptyTaxonomy
	}
	return model, nil
}

func buildSheet(m *Model, sheet Sheet) error {
	width := 0
	for _, row := range sheet.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	// With a single column every cell is a label and there is no
	// description column.
	labelCols := width
	if width > 1 {
		labelCols = width - 1
	}

	sheetName := strings.TrimSpace(sheet.Name)
	// Most recently built node at each depth, used to resolve parents and
	// continuation rows.
	lastAtDepth := make([]*Node, labelCols)
	var lastNode *Node
	usable := 0

	for i, row := range sheet.Rows {
		labels := make([]string, labelCols)
		deepest := -1
		for d := 0; d < labelCols && d < len(row); d++ {
			labels[d] = strings.TrimSpace(row[d])
			if labels[d] != "" {
				deepest = d
			}
		}
		description := ""
		if width > 1 && len(row) >= width {
			description = strings.TrimSpace(row[width-1])
		}

		if deepest < 0 {
			if description == "" {
				continue
			}
			// Continuation row: extra description lines for the
			// node built most recently in this sheet.
			if lastNode == nil {
				return &MalformedError{Sheet: sheet.Name, Row: i + 1, Reason: "description row before any tag"}
			}
			appendDescription(lastNode, description)
			usable++
			continue
		}

		// Build or refresh every populated ancestor level before the
		// row's own node so the parent chain exists.
		for d := 0; d <= deepest; d++ {
			if labels[d] == "" {
				if lastAtDepth[d] == nil {
					return &MalformedError{Sheet: sheet.Name, Row: i + 1, Reason: "tag has no parent at level " + strconv.Itoa(d)}
				}
				continue
			}
			desc := ""
			if d == deepest {
				desc = description
			}
			node, err := ensureNode(m, sheetName, lastAtDepth, d, labels[d], desc)
			if err != nil {
				if me, ok := err.(*MalformedError); ok {
					me.Sheet = sheet.Name
					me.Row = i + 1
				}
				return err
			}
			lastAtDepth[d] = node
			for clear := d + 1; clear < labelCols; clear++ {
				lastAtDepth[clear] = nil
			}
			lastNode = node
		}
		usable++
	}

	if usable == 0 {
		return &MalformedError{Sheet: sheet.Name, Reason: "sheet has rows but none define a tag"}
	}
	return nil
}

// ensureNode returns the node for the given label at the given depth,
// creating it when it does not exist yet. Re-encountering an existing node
// merges descriptions instead of duplicating it. Only identical labels
// merge: distinct labels whose slugs collide get a numeric suffix so each
// keeps its own id.
func ensureNode(m *Model, sheetName string, lastAtDepth []*Node, depth int, label, description string) (*Node, error) {
	var parent *Node
	if depth > 0 {
		parent = lastAtDepth[depth-1]
		if parent == nil {
			return nil, &MalformedError{Reason: "tag has no parent at level " + strconv.Itoa(depth-1)}
		}
	}

	id := nodeID(sheetName, parent, label)
	for n := 2; ; n++ {
		existing, ok := m.Nodes[id]
		if !ok {
			break
		}
		if existing.Label == label {
			appendDescription(existing, description)
			return existing, nil
		}
		id = nodeID(sheetName, parent, label) + "-" + strconv.Itoa(n)
	}

	node := &Node{
		ID:          id,
		Label:       label,
		Description: description,
		Sheet:       sheetName,
		Depth:       depth,
	}
	if parent != nil {
		node.ParentID = parent.ID
		parent.Children = append(parent.Children, node.ID)
	} else {
		m.Roots = append(m.Roots, node.ID)
	}
	m.Nodes[node.ID] = node
	m.NodeCount++
	if !containsString(m.Sheets, sheetName) {
		m.Sheets = append(m.Sheets, sheetName)
	}
	return node, nil
}

// nodeID derives a stable id from the sheet name and the label path from the
// root down to the node. The same extract always yields the same ids.
func nodeID(sheetName string, parent *Node, label string) string {
	if parent != nil {
		return parent.ID + "/" + slugify(label)
	}
	return slugify(sheetName) + "/" + slugify(label)
}

func appendDescription(node *Node, description string) {
	if description == "" {
		return
	}
	if node.Description == "" {
		node.Description = description
		return
	}
	if strings.Contains(node.Description, description) {
		return
	}
	node.Description += "\n" + description
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func slugify(input string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(input)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "tag"
	}
	return out
}

