package taxonomy

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuildParentChildDescriptions(t *testing.T) {
	extract := Extract{Sheets: []Sheet{{
		Name: "Billing Issues",
		Rows: [][]string{
			{"Billing", "", ""},
			{"Billing", "Refund", "Customer requests money back"},
		},
	}}}

	model, err := Build(extract)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if model.NodeCount != 2 {
		t.Fatalf("expected 2 nodes, got %d", model.NodeCount)
	}

	parent, ok := model.Lookup("billing-issues/billing")
	if !ok {
		t.Fatalf("parent node missing; have %v", nodeIDs(model))
	}
	if parent.ParentID != "" || parent.Depth != 0 {
		t.Fatalf("parent misplaced: %+v", parent)
	}

	child, ok := model.Lookup("billing-issues/billing/refund")
	if !ok {
		t.Fatalf("child node missing; have %v", nodeIDs(model))
	}
	if child.ParentID != parent.ID {
		t.Fatalf("child parent = %q, want %q", child.ParentID, parent.ID)
	}
	if child.Description != "Customer requests money back" {
		t.Fatalf("child description = %q", child.Description)
	}
	if got := model.Path(child.ID); !reflect.DeepEqual(got, []string{"Billing", "Refund"}) {
		t.Fatalf("path = %v", got)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	extract := Extract{Sheets: []Sheet{
		{Name: "Account", Rows: [][]string{
			{"Login", "", "Problems signing in"},
			{"", "2FA", "Second factor not arriving"},
			{"", "Password reset", "Reset link broken"},
			{"Profile", "", "Profile page issues"},
		}},
		{Name: "Shipping", Rows: [][]string{
			{"Delivery", "Late", "Package past promised date"},
		}},
	}}

	first, err := Build(extract)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(extract)
	if err != nil {
		t.Fatalf("Build (second): %v", err)
	}
	if !reflect.DeepEqual(nodeIDs(first), nodeIDs(second)) {
		t.Fatalf("ids differ across builds:\n%v\n%v", nodeIDs(first), nodeIDs(second))
	}
	if first.NodeCount != 6 {
		t.Fatalf("expected 6 nodes, got %d: %v", first.NodeCount, nodeIDs(first))
	}

	twoFA, ok := first.Lookup("account/login/2fa")
	if !ok {
		t.Fatalf("blank-parent row not attached under Login: %v", nodeIDs(first))
	}
	if twoFA.ParentID != "account/login" {
		t.Fatalf("2fa parent = %q", twoFA.ParentID)
	}
}

func TestBuildContinuationRowAppendsDescription(t *testing.T) {
	extract := Extract{Sheets: []Sheet{{
		Name: "Orders",
		Rows: [][]string{
			{"Cancellation", "Customer wants to cancel"},
			{"", "Only before the order has shipped"},
		},
	}}}

	model, err := Build(extract)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	node, ok := model.Lookup("orders/cancellation")
	if !ok {
		t.Fatalf("node missing: %v", nodeIDs(model))
	}
	want := "Customer wants to cancel\nOnly before the order has shipped"
	if node.Description != want {
		t.Fatalf("description = %q, want %q", node.Description, want)
	}
}

func TestBuildMergesDuplicateSiblings(t *testing.T) {
	extract := Extract{Sheets: []Sheet{{
		Name: "Payments",
		Rows: [][]string{
			{"Card", "Declined", "Issuer refused the charge"},
			{"Card", "Declined", "Retry with another card"},
		},
	}}}

	model, err := Build(extract)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if model.NodeCount != 2 {
		t.Fatalf("expected 2 nodes after merge, got %d: %v", model.NodeCount, nodeIDs(model))
	}
	node, _ := model.Lookup("payments/card/declined")
	if node == nil {
		t.Fatalf("merged node missing: %v", nodeIDs(model))
	}
	want := "Issuer refused the charge\nRetry with another card"
	if node.Description != want {
		t.Fatalf("description = %q", node.Description)
	}
}

func TestBuildKeepsCollidingSlugsApart(t *testing.T) {
	// "A&B" and "A B" both slugify to a-b; symbol-only labels both fall
	// back to the same placeholder slug. Distinct labels must keep
	// distinct ids, only identical labels merge.
	extract := Extract{Sheets: []Sheet{{
		Name: "Edge",
		Rows: [][]string{
			{"A&B", "ampersand"},
			{"A B", "space"},
			{"A&B", "ampersand again"},
			{"!!!", "bang"},
			{"???", "question"},
		},
	}}}

	model, err := Build(extract)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if model.NodeCount != 4 {
		t.Fatalf("expected 4 nodes, got %d: %v", model.NodeCount, nodeIDs(model))
	}

	amp, _ := model.Lookup("edge/a-b")
	if amp == nil || amp.Label != "A&B" {
		t.Fatalf("edge/a-b = %+v", amp)
	}
	want := "ampersand\nampersand again"
	if amp.Description != want {
		t.Fatalf("description = %q, want %q", amp.Description, want)
	}

	space, _ := model.Lookup("edge/a-b-2")
	if space == nil || space.Label != "A B" {
		t.Fatalf("edge/a-b-2 = %+v", space)
	}

	bang, _ := model.Lookup("edge/tag")
	question, _ := model.Lookup("edge/tag-2")
	if bang == nil || bang.Label != "!!!" {
		t.Fatalf("edge/tag = %+v", bang)
	}
	if question == nil || question.Label != "???" {
		t.Fatalf("edge/tag-2 = %+v", question)
	}
}

func TestBuildMalformed(t *testing.T) {
	cases := []struct {
		name    string
		extract Extract
	}{
		{
			name:    "no sheets",
			extract: Extract{},
		},
		{
			name: "rows but no tags",
			extract: Extract{Sheets: []Sheet{{
				Name: "Notes",
				Rows: [][]string{{"", ""}, {"", ""}},
			}}},
		},
		{
			name: "child before any parent",
			extract: Extract{Sheets: []Sheet{{
				Name: "Broken",
				Rows: [][]string{
					{"", "Orphan", "No parent above"},
				},
			}}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.extract)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !IsMalformed(err) {
				t.Fatalf("expected MalformedError, got %T: %v", err, err)
			}
		})
	}
}

func TestBuildEmptyTaxonomy(t *testing.T) {
	extract := Extract{Sheets: []Sheet{
		{Name: "Empty One"},
		{Name: "Empty Two"},
	}}

	_, err := Build(extract)
	if !errors.Is(err, ErrEmptyTaxonomy) {
		t.Fatalf("expected ErrEmptyTaxonomy, got %v", err)
	}
}

func TestWalkVisitsDepthFirstInOrder(t *testing.T) {
	extract := Extract{Sheets: []Sheet{{
		Name: "Support",
		Rows: [][]string{
			{"A", "", ""},
			{"", "A1", "first child"},
			{"", "A2", "second child"},
			{"B", "", "second root"},
		},
	}}}

	model, err := Build(extract)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var order []string
	model.Walk(func(n *Node) { order = append(order, n.Label) })
	want := []string{"A", "A1", "A2", "B"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("walk order = %v, want %v", order, want)
	}
}

func nodeIDs(m *Model) []string {
	var ids []string
	m.Walk(func(n *Node) { ids = append(ids, n.ID) })
	return ids
}
