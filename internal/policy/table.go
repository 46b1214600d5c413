package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"logistics-platform/internal/auth"
)

// Action names an endpoint operation.
type Action string

const (
	ActionList          Action = "list"
	ActionRetrieve      Action = "retrieve"
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionPartialUpdate Action = "partial_update"
	ActionDestroy       Action = "destroy"
)

// CRUD is the standard action set of a resource endpoint.
var CRUD = []Action{ActionList, ActionRetrieve, ActionCreate, ActionUpdate, ActionPartialUpdate, ActionDestroy}

// Rule gates one (resource, action) pair. Request is mandatory; Object is
// applied only once an instance has been loaded.
type Rule struct {
	Request Check
	Object  ObjectCheck
}

// Endpoint declares the actions a resource exposes and the rule for each.
type Endpoint struct {
	Resource string
	Actions  []Action
	Rules    map[Action]Rule
}

var ErrIncompleteTable = errors.New("policy: incomplete permission table")

// Table maps (resource, action) to a rule. It is immutable after construction.
type Table struct {
	rules map[string]map[Action]Rule
}

// NewTable builds and validates a table. Every declared action needs a rule
// with a request check, and no rule may exist for an undeclared action.
func NewTable(endpoints ...Endpoint) (*Table, error) {
	t := &Table{rules: make(map[string]map[Action]Rule, len(endpoints))}
	var problems []string

	for _, ep := range endpoints {
		if ep.Resource == "" {
			problems = append(problems, "endpoint with empty resource name")
			continue
		}
		if _, dup := t.rules[ep.Resource]; dup {
			problems = append(problems, fmt.Sprintf("%s: declared twice", ep.Resource))
			continue
		}
		declared := make(map[Action]struct{}, len(ep.Actions))
		rules := make(map[Action]Rule, len(ep.Actions))
		for _, a := range ep.Actions {
			declared[a] = struct{}{}
			rule, ok := ep.Rules[a]
			if !ok {
				problems = append(problems, fmt.Sprintf("%s.%s: no rule", ep.Resource, a))
				continue
			}
			if rule.Request == nil {
				problems = append(problems, fmt.Sprintf("%s.%s: rule has no request check", ep.Resource, a))
				continue
			}
			rules[a] = rule
		}
		for a := range ep.Rules {
			if _, ok := declared[a]; !ok {
				problems = append(problems, fmt.Sprintf("%s.%s: rule for undeclared action", ep.Resource, a))
			}
		}
		t.rules[ep.Resource] = rules
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, fmt.Errorf("%w:\n- %s", ErrIncompleteTable, strings.Join(problems, "\n- "))
	}
	return t, nil
}

// MustTable is NewTable for process startup; a broken table is a programming error.
func MustTable(endpoints ...Endpoint) *Table {
	t, err := NewTable(endpoints...)
	if err != nil {
		panic(err)
	}
	return t
}

// Has reports whether the table declares action on resource.
func (t *Table) Has(resource string, action Action) bool {
	_, ok := t.rule(resource, action)
	return ok
}

// Allow is the single access decision: allow(principal, method, action, resource?).
// With obj == nil only the request-level check runs. Pairs not in the table deny.
func (t *Table) Allow(resource string, p *auth.Principal, method string, action Action, obj any) bool {
	rule, ok := t.rule(resource, action)
	if !ok {
		return false
	}
	req := Request{Principal: p, Method: method, Action: action}
	if !rule.Request(req) {
		return false
	}
	if obj == nil || rule.Object == nil {
		return true
	}
	return rule.Object(req, obj)
}

// AllowObject runs only the object-level stage. It assumes Allow already
// passed for the request and denies pairs not in the table.
func (t *Table) AllowObject(resource string, p *auth.Principal, method string, action Action, obj any) bool {
	rule, ok := t.rule(resource, action)
	if !ok || obj == nil {
		return false
	}
	if rule.Object == nil {
		return true
	}
	return rule.Object(Request{Principal: p, Method: method, Action: action}, obj)
}

func (t *Table) rule(resource string, action Action) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	actions, ok := t.rules[resource]
	if !ok {
		return Rule{}, false
	}
	rule, ok := actions[action]
	return rule, ok
}
