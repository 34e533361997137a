package model

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/harrisonrobin/planbridge/pkg/omniplan"
	"github.com/harrisonrobin/planbridge/pkg/util"
)

// MaxLevel is the deepest nesting Acunote can import; projects sit at level 0.
const MaxLevel = 4

const (
	DefaultType = "task"
	TaskIDKey   = "TaskID"
	MetaTags    = "Tags"
)

// ErrMalformedInput marks documents whose structure cannot be converted at all.
var ErrMalformedInput = errors.New("malformed input")

// DepthError is returned when a task would sit deeper than MaxLevel.
type DepthError struct {
	Title string
	Level int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("Acunote does not support more than %d levels deep: task %q is at level %d and needs to be corrected",
		MaxLevel, e.Title, e.Level)
}

// TaskNode is the typed view of one OmniPlan task inside a project tree.
type TaskNode struct {
	ID               string
	Title            string
	Type             string
	Level            int
	PrerequisiteRefs []string
	ChildRefs        []string
	OwnerRef         *string
	OwnerName        *string
	EffortHours      *int
	EffortDoneHours  *int
	PriorityRaw      *string
	ExternalTaskID   string
	Children         []*TaskNode
	// Overflow for values with no dedicated field. Only Tags is read when exporting.
	MetaData map[string]any

	childrenSet bool
}

// NewTaskNode builds a node from a raw record at the given level. ownerName
// may be empty; owners are normally assigned later by the tree builder.
func NewTaskNode(raw *omniplan.RawTask, level int, ownerName string) (*TaskNode, error) {
	if level > MaxLevel {
		return nil, &DepthError{Title: raw.Title, Level: level}
	}

	node := &TaskNode{
		ID:               raw.ID,
		Title:            raw.Title,
		Type:             raw.Type,
		Level:            level,
		PrerequisiteRefs: raw.PrerequisiteRefs(),
		ChildRefs:        raw.ChildRefs(),
		MetaData:         make(map[string]any),
	}
	if node.Type == "" {
		node.Type = DefaultType
	}
	if raw.Assignment != nil && raw.Assignment.IDRef != "" {
		ref := raw.Assignment.IDRef
		node.OwnerRef = &ref
	}
	if ownerName != "" {
		node.OwnerName = &ownerName
	}
	if raw.Priority != nil {
		p := strings.TrimSpace(*raw.Priority)
		node.PriorityRaw = &p
	}

	node.EffortHours = hours(raw.Title, raw.Effort)
	node.EffortDoneHours = hours(raw.Title, raw.EffortDone)

	for _, ud := range raw.UserData {
		if ud.Key == TaskIDKey {
			node.ExternalTaskID = strings.TrimSpace(ud.Value)
			break
		}
	}
	return node, nil
}

// hours converts an effort in seconds. A value that is not a number is
// treated like a missing one.
func hours(title, seconds string) *int {
	h, err := util.SecondsToHours(seconds)
	if err != nil {
		log.Printf("Warning: task %q: %v, leaving it empty", title, err)
		return nil
	}
	return h
}

// SetChildren populates the node's children. It may only be called once.
func (n *TaskNode) SetChildren(children []*TaskNode) error {
	if n.childrenSet {
		return fmt.Errorf("children of task %q already set", n.Title)
	}
	n.Children = children
	n.childrenSet = true
	return nil
}

// SetOwnerName records the resolved name of the owning resource.
func (n *TaskNode) SetOwnerName(name string) {
	n.OwnerName = &name
}

// Priority returns the task priority on the Acunote scale, or "" if unset.
func (n *TaskNode) Priority() string {
	if n.PriorityRaw == nil {
		return ""
	}
	return util.ToDestinationPriority(*n.PriorityRaw)
}

// Dependents joins the external ids of the node's children, skipping children
// without one.
func (n *TaskNode) Dependents() string {
	ids := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		if c.ExternalTaskID != "" {
			ids = append(ids, c.ExternalTaskID)
		}
	}
	return strings.Join(ids, ",")
}

// Remaining returns estimate minus done, in hours. ok is false unless both are known.
func (n *TaskNode) Remaining() (hours int, ok bool) {
	if n.EffortHours == nil || n.EffortDoneHours == nil {
		return 0, false
	}
	return *n.EffortHours - *n.EffortDoneHours, true
}

// Tags returns the Tags metadata entry rendered as a string.
func (n *TaskNode) Tags() string {
	switch v := n.MetaData[MetaTags].(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, " ")
	default:
		return fmt.Sprint(v)
	}
}

// Walk visits n and its subtree in pre-order.
func (n *TaskNode) Walk(fn func(*TaskNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

func (n *TaskNode) String() string {
	return fmt.Sprintf("%s (level %d, children [%s])", n.Title, n.Level, strings.Join(n.ChildRefs, ", "))
}
