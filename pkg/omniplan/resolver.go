package omniplan

// Resolver answers reference lookups against a Document. All indices are
// built once by NewResolver; a new Resolver is needed to see a new Document.
type Resolver struct {
	doc       *Document
	tasks     map[string]*RawTask
	resources []*RawResource
	byID      map[string]*RawResource
	children  map[string][]*RawTask
}

// NewResolver indexes doc by task id, resource id and parent task.
func NewResolver(doc *Document) *Resolver {
	r := &Resolver{
		doc:      doc,
		tasks:    make(map[string]*RawTask, len(doc.Tasks)),
		byID:     make(map[string]*RawResource, len(doc.Resources)),
		children: make(map[string][]*RawTask),
	}

	for i := range doc.Tasks {
		t := &doc.Tasks[i]
		if _, dup := r.tasks[t.ID]; !dup {
			r.tasks[t.ID] = t
		}
	}

	// The first resource of an export is the group holding everybody else.
	resources := doc.Resources
	if len(resources) > 0 && resources[0].IsGroup() {
		resources = resources[1:]
	}
	for i := range resources {
		res := &resources[i]
		r.resources = append(r.resources, res)
		if _, dup := r.byID[res.ID]; !dup {
			r.byID[res.ID] = res
		}
	}

	for i := range doc.Tasks {
		parent := &doc.Tasks[i]
		r.children[parent.ID] = r.resolveChildren(parent)
	}
	return r
}

// Document returns the indexed document.
func (r *Resolver) Document() *Document {
	return r.doc
}

// Task returns the task with the given id.
func (r *Resolver) Task(id string) (*RawTask, bool) {
	t, ok := r.tasks[id]
	return t, ok
}

// Resource returns the resource with the given id.
func (r *Resolver) Resource(id string) (*RawResource, bool) {
	res, ok := r.byID[id]
	return res, ok
}

// Resources returns every person resource, without the leading group entry.
func (r *Resolver) Resources() []*RawResource {
	return r.resources
}

// TopTask returns the synthetic root task of the plan.
func (r *Resolver) TopTask() (*RawTask, bool) {
	if r.doc.TopTask == nil {
		return nil, false
	}
	return r.Task(r.doc.TopTask.IDRef)
}

// Children returns the tasks referenced by t's child-task entries, in
// reference order. References to unknown ids are dropped and a child listed
// twice is returned once.
func (r *Resolver) Children(t *RawTask) []*RawTask {
	if kids, ok := r.children[t.ID]; ok {
		return kids
	}
	return r.resolveChildren(t)
}

func (r *Resolver) resolveChildren(t *RawTask) []*RawTask {
	var kids []*RawTask
	seen := make(map[string]bool)
	for _, ref := range t.ChildRefs() {
		child, ok := r.tasks[ref]
		if !ok || seen[ref] {
			continue
		}
		seen[ref] = true
		kids = append(kids, child)
	}
	return kids
}

// FindTasks returns the tasks whose field key equals any of values, in
// document order. It never returns nil.
func (r *Resolver) FindTasks(key string, values ...string) []*RawTask {
	found := []*RawTask{}
	want := valueSet(values)
	if len(want) == 0 {
		return found
	}
	for i := range r.doc.Tasks {
		t := &r.doc.Tasks[i]
		if _, ok := want[t.Field(key)]; ok {
			found = append(found, t)
		}
	}
	return found
}

// FindResources is the resource counterpart of FindTasks. The leading group
// entry is never returned.
func (r *Resolver) FindResources(key string, values ...string) []*RawResource {
	found := []*RawResource{}
	want := valueSet(values)
	if len(want) == 0 {
		return found
	}
	if key == "id" && len(want) == 1 {
		for id := range want {
			if res, ok := r.byID[id]; ok {
				found = append(found, res)
			}
		}
		return found
	}
	for _, res := range r.resources {
		if _, ok := want[res.Field(key)]; ok {
			found = append(found, res)
		}
	}
	return found
}

func valueSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
